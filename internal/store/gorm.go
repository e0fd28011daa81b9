package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// gormRepo implements Repo on top of a gorm connection.
type gormRepo struct {
	db *gorm.DB
}

func (r *gormRepo) SkillState(ctx context.Context, learner, kc ID) (*SkillState, error) {
	var state SkillState
	err := r.db.WithContext(ctx).
		Where("learner_id = ? AND kc_id = ?", learner, kc).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query skill state: %w", err)
	}
	return &state, nil
}

func (r *gormRepo) SkillStates(ctx context.Context, learner ID) ([]*SkillState, error) {
	var states []*SkillState
	err := r.db.WithContext(ctx).
		Where("learner_id = ?", learner).
		Order("kc_id").
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("query skill states: %w", err)
	}
	return states, nil
}

func (r *gormRepo) UpsertSkillState(ctx context.Context, state *SkillState) error {
	state.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(state).Error; err != nil {
		return fmt.Errorf("upsert skill state: %w", err)
	}
	return nil
}

func (r *gormRepo) AppendInteraction(ctx context.Context, rec *Interaction) (ID, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("append interaction: %w", err)
	}
	return rec.ID, nil
}

func (r *gormRepo) RecentInteractions(ctx context.Context, learner, kc ID, limit int) ([]*Interaction, error) {
	var recs []*Interaction
	err := r.db.WithContext(ctx).
		Where("learner_id = ? AND kc_id = ?", learner, kc).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query recent interactions: %w", err)
	}
	return recs, nil
}

func (r *gormRepo) InteractionsForItem(ctx context.Context, item ID) ([]*Interaction, error) {
	var recs []*Interaction
	err := r.db.WithContext(ctx).
		Where("item_id = ?", item).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("query item interactions: %w", err)
	}
	return recs, nil
}

func (r *gormRepo) ItemsWithResponses(ctx context.Context, min int) ([]ID, error) {
	var ids []ID
	err := r.db.WithContext(ctx).
		Model(&Interaction{}).
		Select("item_id").
		Group("item_id").
		Having("COUNT(*) >= ?", min).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("query items with responses: %w", err)
	}
	return ids, nil
}

func (r *gormRepo) Item(ctx context.Context, id ID) (*LearningItem, error) {
	var item LearningItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (r *gormRepo) ItemsForKC(ctx context.Context, kc ID) ([]*LearningItem, error) {
	var items []*LearningItem
	err := r.db.WithContext(ctx).
		Where("kc_id = ?", kc).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query items for kc: %w", err)
	}
	return items, nil
}

func (r *gormRepo) UpdateItemStats(ctx context.Context, id ID, correct bool, responseTimeMs int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item LearningItem
		err := tx.Where("id = ?", id).First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query item: %w", err)
		}
		foldItemStats(&item, correct, responseTimeMs)
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("update item stats: %w", err)
		}
		return nil
	})
}

func (r *gormRepo) UpdateItemParameters(ctx context.Context, id ID, difficulty, discrimination float64, sampleSize int) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&LearningItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"difficulty":              difficulty,
			"discrimination":          discrimination,
			"calibration_sample_size": sampleSize,
			"calibrated_at":           &now,
		})
	if res.Error != nil {
		return fmt.Errorf("update item parameters: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *gormRepo) KC(ctx context.Context, id ID) (*KnowledgeComponent, error) {
	var kc KnowledgeComponent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&kc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("kc %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query kc: %w", err)
	}
	return &kc, nil
}

func (r *gormRepo) KCs(ctx context.Context, f KCFilter) ([]*KnowledgeComponent, error) {
	q := r.db.WithContext(ctx).Model(&KnowledgeComponent{})
	if f.Domain != "" {
		q = q.Where("domain = ?", f.Domain)
	}
	if f.Tier != 0 {
		q = q.Where("tier = ?", f.Tier)
	}
	var kcs []*KnowledgeComponent
	if err := q.Order("tier, id").Find(&kcs).Error; err != nil {
		return nil, fmt.Errorf("query kcs: %w", err)
	}
	return kcs, nil
}

func (r *gormRepo) Prerequisites(ctx context.Context, kc ID) ([]*Prerequisite, error) {
	var edges []*Prerequisite
	err := r.db.WithContext(ctx).
		Where("kc_id = ?", kc).
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("query prerequisites: %w", err)
	}
	return edges, nil
}

// foldItemStats folds one answer into an item's running aggregates.
// Shared with MemRepo so both backends agree on the arithmetic.
func foldItemStats(item *LearningItem, correct bool, responseTimeMs int) {
	n := float64(item.ResponseCount)
	c := 0.0
	if correct {
		c = 1.0
	}
	item.CorrectRate = (item.CorrectRate*n + c) / (n + 1)
	item.AvgResponseMs = (item.AvgResponseMs*n + float64(responseTimeMs)) / (n + 1)
	item.ResponseCount++
}
