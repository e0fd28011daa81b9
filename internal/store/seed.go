package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveCurriculum upserts curriculum content (KCs, prerequisite edges,
// items) in one transaction. Skill states and interactions are never
// touched, so reseeding an existing database is safe.
func (s *Store) SaveCurriculum(ctx context.Context, kcs []*KnowledgeComponent, prereqs []*Prerequisite, items []*LearningItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kc := range kcs {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(kc).Error; err != nil {
				return fmt.Errorf("save kc %s: %w", kc.ID, err)
			}
		}
		for _, p := range prereqs {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error; err != nil {
				return fmt.Errorf("save prerequisite %s -> %s: %w", p.KCID, p.PrereqID, err)
			}
		}
		for _, item := range items {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error; err != nil {
				return fmt.Errorf("save item %s: %w", item.ID, err)
			}
		}
		return nil
	})
}
