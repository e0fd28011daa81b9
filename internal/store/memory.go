package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemRepo is an in-memory Repo used by tests and the demo CLI. Safe
// for concurrent use.
type MemRepo struct {
	mu           sync.RWMutex
	kcs          map[ID]*KnowledgeComponent
	prereqs      map[ID][]*Prerequisite
	items        map[ID]*LearningItem
	states       map[string]*SkillState // key: learner|kc
	interactions []*Interaction
}

// NewMemRepo returns an empty in-memory repository.
func NewMemRepo() *MemRepo {
	return &MemRepo{
		kcs:     make(map[ID]*KnowledgeComponent),
		prereqs: make(map[ID][]*Prerequisite),
		items:   make(map[ID]*LearningItem),
		states:  make(map[string]*SkillState),
	}
}

func stateKey(learner, kc ID) string {
	return string(learner) + "|" + string(kc)
}

// PutKC registers a knowledge component with its prerequisite edges.
func (m *MemRepo) PutKC(kc *KnowledgeComponent, prereqs ...*Prerequisite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *kc
	m.kcs[kc.ID] = &cp
	for _, p := range prereqs {
		pc := *p
		m.prereqs[p.KCID] = append(m.prereqs[p.KCID], &pc)
	}
}

// PutItem registers a learning item.
func (m *MemRepo) PutItem(item *LearningItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
}

func (m *MemRepo) SkillState(_ context.Context, learner, kc ID) (*SkillState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[stateKey(learner, kc)]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (m *MemRepo) SkillStates(_ context.Context, learner ID) ([]*SkillState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*SkillState
	for _, s := range m.states {
		if s.LearnerID == learner {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KCID < out[j].KCID })
	return out, nil
}

func (m *MemRepo) UpsertSkillState(_ context.Context, state *SkillState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	cp.UpdatedAt = time.Now()
	m.states[stateKey(state.LearnerID, state.KCID)] = &cp
	return nil
}

func (m *MemRepo) AppendInteraction(_ context.Context, rec *Interaction) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	if cp.ID == "" {
		cp.ID = NewID()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.interactions = append(m.interactions, &cp)
	return cp.ID, nil
}

func (m *MemRepo) RecentInteractions(_ context.Context, learner, kc ID, limit int) ([]*Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Interaction
	for i := len(m.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.interactions[i]
		if rec.LearnerID == learner && rec.KCID == kc {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemRepo) InteractionsForItem(_ context.Context, item ID) ([]*Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Interaction
	for _, rec := range m.interactions {
		if rec.ItemID == item {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemRepo) ItemsWithResponses(_ context.Context, min int) ([]ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[ID]int)
	for _, rec := range m.interactions {
		counts[rec.ItemID]++
	}
	var out []ID
	for id, n := range counts {
		if n >= min {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemRepo) Item(_ context.Context, id ID) (*LearningItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

func (m *MemRepo) ItemsForKC(_ context.Context, kc ID) ([]*LearningItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*LearningItem
	for _, item := range m.items {
		if item.KCID == kc {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemRepo) UpdateItemStats(_ context.Context, id ID, correct bool, responseTimeMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	foldItemStats(item, correct, responseTimeMs)
	return nil
}

func (m *MemRepo) UpdateItemParameters(_ context.Context, id ID, difficulty, discrimination float64, sampleSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	item.Difficulty = difficulty
	item.Discrimination = discrimination
	item.CalibrationSampleSize = sampleSize
	item.CalibratedAt = &now
	return nil
}

func (m *MemRepo) KC(_ context.Context, id ID) (*KnowledgeComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kc, ok := m.kcs[id]
	if !ok {
		return nil, fmt.Errorf("kc %s: %w", id, ErrNotFound)
	}
	cp := *kc
	return &cp, nil
}

func (m *MemRepo) KCs(_ context.Context, f KCFilter) ([]*KnowledgeComponent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*KnowledgeComponent
	for _, kc := range m.kcs {
		if f.Domain != "" && kc.Domain != f.Domain {
			continue
		}
		if f.Tier != 0 && kc.Tier != f.Tier {
			continue
		}
		cp := *kc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemRepo) Prerequisites(_ context.Context, kc ID) ([]*Prerequisite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := m.prereqs[kc]
	out := make([]*Prerequisite, 0, len(edges))
	for _, e := range edges {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
