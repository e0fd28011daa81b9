// Package curriculum defines the curriculum bundle the engine consumes
// and ships a small arithmetic demo set so the CLI works end-to-end
// without an external authoring system.
package curriculum

import (
	"context"
	"fmt"

	"github.com/abhisek/skilltrace/internal/kcgraph"
	"github.com/abhisek/skilltrace/internal/store"
)

// Curriculum is a self-contained content bundle: KCs, their
// prerequisite edges, and the practice items mapped to them.
type Curriculum struct {
	KCs     []*store.KnowledgeComponent
	Prereqs []*store.Prerequisite
	Items   []*store.LearningItem
}

// Validate runs the structural DAG checks plus item referential
// integrity.
func (c *Curriculum) Validate() error {
	if err := kcgraph.Validate(c.KCs, c.Prereqs); err != nil {
		return err
	}
	ids := make(map[store.ID]bool, len(c.KCs))
	for _, kc := range c.KCs {
		ids[kc.ID] = true
	}
	for _, item := range c.Items {
		if !ids[item.KCID] {
			return fmt.Errorf("item %q references nonexistent kc %q", item.ID, item.KCID)
		}
		if item.Discrimination <= 0 {
			return fmt.Errorf("item %q: discrimination must be > 0, got %f", item.ID, item.Discrimination)
		}
	}
	return nil
}

// SeedStore validates the curriculum and writes it through the store.
func (c *Curriculum) SeedStore(ctx context.Context, s *store.Store) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.SaveCurriculum(ctx, c.KCs, c.Prereqs, c.Items)
}

// SeedMem loads the curriculum into an in-memory repo.
func (c *Curriculum) SeedMem(m *store.MemRepo) error {
	if err := c.Validate(); err != nil {
		return err
	}
	byKC := make(map[store.ID][]*store.Prerequisite)
	for _, p := range c.Prereqs {
		byKC[p.KCID] = append(byKC[p.KCID], p)
	}
	for _, kc := range c.KCs {
		m.PutKC(kc, byKC[kc.ID]...)
	}
	for _, item := range c.Items {
		m.PutItem(item)
	}
	return nil
}

// Demo returns a six-KC arithmetic curriculum with a prerequisite
// chain and a difficulty spread of items per KC.
func Demo() *Curriculum {
	kc := func(id, name string, tier int) *store.KnowledgeComponent {
		return &store.KnowledgeComponent{ID: store.ID(id), Name: name, Domain: "arithmetic", Tier: tier}
	}
	req := func(kcID, prereqID string) *store.Prerequisite {
		return &store.Prerequisite{KCID: store.ID(kcID), PrereqID: store.ID(prereqID), Required: true}
	}
	item := func(id, kcID, prompt string, b, a float64) *store.LearningItem {
		return &store.LearningItem{ID: store.ID(id), KCID: store.ID(kcID), Prompt: prompt, Difficulty: b, Discrimination: a}
	}

	return &Curriculum{
		KCs: []*store.KnowledgeComponent{
			kc("counting", "Counting & Number Sense", 1),
			kc("addition", "Addition", 1),
			kc("subtraction", "Subtraction", 2),
			kc("multiplication", "Multiplication", 2),
			kc("division", "Division", 3),
			kc("fractions", "Fractions", 3),
		},
		Prereqs: []*store.Prerequisite{
			req("subtraction", "addition"),
			req("multiplication", "addition"),
			req("division", "multiplication"),
			req("fractions", "division"),
			req("fractions", "multiplication"),
		},
		Items: []*store.LearningItem{
			item("counting-1", "counting", "How many apples: 3 + the picture shows 4 more?", -1.5, 1.0),
			item("counting-2", "counting", "Which number comes after 17?", -1.0, 1.2),
			item("counting-3", "counting", "Order 42, 24, 40 from smallest to largest.", -0.4, 0.9),
			item("addition-1", "addition", "7 + 5 = ?", -1.0, 1.0),
			item("addition-2", "addition", "28 + 14 = ?", -0.3, 1.1),
			item("addition-3", "addition", "156 + 287 = ?", 0.4, 1.3),
			item("subtraction-1", "subtraction", "12 - 5 = ?", -0.8, 1.0),
			item("subtraction-2", "subtraction", "41 - 17 = ?", 0.0, 1.2),
			item("subtraction-3", "subtraction", "300 - 126 = ?", 0.6, 1.2),
			item("multiplication-1", "multiplication", "6 x 4 = ?", -0.5, 1.1),
			item("multiplication-2", "multiplication", "12 x 8 = ?", 0.3, 1.3),
			item("multiplication-3", "multiplication", "23 x 15 = ?", 1.0, 1.4),
			item("division-1", "division", "24 / 6 = ?", 0.0, 1.1),
			item("division-2", "division", "144 / 12 = ?", 0.6, 1.2),
			item("division-3", "division", "221 / 13 = ?", 1.3, 1.4),
			item("fractions-1", "fractions", "Which is larger: 1/3 or 1/4?", 0.2, 1.0),
			item("fractions-2", "fractions", "1/2 + 1/4 = ?", 0.8, 1.2),
			item("fractions-3", "fractions", "3/4 of 48 = ?", 1.4, 1.3),
		},
	}
}
