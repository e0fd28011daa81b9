package curriculum

import (
	"context"
	"testing"

	"github.com/abhisek/skilltrace/internal/store"
)

func TestDemoCurriculumIsValid(t *testing.T) {
	if err := Demo().Validate(); err != nil {
		t.Fatalf("demo curriculum invalid: %v", err)
	}
}

func TestValidateRejectsDanglingItem(t *testing.T) {
	c := Demo()
	c.Items = append(c.Items, &store.LearningItem{
		ID: "stray", KCID: "no-such-kc", Prompt: "?", Discrimination: 1,
	})
	if err := c.Validate(); err == nil {
		t.Fatal("item referencing an unknown KC accepted")
	}
}

func TestValidateRejectsNonPositiveDiscrimination(t *testing.T) {
	c := Demo()
	c.Items[0].Discrimination = 0
	if err := c.Validate(); err == nil {
		t.Fatal("zero discrimination accepted")
	}
}

func TestValidateRejectsPrerequisiteCycle(t *testing.T) {
	c := Demo()
	c.Prereqs = append(c.Prereqs, &store.Prerequisite{
		KCID: "addition", PrereqID: "fractions", Required: true,
	})
	if err := c.Validate(); err == nil {
		t.Fatal("prerequisite cycle accepted")
	}
}

func TestSeedMem(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemRepo()
	if err := Demo().SeedMem(m); err != nil {
		t.Fatalf("SeedMem: %v", err)
	}

	kcs, err := m.KCs(ctx, store.KCFilter{})
	if err != nil {
		t.Fatalf("KCs: %v", err)
	}
	if len(kcs) != 6 {
		t.Errorf("seeded %d KCs, want 6", len(kcs))
	}

	items, err := m.ItemsForKC(ctx, "counting")
	if err != nil {
		t.Fatalf("ItemsForKC: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("counting has %d items, want 3", len(items))
	}

	edges, err := m.Prerequisites(ctx, "fractions")
	if err != nil {
		t.Fatalf("Prerequisites: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("fractions has %d prerequisites, want 2", len(edges))
	}
}
