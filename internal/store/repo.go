package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a learner, KC or item referenced by ID
// does not exist. A missing SkillState is not an error; SkillState
// returns (nil, nil) so callers can lazily initialize.
var ErrNotFound = errors.New("store: not found")

// Repo is the persistence port the engine is built against. The gorm
// implementation backs real deployments; MemRepo backs tests and the
// demo CLI.
type Repo interface {
	// SkillState returns the state for (learner, kc), or (nil, nil) if
	// the learner has never touched the KC.
	SkillState(ctx context.Context, learner, kc ID) (*SkillState, error)

	// SkillStates returns all states for a learner.
	SkillStates(ctx context.Context, learner ID) ([]*SkillState, error)

	// UpsertSkillState inserts or fully replaces a skill state.
	UpsertSkillState(ctx context.Context, state *SkillState) error

	// AppendInteraction stores an immutable interaction record,
	// assigning an ID if the record has none.
	AppendInteraction(ctx context.Context, rec *Interaction) (ID, error)

	// RecentInteractions returns the learner's newest interactions for
	// a KC, most recent first, up to limit.
	RecentInteractions(ctx context.Context, learner, kc ID, limit int) ([]*Interaction, error)

	// InteractionsForItem returns every interaction recorded against an
	// item, oldest first.
	InteractionsForItem(ctx context.Context, item ID) ([]*Interaction, error)

	// ItemsWithResponses returns IDs of items with at least min
	// recorded interactions.
	ItemsWithResponses(ctx context.Context, min int) ([]ID, error)

	// Item returns a learning item, or ErrNotFound.
	Item(ctx context.Context, id ID) (*LearningItem, error)

	// ItemsForKC returns all items mapped to a KC.
	ItemsForKC(ctx context.Context, kc ID) ([]*LearningItem, error)

	// UpdateItemStats folds one answer into the item's running
	// empirical aggregates.
	UpdateItemStats(ctx context.Context, id ID, correct bool, responseTimeMs int) error

	// UpdateItemParameters rewrites the item's calibrated IRT
	// parameters and sample size.
	UpdateItemParameters(ctx context.Context, id ID, difficulty, discrimination float64, sampleSize int) error

	// KC returns a knowledge component, or ErrNotFound.
	KC(ctx context.Context, id ID) (*KnowledgeComponent, error)

	// KCs lists knowledge components matching the filter.
	KCs(ctx context.Context, f KCFilter) ([]*KnowledgeComponent, error)

	// Prerequisites returns the prerequisite edges for a KC.
	Prerequisites(ctx context.Context, kc ID) ([]*Prerequisite, error)
}
