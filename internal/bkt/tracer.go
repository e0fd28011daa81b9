// Package bkt estimates per-(learner, KC) mastery with Bayesian
// Knowledge Tracing: a two-state hidden Markov model updated from each
// observed answer.
package bkt

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/skilltrace/internal/store"
)

// epsilon guards the posterior denominators so degenerate parameter
// combinations still yield a finite probability.
const epsilon = 1e-9

// Tracer maintains mastery probabilities through the persistence port.
type Tracer struct {
	repo      store.Repo
	defaults  Params
	threshold float64 // mastery threshold, typically 0.95
	now       func() time.Time
}

// New creates a Tracer. threshold is the p_mastery at which a skill
// counts as mastered.
func New(repo store.Repo, defaults Params, threshold float64) *Tracer {
	return &Tracer{
		repo:      repo,
		defaults:  defaults,
		threshold: threshold,
		now:       time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (t *Tracer) SetClock(now func() time.Time) {
	t.now = now
}

// Snapshot is a read-only view of a skill state's mastery fields.
type Snapshot struct {
	PMastery      float64
	Status        store.Status
	TotalAttempts int
	CorrectCount  int
	MasteredAt    *time.Time
}

// Initialize creates the skill state for (learner, kc) with the given
// parameters, or the tracer defaults when params is nil. If the state
// already exists it is returned unchanged, so repeated initialization
// never resets progress.
func (t *Tracer) Initialize(ctx context.Context, learner, kc store.ID, params *Params) (*store.SkillState, error) {
	existing, err := t.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	p := t.defaults
	if params != nil {
		p = *params
	}

	state := &store.SkillState{
		LearnerID:  learner,
		KCID:       kc,
		PMastery:   p.PInit,
		PInit:      p.PInit,
		PLearn:     p.PLearn,
		PSlip:      p.PSlip,
		PGuess:     p.PGuess,
		Stability:  1.0, // neutral memory state until the first review
		Difficulty: 5.0,
		Status:     store.StatusAvailable,
		CreatedAt:  t.now(),
	}
	if err := t.repo.UpsertSkillState(ctx, state); err != nil {
		return nil, fmt.Errorf("initialize skill state: %w", err)
	}
	return state, nil
}

// UpdateMastery applies the Bayesian posterior update for one observed
// answer, then the learning-transition step, and persists the result.
// A missing state is lazily initialized first. Returns the new
// p_mastery.
func (t *Tracer) UpdateMastery(ctx context.Context, learner, kc store.ID, correct bool) (float64, error) {
	state, err := t.ensure(ctx, learner, kc)
	if err != nil {
		return 0, err
	}

	state.PMastery = Posterior(state.PMastery, Params{
		PInit:  state.PInit,
		PLearn: state.PLearn,
		PSlip:  state.PSlip,
		PGuess: state.PGuess,
	}, correct)

	t.transitionStatus(state)

	if err := t.repo.UpsertSkillState(ctx, state); err != nil {
		return 0, fmt.Errorf("update mastery: %w", err)
	}
	return state.PMastery, nil
}

// Posterior computes the post-answer mastery probability: Bayes' rule
// on the observation, then the learning transition. The transition is
// applied after every opportunity, correct or not — any attempt is
// assumed to carry some learning. Result is clamped to [0, 1].
func Posterior(pMastery float64, p Params, correct bool) float64 {
	var post float64
	if correct {
		num := pMastery * (1 - p.PSlip)
		den := num + (1-pMastery)*p.PGuess
		post = num / clampMin(den, epsilon)
	} else {
		num := pMastery * p.PSlip
		den := num + (1-pMastery)*(1-p.PGuess)
		post = num / clampMin(den, epsilon)
	}

	post = post + (1-post)*p.PLearn
	return clamp01(post)
}

// transitionStatus advances or regresses the status from the new
// p_mastery. Locked states stay locked; unlocking is the selector's
// concern.
func (t *Tracer) transitionStatus(state *store.SkillState) {
	switch {
	case state.Status == store.StatusMastered && state.PMastery < t.threshold:
		state.Status = store.StatusInProgress
	case state.Status != store.StatusMastered && state.Status != store.StatusLocked && state.PMastery >= t.threshold:
		state.Status = store.StatusMastered
		now := t.now()
		state.MasteredAt = &now
	case state.Status == store.StatusAvailable && state.PMastery > state.PInit:
		state.Status = store.StatusInProgress
	}
}

// PredictCorrectness returns the expected P(correct) for the learner's
// next attempt on the KC. With no stored state the tracer defaults are
// used, predicting for a fresh learner.
func (t *Tracer) PredictCorrectness(ctx context.Context, learner, kc store.ID) (float64, error) {
	state, err := t.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return t.defaults.Predict(t.defaults.PInit), nil
	}
	p := Params{PSlip: state.PSlip, PGuess: state.PGuess}
	return p.Predict(state.PMastery), nil
}

// MasteryStatus returns a read-only snapshot, or the default prior
// view if the learner has never touched the KC.
func (t *Tracer) MasteryStatus(ctx context.Context, learner, kc store.ID) (*Snapshot, error) {
	state, err := t.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &Snapshot{
			PMastery: t.defaults.PInit,
			Status:   store.StatusAvailable,
		}, nil
	}
	return &Snapshot{
		PMastery:      state.PMastery,
		Status:        state.Status,
		TotalAttempts: state.TotalAttempts,
		CorrectCount:  state.CorrectCount,
		MasteredAt:    state.MasteredAt,
	}, nil
}

// ensure fetches the state or lazily initializes it with defaults.
func (t *Tracer) ensure(ctx context.Context, learner, kc store.ID) (*store.SkillState, error) {
	state, err := t.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}
	return t.Initialize(ctx, learner, kc, nil)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampMin(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}
