package fsrs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/skilltrace/internal/store"
)

// Scheduler applies the memory model to persisted skill states and
// decides when each KC should be reviewed next.
type Scheduler struct {
	repo  store.Repo
	model *Model
	now   func() time.Time
}

// NewScheduler creates a scheduler over the given repo and model.
func NewScheduler(repo store.Repo, model *Model) *Scheduler {
	return &Scheduler{repo: repo, model: model, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Model exposes the underlying pure math, used by the selector for
// read-only retrievability checks.
func (s *Scheduler) Model() *Model {
	return s.model
}

// ScheduleResult reports the outcome of one scheduled review.
type ScheduleResult struct {
	Stability      float64
	Difficulty     float64
	Retrievability float64 // as it was at review time
	IntervalDays   int
	NextReviewAt   time.Time
}

// ScheduleReview folds one review into the skill state's memory model
// and computes the next review date. A missing state is created, so
// the first review of a KC is also its memory initialization. The
// zero reviewedAt means "now".
func (s *Scheduler) ScheduleReview(ctx context.Context, learner, kc store.ID, rating Rating, reviewedAt time.Time) (*ScheduleResult, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("fsrs: invalid rating %d", int(rating))
	}
	if reviewedAt.IsZero() {
		reviewedAt = s.now()
	}

	state, err := s.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &store.SkillState{
			LearnerID: learner,
			KCID:      kc,
			Status:    store.StatusInProgress,
			CreatedAt: reviewedAt,
		}
	}

	var ret float64
	if state.LastReviewedAt == nil {
		// First review: table lookup, no forgetting has happened yet.
		ret = 1.0
		state.Stability = s.model.InitialStability(rating)
		state.Difficulty = s.model.InitialDifficulty(rating)
	} else {
		elapsed := ElapsedDays(*state.LastReviewedAt, reviewedAt)
		ret = Retrievability(elapsed, state.Stability)
		state.Stability = s.model.NextStability(state.Stability, rating, ret)
		state.Difficulty = s.model.NextDifficulty(state.Difficulty, rating)
	}

	interval := s.model.IntervalDays(state.Stability)
	next := reviewedAt.AddDate(0, 0, interval)
	state.LastReviewedAt = &reviewedAt
	state.NextReviewAt = &next

	if err := s.repo.UpsertSkillState(ctx, state); err != nil {
		return nil, fmt.Errorf("schedule review: %w", err)
	}

	return &ScheduleResult{
		Stability:      state.Stability,
		Difficulty:     state.Difficulty,
		Retrievability: ret,
		IntervalDays:   interval,
		NextReviewAt:   next,
	}, nil
}

// DueReview is one KC due for review, with its selection priority.
type DueReview struct {
	KCID           store.ID
	NextReviewAt   time.Time
	OverdueDays    float64
	Retrievability float64
	Priority       float64 // overdueDays * (1 - retrievability)
}

// DueReviews returns the learner's KCs with a review date at or before
// asOf, most urgent first. Only in-progress and mastered skills are
// eligible; the zero asOf means "now".
func (s *Scheduler) DueReviews(ctx context.Context, learner store.ID, asOf time.Time) ([]DueReview, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	states, err := s.repo.SkillStates(ctx, learner)
	if err != nil {
		return nil, err
	}

	var due []DueReview
	for _, st := range states {
		if st.Status != store.StatusInProgress && st.Status != store.StatusMastered {
			continue
		}
		if st.NextReviewAt == nil || st.NextReviewAt.After(asOf) {
			continue
		}
		overdue := ElapsedDays(*st.NextReviewAt, asOf)
		var ret float64
		if st.LastReviewedAt != nil {
			ret = Retrievability(ElapsedDays(*st.LastReviewedAt, asOf), st.Stability)
		}
		due = append(due, DueReview{
			KCID:           st.KCID,
			NextReviewAt:   *st.NextReviewAt,
			OverdueDays:    overdue,
			Retrievability: ret,
			Priority:       overdue * (1 - ret),
		})
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].KCID < due[j].KCID
	})
	return due, nil
}

// UpcomingReview is one KC with a review scheduled in the future.
type UpcomingReview struct {
	KCID         store.ID
	NextReviewAt time.Time
	Stability    float64
}

// UpcomingReviews returns KCs whose next review falls within the next
// daysAhead days, soonest first.
func (s *Scheduler) UpcomingReviews(ctx context.Context, learner store.ID, daysAhead int) ([]UpcomingReview, error) {
	now := s.now()
	horizon := now.AddDate(0, 0, daysAhead)

	states, err := s.repo.SkillStates(ctx, learner)
	if err != nil {
		return nil, err
	}

	var upcoming []UpcomingReview
	for _, st := range states {
		if st.NextReviewAt == nil {
			continue
		}
		if !st.NextReviewAt.After(now) || st.NextReviewAt.After(horizon) {
			continue
		}
		upcoming = append(upcoming, UpcomingReview{
			KCID:         st.KCID,
			NextReviewAt: *st.NextReviewAt,
			Stability:    st.Stability,
		})
	}

	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].NextReviewAt.Equal(upcoming[j].NextReviewAt) {
			return upcoming[i].NextReviewAt.Before(upcoming[j].NextReviewAt)
		}
		return upcoming[i].KCID < upcoming[j].KCID
	})
	return upcoming, nil
}

// RetentionRate returns the learner's current retrievability for a KC,
// or 0 if it has never been reviewed.
func (s *Scheduler) RetentionRate(ctx context.Context, learner, kc store.ID) (float64, error) {
	state, err := s.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return 0, err
	}
	if state == nil || state.LastReviewedAt == nil {
		return 0, nil
	}
	elapsed := ElapsedDays(*state.LastReviewedAt, s.now())
	return Retrievability(elapsed, state.Stability), nil
}
