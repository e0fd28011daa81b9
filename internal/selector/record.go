package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/skilltrace/internal/fsrs"
	"github.com/abhisek/skilltrace/internal/store"
)

// Answer is one graded response to a selected item.
type Answer struct {
	LearnerID      store.ID
	ItemID         store.ID
	KCID           store.ID
	Correct        bool
	ResponseValue  string
	ResponseTimeMs int
	HintUsed       bool
	SessionID      string
}

// AnswerResult reports the full effect of recording one answer.
type AnswerResult struct {
	InteractionID  store.ID
	Rating         fsrs.Rating
	PMasteryBefore float64
	PMasteryAfter  float64
	MasteryDelta   float64
	NextReviewAt   time.Time
	Stability      float64
	Difficulty     float64
}

// RecordAnswer is the single state-transition function of the engine.
// It snapshots the pre-update model signals, appends the immutable
// interaction record, then feeds the outcome into the mastery tracer,
// the review scheduler, the skill state counters and the item's
// empirical stats.
//
// Updates for one (learner, KC) pair are serialized: two concurrent
// answers for the same pair apply in order rather than racing on the
// skill state.
func (s *Selector) RecordAnswer(ctx context.Context, a Answer) (*AnswerResult, error) {
	// Item and KC must exist before anything is written; otherwise a
	// mistyped KC id would fabricate a skill state and a permanent
	// interaction for a KC outside the curriculum.
	if _, err := s.repo.Item(ctx, a.ItemID); err != nil {
		return nil, err
	}
	if _, err := s.repo.KC(ctx, a.KCID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(string(a.LearnerID) + "|" + string(a.KCID))
	defer unlock()

	// Pre-update snapshots.
	snap, err := s.tracer.MasteryStatus(ctx, a.LearnerID, a.KCID)
	if err != nil {
		return nil, err
	}
	retBefore, err := s.sched.RetentionRate(ctx, a.LearnerID, a.KCID)
	if err != nil {
		return nil, err
	}
	predicted, err := s.cal.PredictPerformance(ctx, a.LearnerID, a.ItemID)
	if err != nil {
		return nil, err
	}

	interactionID, err := s.repo.AppendInteraction(ctx, &store.Interaction{
		LearnerID:            a.LearnerID,
		KCID:                 a.KCID,
		ItemID:               a.ItemID,
		SessionID:            a.SessionID,
		Correct:              a.Correct,
		ResponseValue:        a.ResponseValue,
		ResponseTimeMs:       a.ResponseTimeMs,
		HintUsed:             a.HintUsed,
		PMasteryBefore:       snap.PMastery,
		RetrievabilityBefore: retBefore,
		PredictedPCorrect:    predicted,
		CreatedAt:            s.now(),
	})
	if err != nil {
		return nil, err
	}

	after, err := s.tracer.UpdateMastery(ctx, a.LearnerID, a.KCID, a.Correct)
	if err != nil {
		return nil, err
	}

	rating := s.cfg.RateOutcome(a.Correct, a.HintUsed, a.ResponseTimeMs)
	sched, err := s.sched.ScheduleReview(ctx, a.LearnerID, a.KCID, rating, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.bumpCounters(ctx, a.LearnerID, a.KCID, a.Correct); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemStats(ctx, a.ItemID, a.Correct, a.ResponseTimeMs); err != nil {
		return nil, err
	}

	return &AnswerResult{
		InteractionID:  interactionID,
		Rating:         rating,
		PMasteryBefore: snap.PMastery,
		PMasteryAfter:  after,
		MasteryDelta:   after - snap.PMastery,
		NextReviewAt:   sched.NextReviewAt,
		Stability:      sched.Stability,
		Difficulty:     sched.Difficulty,
	}, nil
}

func (s *Selector) bumpCounters(ctx context.Context, learner, kc store.ID, correct bool) error {
	state, err := s.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return err
	}
	if state == nil {
		// UpdateMastery created the state inside the same lock; a
		// missing state here means the port dropped a write.
		return fmt.Errorf("skill state vanished for learner %s kc %s", learner, kc)
	}
	state.TotalAttempts++
	if correct {
		state.CorrectCount++
	}
	return s.repo.UpsertSkillState(ctx, state)
}
