// Package engine is the public façade of the adaptive-learning
// decision engine. It wires the mastery tracer, review scheduler, item
// calibrator and content selector over a single persistence port and
// exposes the operations external callers need.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/skilltrace/internal/bkt"
	"github.com/abhisek/skilltrace/internal/fsrs"
	"github.com/abhisek/skilltrace/internal/irt"
	"github.com/abhisek/skilltrace/internal/logger"
	"github.com/abhisek/skilltrace/internal/selector"
	"github.com/abhisek/skilltrace/internal/store"
)

// Engine composes the three learner models behind one surface.
// Engines are stateless between calls; all durable state lives behind
// the Repo, so multiple engines with different configs can share a
// process.
type Engine struct {
	repo   store.Repo
	tracer *bkt.Tracer
	sched  *fsrs.Scheduler
	cal    *irt.Calibrator
	sel    *selector.Selector
	cfg    Config
	log    *logger.Logger
	now    func() time.Time
}

// New builds an engine over the given persistence port. A nil log
// disables logging.
func New(repo store.Repo, cfg Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	model, err := fsrs.NewModel(cfg.FSRSWeights, cfg.TargetRetention)
	if err != nil {
		return nil, err
	}

	tracer := bkt.New(repo, cfg.BKT, cfg.MasteryThreshold)
	sched := fsrs.NewScheduler(repo, model)
	cal := irt.New(repo, cfg.Calibration)
	sel := selector.New(repo, tracer, sched, cal, cfg.Selection)

	return &Engine{
		repo:   repo,
		tracer: tracer,
		sched:  sched,
		cal:    cal,
		sel:    sel,
		cfg:    cfg,
		log:    log.With("component", "engine"),
		now:    time.Now,
	}, nil
}

// SetClock overrides the time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Selector exposes the underlying content selector, mainly for tests
// that need to pin its randomness or clock.
func (e *Engine) Selector() *selector.Selector {
	return e.sel
}

// NextItem returns the next item for the learner, optionally pinned to
// one KC. (nil, nil) means nothing is eligible right now.
func (e *Engine) NextItem(ctx context.Context, learner store.ID, kc *store.ID) (*selector.Selection, error) {
	sel, err := e.sel.NextItem(ctx, learner, kc)
	if err != nil {
		return nil, err
	}
	if sel != nil {
		e.log.Debug("selected item",
			"learner_id", learner,
			"kc_id", sel.KC.ID,
			"item_id", sel.Item.ID,
			"reason", sel.Reason,
			"predicted_p_correct", sel.PredictedPCorrect,
		)
	}
	return sel, nil
}

// SubmitAnswer records one graded answer and returns the full model
// update. This is the single write path for answers.
func (e *Engine) SubmitAnswer(ctx context.Context, a selector.Answer) (*selector.AnswerResult, error) {
	res, err := e.sel.RecordAnswer(ctx, a)
	if err != nil {
		return nil, err
	}
	e.log.Info("answer recorded",
		"learner_id", a.LearnerID,
		"kc_id", a.KCID,
		"item_id", a.ItemID,
		"correct", a.Correct,
		"rating", res.Rating.String(),
		"p_mastery", res.PMasteryAfter,
		"next_review", res.NextReviewAt,
	)
	return res, nil
}

// CreateSession builds an ordered multi-item practice session.
func (e *Engine) CreateSession(ctx context.Context, learner store.ID, targetItems int) ([]*selector.Selection, error) {
	session, err := e.sel.BuildSession(ctx, learner, targetItems)
	if err != nil {
		return nil, err
	}
	e.log.Debug("session built", "learner_id", learner, "requested", targetItems, "filled", len(session))
	return session, nil
}

// KCOverview is one row of a learner's mastery overview.
type KCOverview struct {
	KCID          store.ID
	Name          string
	PMastery      float64
	Status        store.Status
	Accuracy      float64
	TotalAttempts int
	Retention     float64
	NextReviewAt  *time.Time
	MasteredAt    *time.Time
}

// Overview aggregates every skill state the learner has.
type Overview struct {
	KCs          []KCOverview
	Tracked      int
	Mastered     int
	MeanPMastery float64
	Theta        float64
}

// MasteryOverview returns the learner's full progress picture.
func (e *Engine) MasteryOverview(ctx context.Context, learner store.ID) (*Overview, error) {
	states, err := e.repo.SkillStates(ctx, learner)
	if err != nil {
		return nil, err
	}

	ov := &Overview{}
	now := e.now()
	var sum float64
	for _, st := range states {
		name := string(st.KCID)
		if kc, err := e.repo.KC(ctx, st.KCID); err == nil {
			name = kc.Name
		}
		var retention float64
		if st.LastReviewedAt != nil {
			retention = fsrs.Retrievability(fsrs.ElapsedDays(*st.LastReviewedAt, now), st.Stability)
		}
		ov.KCs = append(ov.KCs, KCOverview{
			KCID:          st.KCID,
			Name:          name,
			PMastery:      st.PMastery,
			Status:        st.Status,
			Accuracy:      st.Accuracy(),
			TotalAttempts: st.TotalAttempts,
			Retention:     retention,
			NextReviewAt:  st.NextReviewAt,
			MasteredAt:    st.MasteredAt,
		})
		sum += st.PMastery
		if st.Status == store.StatusMastered {
			ov.Mastered++
		}
	}
	ov.Tracked = len(states)
	if ov.Tracked > 0 {
		ov.MeanPMastery = sum / float64(ov.Tracked)
	}
	theta, err := e.cal.EstimateAbility(ctx, learner, nil)
	if err != nil {
		return nil, err
	}
	ov.Theta = theta

	sort.Slice(ov.KCs, func(i, j int) bool { return ov.KCs[i].KCID < ov.KCs[j].KCID })
	return ov, nil
}

// PathEntry is one step of the learner's recommended path.
type PathEntry struct {
	KCID     store.ID
	Name     string
	Reason   selector.Reason
	Priority float64
	PMastery float64
}

// LearningPath returns the ordered list of KCs the learner should work
// through: due reviews, then in-progress skills weakest first, then
// newly unlocked topics.
func (e *Engine) LearningPath(ctx context.Context, learner store.ID) ([]PathEntry, error) {
	candidates, err := e.sel.KCCandidates(ctx, learner)
	if err != nil {
		return nil, err
	}
	path := make([]PathEntry, 0, len(candidates))
	for _, c := range candidates {
		name := string(c.KCID)
		if kc, err := e.repo.KC(ctx, c.KCID); err == nil {
			name = kc.Name
		}
		path = append(path, PathEntry{
			KCID:     c.KCID,
			Name:     name,
			Reason:   c.Reason,
			Priority: c.Priority,
			PMastery: c.PMastery,
		})
	}
	return path, nil
}

// Schedule is a learner's review outlook.
type Schedule struct {
	DueNow        int
	Due           []fsrs.DueReview
	Upcoming      []fsrs.UpcomingReview
	TotalUpcoming int
}

// ReviewSchedule returns what is due now and what falls due within the
// next daysAhead days.
func (e *Engine) ReviewSchedule(ctx context.Context, learner store.ID, daysAhead int) (*Schedule, error) {
	due, err := e.sched.DueReviews(ctx, learner, time.Time{})
	if err != nil {
		return nil, err
	}
	upcoming, err := e.sched.UpcomingReviews(ctx, learner, daysAhead)
	if err != nil {
		return nil, err
	}
	return &Schedule{
		DueNow:        len(due),
		Due:           due,
		Upcoming:      upcoming,
		TotalUpcoming: len(upcoming),
	}, nil
}

// CalibrateItem refits one item's IRT parameters.
func (e *Engine) CalibrateItem(ctx context.Context, item store.ID) (*irt.Result, error) {
	res, err := e.cal.CalibrateItem(ctx, item)
	if err != nil {
		return nil, err
	}
	if res.Calibrated {
		e.log.Info("item calibrated",
			"item_id", item,
			"difficulty", res.Difficulty,
			"discrimination", res.Discrimination,
			"sample_size", res.SampleSize,
			"converged", res.Converged,
		)
	} else {
		e.log.Debug("item left uncalibrated", "item_id", item, "sample_size", res.SampleSize)
	}
	return res, nil
}

// CalibrateAll recalibrates every item with enough responses. Intended
// for a periodic job, not the answer path.
func (e *Engine) CalibrateAll(ctx context.Context, minResponses int) (*irt.BatchResult, error) {
	batch, err := e.cal.CalibrateAll(ctx, minResponses)
	if err != nil {
		return nil, err
	}
	e.log.Info("batch calibration finished",
		"calibrated", len(batch.Results),
		"failed", len(batch.Failures),
	)
	for id, ferr := range batch.Failures {
		e.log.Warn("item calibration failed", "item_id", id, "error", ferr)
	}
	return batch, nil
}

// InitializeLearnerKCs creates skill states for every entry-tier KC
// the learner does not have yet, and returns how many were created.
// Safe to call repeatedly.
func (e *Engine) InitializeLearnerKCs(ctx context.Context, learner store.ID) (int, error) {
	kcs, err := e.repo.KCs(ctx, store.KCFilter{Tier: 1})
	if err != nil {
		return 0, err
	}

	created := 0
	for _, kc := range kcs {
		existing, err := e.repo.SkillState(ctx, learner, kc.ID)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		if _, err := e.tracer.Initialize(ctx, learner, kc.ID, nil); err != nil {
			return created, err
		}
		created++
	}
	e.log.Info("learner initialized", "learner_id", learner, "new_kcs", created)
	return created, nil
}

// EstimateAbility returns the learner's theta on the IRT logit scale.
func (e *Engine) EstimateAbility(ctx context.Context, learner store.ID) (float64, error) {
	return e.cal.EstimateAbility(ctx, learner, nil)
}
