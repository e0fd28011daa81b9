package irt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/skilltrace/internal/store"
)

// Config controls calibration.
type Config struct {
	// MinResponses is the observation count below which an item is
	// left uncalibrated.
	MinResponses int `yaml:"min_responses"`

	// MaxIterations caps the gradient ascent loop.
	MaxIterations int `yaml:"max_iterations"`

	// ConvergenceThreshold stops iteration once both parameter deltas
	// fall below it.
	ConvergenceThreshold float64 `yaml:"convergence_threshold"`

	// LearningRate scales each gradient step.
	LearningRate float64 `yaml:"learning_rate"`

	// Concurrency bounds the batch calibration fan-out.
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the recommended calibration settings.
func DefaultConfig() Config {
	return Config{
		MinResponses:         10,
		MaxIterations:        100,
		ConvergenceThreshold: 1e-3,
		LearningRate:         0.1,
		Concurrency:          4,
	}
}

// Calibrator estimates abilities and fits item parameters through the
// persistence port.
type Calibrator struct {
	repo store.Repo
	cfg  Config
}

// New creates a Calibrator.
func New(repo store.Repo, cfg Config) *Calibrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Calibrator{repo: repo, cfg: cfg}
}

// EstimateAbility returns the learner's theta: the logit of their mean
// mastery probability, optionally scoped to one KC. A learner with no
// skill states sits at 0, the population average.
func (c *Calibrator) EstimateAbility(ctx context.Context, learner store.ID, kc *store.ID) (float64, error) {
	states, err := c.repo.SkillStates(ctx, learner)
	if err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for _, st := range states {
		if kc != nil && st.KCID != *kc {
			continue
		}
		sum += st.PMastery
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return Logit(sum / float64(n)), nil
}

// Result reports one item calibration. Calibrated is false when the
// item had fewer than MinResponses observations; the parameters are
// then returned unchanged. That is a normal outcome, not an error.
type Result struct {
	ItemID            store.ID
	OldDifficulty     float64
	OldDiscrimination float64
	Difficulty        float64
	Discrimination    float64
	SampleSize        int
	Calibrated        bool
	Converged         bool
}

// CalibrateItem refits (b, a) for one item from its full interaction
// history, using each responder's current ability estimate.
func (c *Calibrator) CalibrateItem(ctx context.Context, itemID store.ID) (*Result, error) {
	item, err := c.repo.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}

	recs, err := c.repo.InteractionsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ItemID:            itemID,
		OldDifficulty:     item.Difficulty,
		OldDiscrimination: item.Discrimination,
		Difficulty:        item.Difficulty,
		Discrimination:    item.Discrimination,
		SampleSize:        len(recs),
	}
	if len(recs) < c.cfg.MinResponses {
		return res, nil
	}

	responses, err := c.responses(ctx, recs)
	if err != nil {
		return nil, err
	}

	b, a, converged := Fit(item.Difficulty, item.Discrimination, responses, c.cfg)
	res.Difficulty = b
	res.Discrimination = a
	res.Calibrated = true
	res.Converged = converged

	if err := c.repo.UpdateItemParameters(ctx, itemID, b, a, len(recs)); err != nil {
		return nil, fmt.Errorf("persist calibration: %w", err)
	}
	return res, nil
}

// responses converts interactions to fit observations, computing each
// distinct learner's theta once.
func (c *Calibrator) responses(ctx context.Context, recs []*store.Interaction) ([]Response, error) {
	thetas := make(map[store.ID]float64)
	out := make([]Response, 0, len(recs))
	for _, rec := range recs {
		theta, ok := thetas[rec.LearnerID]
		if !ok {
			var err error
			theta, err = c.EstimateAbility(ctx, rec.LearnerID, nil)
			if err != nil {
				return nil, err
			}
			thetas[rec.LearnerID] = theta
		}
		out = append(out, Response{Theta: theta, Correct: rec.Correct})
	}
	return out, nil
}

// BatchResult collects per-item outcomes of a calibration run. One
// item's failure never aborts the rest of the batch.
type BatchResult struct {
	Results  []*Result
	Failures map[store.ID]error
}

// CalibrateAll recalibrates every item with at least minResponses
// recorded interactions. minResponses <= 0 falls back to the
// configured minimum. Items are processed with bounded concurrency;
// each operates on its own interaction snapshot.
func (c *Calibrator) CalibrateAll(ctx context.Context, minResponses int) (*BatchResult, error) {
	if minResponses <= 0 {
		minResponses = c.cfg.MinResponses
	}

	ids, err := c.repo.ItemsWithResponses(ctx, minResponses)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Failures: make(map[store.ID]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := c.CalibrateItem(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[id] = err
				return nil
			}
			batch.Results = append(batch.Results, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].ItemID < batch.Results[j].ItemID
	})
	return batch, nil
}

// PredictPerformance returns P(correct) for a (learner, item) pair
// under the 2PL model and the learner's overall ability.
func (c *Calibrator) PredictPerformance(ctx context.Context, learner, itemID store.ID) (float64, error) {
	item, err := c.repo.Item(ctx, itemID)
	if err != nil {
		return 0, err
	}
	theta, err := c.EstimateAbility(ctx, learner, nil)
	if err != nil {
		return 0, err
	}
	return Logistic(theta, item.Difficulty, item.Discrimination), nil
}

// Analysis summarizes an item's observed behavior.
type Analysis struct {
	ItemID           store.ID
	PValue           float64 // empirical correct rate
	ResponseCount    int
	AbilityMean      float64
	AbilityMin       float64
	AbilityMax       float64
	NeedsCalibration bool
}

// ItemAnalysis computes the empirical P-value and responder ability
// distribution, and flags items whose response volume has outgrown
// their last calibration.
func (c *Calibrator) ItemAnalysis(ctx context.Context, itemID store.ID) (*Analysis, error) {
	item, err := c.repo.Item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	recs, err := c.repo.InteractionsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	an := &Analysis{
		ItemID:        itemID,
		ResponseCount: len(recs),
		NeedsCalibration: len(recs) >= c.cfg.MinResponses &&
			len(recs)-item.CalibrationSampleSize >= c.cfg.MinResponses,
	}
	if len(recs) == 0 {
		return an, nil
	}

	correct := 0
	thetas := make(map[store.ID]float64)
	for _, rec := range recs {
		if rec.Correct {
			correct++
		}
		if _, ok := thetas[rec.LearnerID]; !ok {
			theta, err := c.EstimateAbility(ctx, rec.LearnerID, nil)
			if err != nil {
				return nil, err
			}
			thetas[rec.LearnerID] = theta
		}
	}
	an.PValue = float64(correct) / float64(len(recs))

	first := true
	var sum float64
	for _, theta := range thetas {
		sum += theta
		if first || theta < an.AbilityMin {
			an.AbilityMin = theta
		}
		if first || theta > an.AbilityMax {
			an.AbilityMax = theta
		}
		first = false
	}
	an.AbilityMean = sum / float64(len(thetas))
	return an, nil
}
