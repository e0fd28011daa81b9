package selector

import "github.com/abhisek/skilltrace/internal/fsrs"

// Config controls item selection and the outcome-to-rating mapping.
type Config struct {
	// OptimalDifficultyTarget is the success probability selection
	// aims for (the zone of proximal development).
	OptimalDifficultyTarget float64 `yaml:"optimal_difficulty_target"`

	// DiscriminationWeight rewards more discriminating items in the
	// exploitation score.
	DiscriminationWeight float64 `yaml:"discrimination_weight"`

	// ExplorationRate is the probability of returning a uniformly
	// random candidate instead of the best-scoring one.
	ExplorationRate float64 `yaml:"exploration_rate"`

	// FreshnessWindow excludes items seen in the learner's last N
	// interactions for the KC.
	FreshnessWindow int `yaml:"freshness_window"`

	// SessionRetries bounds the per-slot attempts at KC/item
	// diversification when building a session.
	SessionRetries int `yaml:"session_retries"`

	// EasyUnderMs and GoodUnderMs are the response-time cutoffs used
	// when deriving a review rating from a correct answer.
	EasyUnderMs int `yaml:"easy_under_ms"`
	GoodUnderMs int `yaml:"good_under_ms"`
}

// DefaultConfig returns the recommended selection settings.
func DefaultConfig() Config {
	return Config{
		OptimalDifficultyTarget: 0.6,
		DiscriminationWeight:    0.1,
		ExplorationRate:         0.10,
		FreshnessWindow:         10,
		SessionRetries:          10,
		EasyUnderMs:             10_000,
		GoodUnderMs:             20_000,
	}
}

// RateOutcome maps one graded answer to an FSRS rating. Incorrect is
// always Again; a correct answer grades by effort: hint usage or a
// slow response reads as Hard, a quick response as Easy.
func (c Config) RateOutcome(correct, hintUsed bool, responseTimeMs int) fsrs.Rating {
	if !correct {
		return fsrs.Again
	}
	if hintUsed {
		return fsrs.Hard
	}
	switch {
	case responseTimeMs < c.EasyUnderMs:
		return fsrs.Easy
	case responseTimeMs < c.GoodUnderMs:
		return fsrs.Good
	default:
		return fsrs.Hard
	}
}
