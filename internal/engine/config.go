package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/skilltrace/internal/bkt"
	"github.com/abhisek/skilltrace/internal/fsrs"
	"github.com/abhisek/skilltrace/internal/irt"
	"github.com/abhisek/skilltrace/internal/selector"
)

// Config is the full engine configuration. Every knob has a default;
// a config file only needs the fields it overrides.
type Config struct {
	// MasteryThreshold is the p_mastery at which a skill counts as
	// mastered.
	MasteryThreshold float64 `yaml:"mastery_threshold"`

	// TargetRetention is the recall probability reviews are scheduled
	// to intercept.
	TargetRetention float64 `yaml:"target_retention"`

	// BKT holds the default knowledge-tracing priors for new skills.
	BKT bkt.Params `yaml:"bkt"`

	// FSRSWeights is the 17-element spaced-repetition parameter
	// vector.
	FSRSWeights fsrs.Weights `yaml:"fsrs_weights"`

	// Selection controls item choice and the outcome-to-rating
	// mapping.
	Selection selector.Config `yaml:"selection"`

	// Calibration controls IRT item fitting.
	Calibration irt.Config `yaml:"calibration"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		MasteryThreshold: 0.95,
		TargetRetention:  0.85,
		BKT:              bkt.DefaultParams(),
		FSRSWeights:      fsrs.DefaultWeights(),
		Selection:        selector.DefaultConfig(),
		Calibration:      irt.DefaultConfig(),
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.MasteryThreshold <= 0 || c.MasteryThreshold > 1 {
		return fmt.Errorf("mastery_threshold must be in (0, 1], got %f", c.MasteryThreshold)
	}
	if c.TargetRetention <= 0 || c.TargetRetention >= 1 {
		return fmt.Errorf("target_retention must be in (0, 1), got %f", c.TargetRetention)
	}
	if c.Selection.ExplorationRate < 0 || c.Selection.ExplorationRate > 1 {
		return fmt.Errorf("exploration_rate must be in [0, 1], got %f", c.Selection.ExplorationRate)
	}
	return c.FSRSWeights.Validate()
}
