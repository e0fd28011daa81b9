// Package fsrs implements the spaced-repetition memory model: an
// exponential forgetting curve governed by a per-skill stability (in
// days) and difficulty (1-10), with a 17-weight parameter vector
// controlling how reviews move both.
package fsrs

import (
	"math"
	"time"
)

// ln(0.9): retrievability is 0.9 after exactly `stability` days.
var ln09 = math.Log(0.9)

const (
	minStability  = 0.001
	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// Model is the pure FSRS math over a weight vector and a target
// retention. It holds no learner state.
type Model struct {
	W               Weights
	TargetRetention float64 // desired recall probability at review time
}

// NewModel builds a model, validating the weights.
func NewModel(w Weights, targetRetention float64) (*Model, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if targetRetention <= 0 || targetRetention >= 1 {
		targetRetention = 0.85
	}
	return &Model{W: w, TargetRetention: targetRetention}, nil
}

// Retrievability computes R(t, S) = exp(ln(0.9) * t / S), clamped to
// [0, 1]. Strictly decreasing in elapsed time, increasing in stability.
func Retrievability(elapsedDays, stability float64) float64 {
	if stability < minStability {
		stability = minStability
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	r := math.Exp(ln09 * elapsedDays / stability)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// InitialStability returns S0(G) from the first four weights.
func (m *Model) InitialStability(r Rating) float64 {
	return clampS(m.W[r-1])
}

// InitialDifficulty returns D0(G) = w[4] - w[5]*(G - 3), clamped.
func (m *Model) InitialDifficulty(r Rating) float64 {
	return clampD(m.W[4] - m.W[5]*float64(r-3))
}

// NextStability computes the post-review stability. Again shrinks the
// memory; Hard, Good and Easy grow it by a factor that is largest when
// retrievability was lowest (the spacing effect) and scaled by the
// hard penalty or easy bonus.
func (m *Model) NextStability(stability float64, r Rating, retrievability float64) float64 {
	if r == Again {
		return m.forgetStability(stability, retrievability)
	}
	return m.recallStability(stability, r, retrievability)
}

func (m *Model) recallStability(s float64, r Rating, ret float64) float64 {
	hardPenalty := 1.0
	if r == Hard {
		hardPenalty = m.W[15]
	}
	easyBonus := 1.0
	if r == Easy {
		easyBonus = m.W[16]
	}
	factor := 1 + math.Exp(m.W[8])*
		math.Pow(s, -m.W[9])*
		(math.Exp((1-ret)*m.W[10])-1)*
		hardPenalty*easyBonus
	return clampS(s * factor)
}

func (m *Model) forgetStability(s, ret float64) float64 {
	next := m.W[11] *
		(math.Pow(s+1, m.W[13]) - 1) *
		math.Exp((1-ret)*m.W[14]) *
		math.Pow(s, -m.W[12])
	// Forgetting never leaves the memory stronger than it was.
	return clampS(math.Min(next, s))
}

// NextDifficulty applies the signed rating delta and mean reversion
// toward 5, clamped to [1, 10]. With current <= 0 (no prior review)
// the initial difficulty formula is used instead.
func (m *Model) NextDifficulty(current float64, r Rating) float64 {
	if current <= 0 {
		return m.InitialDifficulty(r)
	}
	d := current - m.W[6]*float64(r-3)
	d += m.W[7] * (5 - d)
	return clampD(d)
}

// IntervalDays returns the next review interval for a stability:
// round(S * ln(target) / ln(0.9)), at least one day.
func (m *Model) IntervalDays(stability float64) int {
	ivl := stability * math.Log(m.TargetRetention) / ln09
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	return days
}

// ElapsedDays is the fractional day count between two instants,
// floored at zero.
func ElapsedDays(from, to time.Time) float64 {
	d := to.Sub(from).Hours() / 24.0
	if d < 0 {
		return 0
	}
	return d
}

func clampS(s float64) float64 {
	return math.Max(s, minStability)
}

func clampD(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}
