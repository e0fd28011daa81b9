// Package irt calibrates learning items and estimates learner ability
// with a 2-parameter-logistic Item Response Theory model. Difficulty
// (b) is the ability at which P(correct) = 0.5; discrimination (a)
// controls how sharply the item separates abilities around b.
package irt

import "math"

// Logistic is the 2PL item characteristic curve:
// P(correct | theta) = 1 / (1 + exp(-a * (theta - b))).
func Logistic(theta, b, a float64) float64 {
	return 1 / (1 + math.Exp(-a*(theta-b)))
}

// Logit maps a probability to the ability scale, clamping p to
// [0.01, 0.99] so the transform stays finite.
func Logit(p float64) float64 {
	if p < 0.01 {
		p = 0.01
	}
	if p > 0.99 {
		p = 0.99
	}
	return math.Log(p / (1 - p))
}

// Response is one graded observation of an item: the responder's
// ability at calibration time and whether they answered correctly.
type Response struct {
	Theta   float64
	Correct bool
}

// Fit runs gradient ascent on the 2PL log-likelihood, starting from
// (b, a). Returns the fitted parameters and whether the updates fell
// below the convergence threshold before the iteration cap.
func Fit(b, a float64, responses []Response, cfg Config) (newB, newA float64, converged bool) {
	if len(responses) == 0 {
		return b, a, false
	}
	n := float64(len(responses))

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		var gradB, gradA float64
		for _, r := range responses {
			p := Logistic(r.Theta, b, a)
			y := 0.0
			if r.Correct {
				y = 1.0
			}
			gradB += a * (y - p)
			gradA += (r.Theta - b) * (y - p)
		}
		gradB /= n
		gradA /= n

		deltaB := cfg.LearningRate * gradB
		deltaA := cfg.LearningRate * gradA
		// The likelihood increases as b moves against its gradient
		// sign convention: higher b lowers P(correct), so correct
		// answers push difficulty down.
		b -= deltaB
		a += deltaA
		if a < 0.1 {
			a = 0.1
		}

		if math.Abs(deltaB) < cfg.ConvergenceThreshold && math.Abs(deltaA) < cfg.ConvergenceThreshold {
			return b, a, true
		}
	}
	return b, a, false
}
