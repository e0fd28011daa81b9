package fsrs

import "fmt"

// Weights is the 17-element FSRS parameter vector.
//
//	w[0..3]   initial stability per rating
//	w[4],w[5] initial difficulty
//	w[6],w[7] difficulty delta and mean reversion
//	w[8..10]  recall stability growth
//	w[11..14] forget stability
//	w[15]     hard penalty
//	w[16]     easy bonus
type Weights [17]float64

// DefaultWeights returns the stock parameter vector. Deployments that
// fit weights to their own review history can override it in config.
func DefaultWeights() Weights {
	return Weights{
		0.4872, 1.4003, 3.7145, 13.8206,
		5.1618, 1.2298, 0.8975, 0.0310,
		1.6474, 0.1367, 1.0461,
		2.1072, 0.0793, 0.3246, 1.5870,
		0.2272, 2.8755,
	}
}

// Validate checks the structural constraints the scheduler relies on.
func (w Weights) Validate() error {
	for i := 0; i < 4; i++ {
		if w[i] <= 0 {
			return fmt.Errorf("fsrs: w[%d] (initial stability) must be > 0, got %f", i, w[i])
		}
	}
	if w[4] < 1 || w[4] > 10 {
		return fmt.Errorf("fsrs: w[4] (initial difficulty) must be in [1, 10], got %f", w[4])
	}
	if w[7] < 0 || w[7] > 1 {
		return fmt.Errorf("fsrs: w[7] (mean reversion weight) must be in [0, 1], got %f", w[7])
	}
	return nil
}
