package bkt

// Params holds the four Bayesian Knowledge Tracing parameters for a
// skill. They are stored on the skill state at initialization so later
// tuning of the defaults does not rewrite history.
type Params struct {
	PInit  float64 `yaml:"p_init"`  // prior P(known)
	PLearn float64 `yaml:"p_learn"` // P(unknown -> known) per opportunity
	PSlip  float64 `yaml:"p_slip"`  // P(wrong | known)
	PGuess float64 `yaml:"p_guess"` // P(correct | unknown)
}

// DefaultParams returns the standard priors used when a KC has no
// tuned parameters of its own.
func DefaultParams() Params {
	return Params{
		PInit:  0.25,
		PLearn: 0.1,
		PSlip:  0.1,
		PGuess: 0.25,
	}
}

// Predict returns P(correct) for a given mastery probability under
// these parameters.
func (p Params) Predict(pMastery float64) float64 {
	return pMastery*(1-p.PSlip) + (1-pMastery)*p.PGuess
}
