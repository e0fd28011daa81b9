package irt

import (
	"math"
	"testing"
)

func TestLogisticAtDifficulty(t *testing.T) {
	// P(correct) = 0.5 exactly when theta = b, for any discrimination.
	for _, a := range []float64{0.5, 1.0, 2.5} {
		for _, b := range []float64{-2, 0, 1.3} {
			if got := Logistic(b, b, a); math.Abs(got-0.5) > 1e-9 {
				t.Errorf("Logistic(b=%v, a=%v) at theta=b = %.6f, want 0.5", b, a, got)
			}
		}
	}
}

func TestLogisticIncreasesWithAbility(t *testing.T) {
	prev := -0.1
	for _, theta := range []float64{-3, -1, 0, 1, 3} {
		p := Logistic(theta, 0, 1)
		if p <= prev {
			t.Errorf("Logistic(%.0f, 0, 1) = %.4f not above the value at lower theta %.4f", theta, p, prev)
		}
		if p <= 0 || p >= 1 {
			t.Errorf("Logistic(%.0f, 0, 1) = %.4f outside (0,1)", theta, p)
		}
		prev = p
	}
}

func TestLogisticDiscriminationSharpens(t *testing.T) {
	// Above b, a steeper item gives a higher P(correct); below b, lower.
	flat := Logistic(1, 0, 0.5)
	steep := Logistic(1, 0, 2.0)
	if steep <= flat {
		t.Errorf("above b: steep %.4f should exceed flat %.4f", steep, flat)
	}
	flat = Logistic(-1, 0, 0.5)
	steep = Logistic(-1, 0, 2.0)
	if steep >= flat {
		t.Errorf("below b: steep %.4f should be under flat %.4f", steep, flat)
	}
}

func TestLogitClampsAndInverts(t *testing.T) {
	if got := Logit(0.5); math.Abs(got) > 1e-9 {
		t.Errorf("Logit(0.5) = %.6f, want 0", got)
	}
	// Round trip through the standard logistic.
	for _, p := range []float64{0.02, 0.3, 0.7, 0.95} {
		back := Logistic(Logit(p), 0, 1)
		if math.Abs(back-p) > 1e-9 {
			t.Errorf("Logistic(Logit(%.2f)) = %.6f", p, back)
		}
	}
	if math.IsInf(Logit(0), 0) || math.IsInf(Logit(1), 0) {
		t.Error("Logit must clamp away from the asymptotes")
	}
	if Logit(0) != Logit(0.01) || Logit(1) != Logit(0.99) {
		t.Error("Logit clamp bounds should be [0.01, 0.99]")
	}
}

// syntheticResponses builds a response set whose empirical correct
// rates match the 2PL curve at (trueB, trueA) as closely as integer
// counts allow, so the maximum-likelihood fit sits near the true
// parameters.
func syntheticResponses(trueB, trueA float64, perTheta int) []Response {
	var out []Response
	for _, theta := range []float64{-2, -1, 0, 1, 2} {
		nCorrect := int(math.Round(float64(perTheta) * Logistic(theta, trueB, trueA)))
		for i := 0; i < perTheta; i++ {
			out = append(out, Response{Theta: theta, Correct: i < nCorrect})
		}
	}
	return out
}

func TestFitRecoversKnownParameters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 5000
	cfg.ConvergenceThreshold = 1e-5

	cases := []struct{ b, a float64 }{
		{0.5, 1.5},
		{-0.8, 1.0},
		{0.0, 2.0},
	}
	for _, tc := range cases {
		responses := syntheticResponses(tc.b, tc.a, 40) // 200 observations
		b, a, converged := Fit(0, 1, responses, cfg)
		if !converged {
			t.Errorf("fit for (b=%.1f, a=%.1f) did not converge", tc.b, tc.a)
		}
		if math.Abs(b-tc.b) > 0.2 {
			t.Errorf("fitted b = %.4f, want %.1f +/- 0.2", b, tc.b)
		}
		if math.Abs(a-tc.a) > 0.2 {
			t.Errorf("fitted a = %.4f, want %.1f +/- 0.2", a, tc.a)
		}
	}
}

func TestFitKeepsDiscriminationPositive(t *testing.T) {
	// All-incorrect data drags a toward zero; the floor must hold.
	var responses []Response
	for i := 0; i < 50; i++ {
		responses = append(responses, Response{Theta: 1, Correct: false})
	}
	_, a, _ := Fit(0, 1, responses, DefaultConfig())
	if a < 0.1 {
		t.Errorf("discrimination = %.4f, want >= 0.1", a)
	}
}

func TestFitEmptyResponses(t *testing.T) {
	b, a, converged := Fit(0.7, 1.3, nil, DefaultConfig())
	if b != 0.7 || a != 1.3 || converged {
		t.Errorf("Fit on no data = (%.2f, %.2f, %v), want parameters unchanged", b, a, converged)
	}
}
