package fsrs

import "fmt"

// Rating grades one review outcome on the standard four-point FSRS
// scale. The engine derives ratings from correctness, response time
// and hint usage rather than learner self-report.
type Rating int

const (
	Again Rating = iota + 1 // failed recall
	Hard                    // recalled with difficulty
	Good                    // recalled after some hesitation
	Easy                    // recalled immediately
)

// Valid reports whether r is one of the four defined ratings.
func (r Rating) Valid() bool {
	return r >= Again && r <= Easy
}

func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("Rating(%d)", int(r))
	}
}
