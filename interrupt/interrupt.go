// Package interrupt isolates the effects of successive streams sharing
// one session. Every stream gets an integer ordinal identity; cancelling
// a stream freezes its visible progress, applies a deterministic
// confidence penalty, and blocks late callbacks still tagged with the
// cancelled ordinal from overwriting that penalty.
package interrupt

// Confidence score bounds and the fixed cancellation penalty.
const (
	ConfidenceMin    = 0
	ConfidenceMax    = 100
	InterruptPenalty = 15
)

// Clamp forces a confidence value into the valid score range.
func Clamp(score int) int {
	if score < ConfidenceMin {
		return ConfidenceMin
	}
	if score > ConfidenceMax {
		return ConfidenceMax
	}
	return score
}
