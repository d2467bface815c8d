package vars

import "math"

// DefaultTolerance is the relative tolerance used for change detection.
const DefaultTolerance = 1e-6

// minAbsTolerance keeps comparisons around zero from requiring exact equality.
const minAbsTolerance = 8 * 1.1920929e-7

// Approximately reports whether a and b differ by less than tol relative to
// the larger magnitude, with a small absolute floor. Two NaNs compare equal.
func Approximately(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}
	limit := math.Max(tol*math.Max(math.Abs(a), math.Abs(b)), minAbsTolerance)
	return math.Abs(b-a) < limit
}
