package persist

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/telemetry/internal/core/vars"
)

var ErrDefaultUnavailable = errors.New("default value unavailable")

// Adjuster drives an integer persistent variable from relative input, such
// as a knob or a pair of +/- buttons. The result is clamped to the optional
// bounds and snapped to Step; the part removed by snapping is carried to the
// next adjustment so slow inputs still accumulate.
type Adjuster struct {
	Name    string
	Default vars.Operand
	Min     *vars.Operand
	Max     *vars.Operand
	Step    float64

	remainder float64
}

// Init seeds the variable from Default when the store does not hold it yet.
func (a *Adjuster) Init(s *Store, q vars.Querier) error {
	if s.Has(a.Name) {
		return nil
	}
	d, ok := a.Default.Get(q)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDefaultUnavailable, a.Name)
	}
	s.Set(a.Name, IntValue(int64(d)))
	return nil
}

// Apply adds change to the stored value and returns the new value.
// A zero change leaves the store untouched.
func (a *Adjuster) Apply(s *Store, q vars.Querier, change float64) int64 {
	current := s.IntOr(a.Name, 0)
	if change == 0 {
		return current
	}

	v := float64(current) + change + a.remainder
	if a.Min != nil {
		if lo, ok := a.Min.Get(q); ok {
			v = math.Max(v, lo)
		}
	}
	if a.Max != nil {
		if hi, ok := a.Max.Get(q); ok {
			v = math.Min(v, hi)
		}
	}
	if a.Step > 0 {
		a.remainder = math.Mod(v, a.Step)
		v -= a.remainder
	}

	out := int64(v)
	s.Set(a.Name, IntValue(out))
	return out
}
