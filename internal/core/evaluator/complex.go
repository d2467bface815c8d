package evaluator

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/telemetry/internal/core/vars"
)

var (
	ErrNoOperands = errors.New("no operands")
	ErrBadRange   = errors.New("range bounds unavailable")
)

// Complex is a variable composed from other variables. Its inputs are read
// through the querier, so they hit the frame cache like any consumer query.
type Complex interface {
	Evaluate(q vars.Querier) (vars.Variant, error)
}

// Range tests whether a variable lies within [Low, High]. Bounds given in
// the wrong order are swapped.
type Range struct {
	Var  string
	Low  vars.Operand
	High vars.Operand
}

func (r Range) Match(q vars.Querier) (bool, error) {
	v, ok := q.Query(r.Var).Float()
	if !ok || math.IsNaN(v) {
		return false, fmt.Errorf("%s: %w", r.Var, ErrNotNumeric)
	}
	lo, okLo := r.Low.Get(q)
	hi, okHi := r.High.Get(q)
	if !okLo || !okHi {
		return false, fmt.Errorf("%s: %w", r.Var, ErrBadRange)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi, nil
}

// Custom is a boolean over a set of ranges: all of them must match, or any
// of them when Any is set.
type Custom struct {
	Ranges []Range
	Any    bool
}

func (c Custom) Evaluate(q vars.Querier) (vars.Variant, error) {
	if len(c.Ranges) == 0 {
		return vars.NaN(), ErrNoOperands
	}
	for _, r := range c.Ranges {
		m, err := r.Match(q)
		if err != nil {
			return vars.NaN(), err
		}
		if c.Any && m {
			return vars.Bool(true), nil
		}
		if !c.Any && !m {
			return vars.Bool(false), nil
		}
	}
	return vars.Bool(!c.Any), nil
}

// Mapped maps Source linearly from [FromLow, FromHigh] onto
// [ToLow, ToHigh], clamping to the output range.
type Mapped struct {
	Source   string
	FromLow  vars.Operand
	FromHigh vars.Operand
	ToLow    vars.Operand
	ToHigh   vars.Operand
}

func (m Mapped) Evaluate(q vars.Querier) (vars.Variant, error) {
	v, ok := q.Query(m.Source).Float()
	if !ok || math.IsNaN(v) {
		return vars.NaN(), fmt.Errorf("%s: %w", m.Source, ErrNotNumeric)
	}
	var b [4]float64
	for i, o := range []vars.Operand{m.FromLow, m.FromHigh, m.ToLow, m.ToHigh} {
		f, ok := o.Get(q)
		if !ok {
			return vars.NaN(), ErrBadRange
		}
		b[i] = f
	}
	if b[0] == b[1] {
		return vars.Number(b[2]), nil
	}
	t := (v - b[0]) / (b[1] - b[0])
	t = math.Max(0, math.Min(1, t))
	return vars.Number(b[2] + t*(b[3]-b[2])), nil
}

type MathOp uint8

const (
	OpSum MathOp = iota + 1
	OpProduct
	OpMin
	OpMax
	OpAverage
)

// Math folds its operands with Op.
type Math struct {
	Op       MathOp
	Operands []vars.Operand
}

func (m Math) Evaluate(q vars.Querier) (vars.Variant, error) {
	if len(m.Operands) == 0 {
		return vars.NaN(), ErrNoOperands
	}
	values := make([]float64, 0, len(m.Operands))
	for _, o := range m.Operands {
		f, ok := o.Get(q)
		if !ok {
			return vars.NaN(), fmt.Errorf("%s: %w", o.Name(), ErrNotNumeric)
		}
		values = append(values, f)
	}

	acc := values[0]
	for _, f := range values[1:] {
		switch m.Op {
		case OpSum, OpAverage:
			acc += f
		case OpProduct:
			acc *= f
		case OpMin:
			acc = math.Min(acc, f)
		case OpMax:
			acc = math.Max(acc, f)
		default:
			return vars.NaN(), fmt.Errorf("unknown math op %d", m.Op)
		}
	}
	if m.Op == OpAverage {
		acc /= float64(len(values))
	}
	return vars.Number(acc), nil
}

type SelectCase struct {
	When  Range
	Value vars.Operand
}

// Select yields the value of the first matching case, or Default.
type Select struct {
	Cases   []SelectCase
	Default vars.Operand
}

func (s Select) Evaluate(q vars.Querier) (vars.Variant, error) {
	for _, c := range s.Cases {
		m, err := c.When.Match(q)
		if err != nil {
			return vars.NaN(), err
		}
		if m {
			return operandVariant(c.Value, q)
		}
	}
	return operandVariant(s.Default, q)
}

func operandVariant(o vars.Operand, q vars.Querier) (vars.Variant, error) {
	f, ok := o.Get(q)
	if !ok {
		return vars.NaN(), fmt.Errorf("%s: %w", o.Name(), ErrNotNumeric)
	}
	return vars.Number(f), nil
}
