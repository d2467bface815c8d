package vars

import (
	"math"
	"strconv"
	"strings"
)

// Querier answers named variable queries. The frame cache and entity
// computers implement it.
type Querier interface {
	Query(name string) Variant
}

// Operand is either a numeric literal or the name of a variable, as used for
// bounds and defaults in configuration.
type Operand struct {
	name    string
	literal float64
	isConst bool
}

// ParseOperand returns a constant operand when s parses as a number and a
// variable reference otherwise.
func ParseOperand(s string) Operand {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Operand{literal: f, isConst: true}
	}
	return Operand{name: s}
}

func ConstOperand(f float64) Operand { return Operand{literal: f, isConst: true} }

func (o Operand) IsConst() bool { return o.isConst }

func (o Operand) Name() string { return o.name }

// Get evaluates the operand. It reports false when the referenced variable
// does not produce a finite number.
func (o Operand) Get(q Querier) (float64, bool) {
	if o.isConst {
		return o.literal, true
	}
	if o.name == "" || q == nil {
		return math.NaN(), false
	}
	f, ok := q.Query(o.name).Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return f, false
	}
	return f, true
}
