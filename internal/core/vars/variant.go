// Package vars holds the value types exchanged between evaluators, the frame
// cache and consumers.
package vars

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the member of a Variant that is populated.
type Kind uint8

const (
	KindNumber Kind = iota
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Variant is a tagged scalar: a number, a text or a boolean.
// The zero value is the number 0.
type Variant struct {
	kind Kind
	num  float64
	text string
	flag bool
}

func Number(v float64) Variant { return Variant{kind: KindNumber, num: v} }

func Text(s string) Variant { return Variant{kind: KindText, text: s} }

func Bool(b bool) Variant { return Variant{kind: KindBool, flag: b} }

// NaN is the numeric failure sentinel.
func NaN() Variant { return Number(math.NaN()) }

func (v Variant) Kind() Kind { return v.kind }

func (v Variant) IsNumber() bool { return v.kind == KindNumber }

func (v Variant) IsText() bool { return v.kind == KindText }

func (v Variant) IsBool() bool { return v.kind == KindBool }

// Number returns the numeric member and whether the variant holds one.
func (v Variant) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the text member and whether the variant holds one.
func (v Variant) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// Bool returns the boolean member and whether the variant holds one.
func (v Variant) Bool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

// Float coerces v to a number. Booleans map to 1 and 0, texts are parsed.
// The second result is false when the text does not hold a number; the
// returned value is then NaN.
func (v Variant) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	default:
		return math.NaN(), false
	}
}

// AsFloat is Float without the success flag.
func (v Variant) AsFloat() float64 {
	f, _ := v.Float()
	return f
}

// Truthy reports whether v should be treated as "on": true booleans,
// non-zero numbers and texts that parse to non-zero numbers.
func (v Variant) Truthy() bool {
	if v.kind == KindBool {
		return v.flag
	}
	f, ok := v.Float()
	return ok && f != 0 && !math.IsNaN(f)
}

// Equal compares tag and payload. NaN equals NaN here so a failing
// evaluator does not look like a fresh change on every tick.
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindText:
		return v.text == o.text
	default:
		return v.flag == o.flag
	}
}

func (v Variant) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	default:
		return strconv.FormatBool(v.flag)
	}
}
