package persist

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zeusync/telemetry/internal/core/vars"
)

var (
	ErrUnknownTag   = errors.New("unknown persistent type")
	ErrInvalidValue = errors.New("invalid persistent value")
	ErrEmptyName    = errors.New("persistent record without a name")
)

// Tag is the stored type of a persistent value.
type Tag uint8

const (
	TagBool Tag = iota + 1
	TagInt
	TagFloat
)

func (t Tag) String() string {
	switch t {
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	default:
		return "unknown"
	}
}

// ParseTag accepts the canonical names and the type names written by older
// saves (System.Boolean, System.Int32, System.Single).
func ParseTag(s string) (Tag, error) {
	switch strings.TrimSpace(s) {
	case "bool", "System.Boolean":
		return TagBool, nil
	case "int", "System.Int32":
		return TagInt, nil
	case "float", "System.Single", "System.Double":
		return TagFloat, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, s)
	}
}

// Value is one typed persistent scalar.
type Value struct {
	tag Tag
	b   bool
	i   int64
	f   float64
}

// Equal compares tag and payload; two NaN floats are equal.
func (v Value) Equal(o Value) bool {
	if v.tag == TagFloat && o.tag == TagFloat && math.IsNaN(v.f) && math.IsNaN(o.f) {
		return true
	}
	return v == o
}

func BoolValue(b bool) Value { return Value{tag: TagBool, b: b} }

func IntValue(i int64) Value { return Value{tag: TagInt, i: i} }

func FloatValue(f float64) Value { return Value{tag: TagFloat, f: f} }

func (v Value) Tag() Tag { return v.tag }

func (v Value) Bool() (bool, bool) { return v.b, v.tag == TagBool }

func (v Value) Int() (int64, bool) { return v.i, v.tag == TagInt }

func (v Value) Float() (float64, bool) { return v.f, v.tag == TagFloat }

// Variant exposes the value to the query side. Integers and floats become numbers.
func (v Value) Variant() vars.Variant {
	switch v.tag {
	case TagBool:
		return vars.Bool(v.b)
	case TagInt:
		return vars.Number(float64(v.i))
	default:
		return vars.Number(v.f)
	}
}

// Text is the textual form written to the persisted record.
func (v Value) Text() string {
	switch v.tag {
	case TagBool:
		return strconv.FormatBool(v.b)
	case TagInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
}

func (v Value) String() string {
	return v.tag.String() + "," + v.Text()
}

// ParseValue decodes the textual form of a value of the given tag.
func ParseValue(tag Tag, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch tag {
	case TagBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q as bool", ErrInvalidValue, text)
		}
		return BoolValue(b), nil
	case TagInt:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q as int", ErrInvalidValue, text)
		}
		return IntValue(i), nil
	case TagFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q as float", ErrInvalidValue, text)
		}
		return FloatValue(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}
