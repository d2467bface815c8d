// Package evaluator maps variable names to the functions that compute them.
//
// Resolution order is fixed: the builtin table (exact names, then structured
// prefixes), then the external sources registered on the entity, then the
// literal fallback which returns the name itself as text.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/zeusync/telemetry/internal/core/datasource"
	"github.com/zeusync/telemetry/internal/core/persist"
	"github.com/zeusync/telemetry/internal/core/vars"
)

var (
	ErrPanicked       = errors.New("evaluator panicked")
	ErrUnknownKind    = errors.New("unknown evaluator kind")
	ErrMissingReading = errors.New("reading not available")
	ErrNotNumeric     = errors.New("value is not numeric")
)

// Kind is the closed set of evaluator variants.
type Kind uint8

const (
	KindBuiltin Kind = iota + 1
	KindPlugin
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindPlugin:
		return "plugin"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Env is what a builtin sees of its entity while it runs.
type Env interface {
	vars.Querier
	Readings() datasource.Readings
	Persistent() *persist.Store
}

// Func computes a builtin variable. name is the full queried name, which
// lets prefix handlers parse their argument.
type Func func(env Env, name string) (vars.Variant, error)

// Source is an external evaluator provider, such as a plugin attached to one
// entity. Lookup is consulted at resolve time; Evaluate at every invocation.
type Source interface {
	Lookup(name string) (cacheable bool, ok bool)
	Evaluate(name string) (vars.Variant, error)
}

// Evaluator is one resolved way of computing a name.
type Evaluator struct {
	kind   Kind
	name   string
	fn     Func
	source Source
}

func Builtin(name string, fn Func) Evaluator {
	return Evaluator{kind: KindBuiltin, name: name, fn: fn}
}

func Plugin(name string, src Source) Evaluator {
	return Evaluator{kind: KindPlugin, name: name, source: src}
}

func Literal(name string) Evaluator {
	return Evaluator{kind: KindLiteral, name: name}
}

func (e Evaluator) Kind() Kind { return e.kind }

func (e Evaluator) Name() string { return e.name }

// Invoke runs the evaluator. A panicking builtin or plugin is reported as an
// error wrapping ErrPanicked.
func (e Evaluator) Invoke(env Env) (v vars.Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = vars.NaN(), fmt.Errorf("%w: %s: %v", ErrPanicked, e.name, r)
		}
	}()

	switch e.kind {
	case KindBuiltin:
		return e.fn(env, e.name)
	case KindPlugin:
		return e.source.Evaluate(e.name)
	case KindLiteral:
		return vars.Text(e.name), nil
	default:
		return vars.NaN(), fmt.Errorf("%w: %d", ErrUnknownKind, e.kind)
	}
}
