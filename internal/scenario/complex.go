package scenario

import (
	"fmt"

	"github.com/zeusync/telemetry/internal/core/evaluator"
	"github.com/zeusync/telemetry/internal/core/vars"
)

// Complex declares a complex variable in a scenario. Kind selects which of
// the remaining fields are used.
type Complex struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind"`
	Ranges   []Range      `yaml:"ranges,omitempty"`
	Any      bool         `yaml:"any,omitempty"`
	Source   string       `yaml:"source,omitempty"`
	From     [2]string    `yaml:"from,omitempty,flow"`
	To       [2]string    `yaml:"to,omitempty,flow"`
	Op       string       `yaml:"op,omitempty"`
	Operands []string     `yaml:"operands,omitempty,flow"`
	Cases    []SelectCase `yaml:"cases,omitempty"`
	Default  string       `yaml:"default,omitempty"`
}

type Range struct {
	Var  string `yaml:"var"`
	Low  string `yaml:"low"`
	High string `yaml:"high"`
}

type SelectCase struct {
	When  Range  `yaml:"when"`
	Value string `yaml:"value"`
}

var mathOps = map[string]evaluator.MathOp{
	"sum":     evaluator.OpSum,
	"product": evaluator.OpProduct,
	"min":     evaluator.OpMin,
	"max":     evaluator.OpMax,
	"average": evaluator.OpAverage,
}

func (r Range) build() evaluator.Range {
	return evaluator.Range{Var: r.Var, Low: vars.ParseOperand(r.Low), High: vars.ParseOperand(r.High)}
}

// Build turns the declaration into an evaluator.Complex.
func (c Complex) Build() (evaluator.Complex, error) {
	switch c.Kind {
	case "custom":
		out := evaluator.Custom{Any: c.Any}
		for _, r := range c.Ranges {
			out.Ranges = append(out.Ranges, r.build())
		}
		return out, nil
	case "mapped":
		return evaluator.Mapped{
			Source:   c.Source,
			FromLow:  vars.ParseOperand(c.From[0]),
			FromHigh: vars.ParseOperand(c.From[1]),
			ToLow:    vars.ParseOperand(c.To[0]),
			ToHigh:   vars.ParseOperand(c.To[1]),
		}, nil
	case "math":
		op, ok := mathOps[c.Op]
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown math op %q", ErrInvalidScenario, c.Name, c.Op)
		}
		out := evaluator.Math{Op: op}
		for _, o := range c.Operands {
			out.Operands = append(out.Operands, vars.ParseOperand(o))
		}
		return out, nil
	case "select":
		out := evaluator.Select{Default: vars.ParseOperand(c.Default)}
		for _, sc := range c.Cases {
			out.Cases = append(out.Cases, evaluator.SelectCase{When: sc.When.build(), Value: vars.ParseOperand(sc.Value)})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidScenario, c.Name, c.Kind)
	}
}
