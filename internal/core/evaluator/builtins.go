package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeusync/telemetry/internal/core/vars"
)

// NumericReadings are builtins that pass a raw numeric reading through.
var NumericReadings = []string{
	"ALTITUDE", "RADARALT", "TERRAINHEIGHT",
	"VERTSPEED", "SURFSPEED", "ORBTSPEED", "HORZVELOCITY",
	"HEADING", "PITCH", "ROLL",
	"THROTTLE", "MASS", "THRUST", "MAXTHRUST", "LOCALG", "GFORCE",
	"APOAPSIS", "PERIAPSIS", "INCLINATION", "ECCENTRICITY",
	"ORBPERIOD", "TIMETOAP", "TIMETOPE",
	"DYNAMICPRESSURE", "ATMPRESSURE", "ATMDENSITY", "EXTERNALTEMPERATURE",
	"MET", "UT", "STAGE", "CREWCOUNT", "CREWCAPACITY",
}

// FlagReadings are builtins that expose a boolean reading.
var FlagReadings = []string{
	"GEAR", "BRAKES", "SAS", "RCS", "LIGHTS", "ABORT",
}

// TextReadings are builtins that expose a text reading.
var TextReadings = []string{
	"VESSELNAME", "SITUATION", "TARGETNAME", "BODYNAME",
}

const actionGroups = 10

// Builtins builds the session builtin table. Prefix builtins consult the
// catalog when a name is resolved, so definitions registered after the
// table was built are still found by entities resolving them later.
func Builtins(c *Catalog) *Table {
	t := NewTable()

	for _, name := range NumericReadings {
		t.Add(name, true, numericReading)
	}
	for _, name := range FlagReadings {
		t.Add(name, true, flagReading)
	}
	for i := 0; i < actionGroups; i++ {
		t.Add("AG"+strconv.Itoa(i), true, flagReading)
	}
	for _, name := range TextReadings {
		t.Add(name, true, textReading)
	}
	t.Add("TWR", true, thrustToWeight("THRUST"))
	t.Add("MAXTWR", true, thrustToWeight("MAXTHRUST"))

	t.AddPrefix("PERSISTENT_", persistentPrefix)
	t.AddPrefix("ISLOADED_", func(name string) (Func, bool, bool) {
		module := strings.TrimPrefix(name, "ISLOADED_")
		return func(Env, string) (vars.Variant, error) {
			return vars.Bool(c.Loaded(module)), nil
		}, true, true
	})
	t.AddPrefix("SYSR_", func(name string) (Func, bool, bool) {
		return resourcePrefix(c, name)
	})
	for _, p := range ComplexPrefixes {
		t.AddPrefix(p, func(name string) (Func, bool, bool) {
			cv, ok := c.Complex(name)
			if !ok {
				return nil, false, false
			}
			return func(env Env, _ string) (vars.Variant, error) {
				return cv.Evaluate(env)
			}, true, true
		})
	}
	return t
}

func numericReading(env Env, name string) (vars.Variant, error) {
	v, ok := env.Readings().Value(name)
	if !ok {
		return vars.NaN(), fmt.Errorf("%w: %s", ErrMissingReading, name)
	}
	return vars.Number(v), nil
}

func flagReading(env Env, name string) (vars.Variant, error) {
	v, ok := env.Readings().Flag(name)
	if !ok {
		return vars.NaN(), fmt.Errorf("%w: %s", ErrMissingReading, name)
	}
	return vars.Bool(v), nil
}

func textReading(env Env, name string) (vars.Variant, error) {
	v, ok := env.Readings().TextValue(name)
	if !ok {
		return vars.Text(""), fmt.Errorf("%w: %s", ErrMissingReading, name)
	}
	return vars.Text(v), nil
}

// thrustToWeight divides the named thrust reading by the craft weight.
// A craft without weight reports zero.
func thrustToWeight(thrust string) Func {
	return func(env Env, _ string) (vars.Variant, error) {
		r := env.Readings()
		f, ok := r.Value(thrust)
		if !ok {
			return vars.NaN(), fmt.Errorf("%w: %s", ErrMissingReading, thrust)
		}
		m, ok := r.Value("MASS")
		if !ok {
			return vars.NaN(), fmt.Errorf("%w: MASS", ErrMissingReading)
		}
		g, ok := r.Value("LOCALG")
		if !ok {
			return vars.NaN(), fmt.Errorf("%w: LOCALG", ErrMissingReading)
		}
		if m*g == 0 {
			return vars.Number(0), nil
		}
		return vars.Number(f / (m * g)), nil
	}
}

// persistentPrefix reads the entity store. The store changes between
// queries of one tick, so the result is never cached. Absent keys read as 0.
func persistentPrefix(name string) (Func, bool, bool) {
	key := strings.TrimPrefix(name, "PERSISTENT_")
	if key == "" {
		return nil, false, false
	}
	return func(env Env, _ string) (vars.Variant, error) {
		v, ok := env.Persistent().Get(key)
		if !ok {
			return vars.Number(0), nil
		}
		return v.Variant(), nil
	}, false, true
}

func resourcePrefix(c *Catalog, name string) (Func, bool, bool) {
	resource, selector, ok := c.MatchResource(strings.TrimPrefix(name, "SYSR_"))
	if !ok {
		return nil, false, false
	}
	switch selector {
	case "AMOUNT", "MAX", "PERCENT":
	default:
		return nil, false, false
	}
	return func(env Env, _ string) (vars.Variant, error) {
		res, ok := env.Readings().Resource(resource)
		if !ok {
			// The craft simply carries none of it.
			return vars.Number(0), nil
		}
		switch selector {
		case "AMOUNT":
			return vars.Number(res.Amount), nil
		case "MAX":
			return vars.Number(res.Max), nil
		default:
			if res.Max <= 0 {
				return vars.Number(0), nil
			}
			return vars.Number(res.Amount / res.Max), nil
		}
	}, true, true
}
