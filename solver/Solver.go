// Package solver wraps Gorgonia Solvers so that they can be described
// in JSON configuration files.
package solver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
)

var registeredTypes = map[Type]reflect.Type{
	Adam:    reflect.TypeOf(AdamConfig{}),
	Vanilla: reflect.TypeOf(VanillaConfig{}),
}

// Config describes a Gorgonia Solver
type Config interface {
	// Create returns the Gorgonia Solver described by the Config
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool

	Validate() error
}

// Solver wraps a Gorgonia Solver so that it can be JSON marshalled and
// unmarshalled. Its JSON form is
//
//	{"Type": "Adam", "Config": {"StepSize": 0.001, ...}}
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newSolver: %v", err)
	}
	return &Solver{Solver: c.Create(), Type: t, Config: c}, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. Unknown
// solver types and unknown configuration fields are errors.
func (s *Solver) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type   Type
		Config json.RawMessage
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&probe); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	ty, ok := registeredTypes[probe.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown solver type %q, want one "+
			"of %v", probe.Type, types())
	}
	config := reflect.New(ty)
	dec = json.NewDecoder(bytes.NewReader(probe.Config))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config.Interface()); err != nil {
		return fmt.Errorf("unmarshalJSON: %v config: %v", probe.Type, err)
	}

	solver, err := newSolver(probe.Type, config.Elem().Interface().(Config))
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*s = *solver
	return nil
}

func types() []Type {
	t := make([]Type, 0, len(registeredTypes))
	for k := range registeredTypes {
		t = append(t, k)
	}
	sort.Slice(t, func(i, j int) bool { return t[i] < t[j] })
	return t
}

func validate(stepSize float64, batch int) error {
	if stepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, have(%v)",
			stepSize)
	}
	if batch <= 0 {
		return fmt.Errorf("validate: batch size must be positive, have(%v)",
			batch)
	}
	return nil
}
