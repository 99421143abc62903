// Package components implements the library of physics components
// that can be composed into environments.
//
// Each component Type is a closed variant with its own parameter
// struct. Loading a component decodes its parameters, rejecting any
// unknown keys, and produces a Description: the component's physics
// sub-configuration, its root body, the bodies allowed to collide with
// other components, a termination predicate, and its default observers.
package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/samuelfneumann/shaclearn/sim"
)

// Type is the name of a registered component
type Type string

// Available component types
const (
	Ant       Type = "ant"
	ProAnt    Type = "pro_ant"
	Singleton Type = "singleton"
	Ground    Type = "ground"
)

// registeredTypes maps each component Type to its parameter struct.
// The registry is fixed; components cannot be registered at run time.
var registeredTypes = map[Type]reflect.Type{
	Ant:       reflect.TypeOf(AntParams{}),
	ProAnt:    reflect.TypeOf(ProAntParams{}),
	Singleton: reflect.TypeOf(SingletonParams{}),
	Ground:    reflect.TypeOf(GroundParams{}),
}

// Types returns all registered component types in sorted order
func Types() []Type {
	types := make([]Type, 0, len(registeredTypes))
	for t := range registeredTypes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Instance identifies a loaded component within a composed system. All
// names are the renamed names found in the merged configuration.
type Instance struct {
	Name      string
	Suffix    string
	Root      string
	Bodies    []string
	Joints    []string
	Actuators []string
}

// Rename returns the name an unsuffixed entity of the component has in
// the composed system
func (i Instance) Rename(name string) string {
	if i.Suffix == "" {
		return name
	}
	return name + "_" + i.Suffix
}

// TermFunc folds a component's termination condition into the running
// done flag of an environment
type TermFunc func(done bool, sys sim.System, qp sim.QP, info sim.Info,
	self Instance) bool

// Description is the structural description of a loaded component.
// Names in a Description are unsuffixed.
type Description struct {
	Type     Type
	Root     string
	Config   *sim.Config
	Collides []string

	// Term may be nil, in which case the component never terminates
	// an episode
	Term TermFunc

	// DefaultObservers names the observer presets used when a
	// component description does not list its own observers. It may be
	// empty but must not be nil.
	DefaultObservers []string
}

// Validate checks that the Description fulfills the component contract
func (d *Description) Validate() error {
	if d.Config == nil {
		return fmt.Errorf("validate: component %v has no config", d.Type)
	}
	if d.Root == "" {
		return fmt.Errorf("validate: component %v has no root", d.Type)
	}
	if d.DefaultObservers == nil {
		return fmt.Errorf("validate: component %v has no default "+
			"observer list", d.Type)
	}
	if _, ok := d.Config.Index(sim.Body, d.Root); !ok {
		return fmt.Errorf("validate: root %q of component %v is not a body",
			d.Root, d.Type)
	}
	for _, name := range d.Collides {
		if _, ok := d.Config.Index(sim.Body, name); !ok {
			return fmt.Errorf("validate: collider %q of component %v is "+
				"not a body", name, d.Type)
		}
	}
	return nil
}

// Params are the closed set of construction parameters of a component
type Params interface {
	// setDefaults fills in default parameter values before decoding
	setDefaults()

	// Validate returns an error if the parameters are invalid
	Validate() error

	// describe builds the component from its parameters and the
	// (already strictly decoded) termination parameters
	describe(term json.RawMessage) (*Description, error)
}

// Load builds the Description of a component of type t. Both params and
// termParams are JSON objects, and either may be empty. Keys not
// understood by the component are an error.
func Load(t Type, params, termParams json.RawMessage) (*Description,
	error) {
	ty, ok := registeredTypes[t]
	if !ok {
		return nil, &UnknownComponentError{Type: t}
	}

	p := reflect.New(ty).Interface().(Params)
	p.setDefaults()
	if err := Decode(params, p); err != nil {
		return nil, fmt.Errorf("load: component %v: invalid params: %v", t,
			err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("load: component %v: %v", t, err)
	}

	desc, err := p.describe(termParams)
	if err != nil {
		return nil, fmt.Errorf("load: component %v: %v", t, err)
	}
	desc.Type = t
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("load: %v", err)
	}
	return desc, nil
}

// Decode strictly decodes a JSON object into v. Empty or null data
// leaves v unchanged.
func Decode(data json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
