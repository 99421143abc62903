// Package observers implements the observation terms of composed
// environments.
//
// Observers are described by a Spec, decoded from JSON as a tagged
// union keyed by "observer_type" (or as a bare string naming a preset).
// A Spec is bound to the component or edge it belongs to, producing an
// Observer which reads values from a physics state into an ordered Dict.
package observers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/sim"
)

// Type is the type of an observer Spec
type Type string

// Available observer types
const (
	SimType         Type = "sim"
	RootVecType     Type = "root_vec"
	RootJointsType  Type = "root_joints"
	RootZJointsType Type = "root_z_joints"
	LambdaType      Type = "lambda"
)

var registeredTypes = map[Type]reflect.Type{
	SimType:         reflect.TypeOf(SimSpec{}),
	RootVecType:     reflect.TypeOf(RootVecSpec{}),
	RootJointsType:  reflect.TypeOf(PresetSpec{}),
	RootZJointsType: reflect.TypeOf(PresetSpec{}),
	LambdaType:      reflect.TypeOf(LambdaSpec{}),
}

// Spec is an unbound observer description
type Spec interface {
	Type() Type
	Validate() error
	bind(b Binder) (Observer, error)
}

// Observer computes one or more named observation values
type Observer interface {
	Observe(ctx *Context, out *Dict) error
}

// Binder holds what a Spec may refer to when it is bound
type Binder struct {
	// Self is the component owning the observer, or nil
	Self *components.Instance

	// Pair holds the two components of the edge owning the observer,
	// or is nil
	Pair []components.Instance

	// Components holds every component of the composed system by name
	Components map[string]components.Instance
}

// Bind binds a Spec to the component or edge described by b
func (b Binder) Bind(s Spec) (Observer, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("bind: %v", err)
	}
	obs, err := s.bind(b)
	if err != nil {
		return nil, fmt.Errorf("bind: %v", err)
	}
	return obs, nil
}

// Desc wraps a Spec so that it can be JSON marshalled and unmarshalled
// into its concrete type
type Desc struct {
	Spec
}

// Preset returns the Desc of an observer preset such as
// "root_z_joints"
func Preset(name string) (Desc, error) {
	var d Desc
	err := d.UnmarshalJSON([]byte(fmt.Sprintf("%q", name)))
	return d, err
}

// UnmarshalJSON implements the json.Unmarshaler interface. Unknown
// observer types and fields unknown to the observer type are errors.
func (d *Desc) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var preset string
	if err := json.Unmarshal(data, &preset); err == nil {
		if t := Type(preset); t == RootJointsType || t == RootZJointsType {
			d.Spec = &PresetSpec{ObserverType: t}
			return nil
		}
		return fmt.Errorf("unmarshalJSON: unknown observer preset %q", preset)
	}

	var probe struct {
		ObserverType Type `json:"observer_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	ty, ok := registeredTypes[probe.ObserverType]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown observer type %q, want "+
			"one of %v", probe.ObserverType, types())
	}

	spec := reflect.New(ty).Interface().(Spec)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(spec); err != nil {
		return fmt.Errorf("unmarshalJSON: observer %v: %v", probe.ObserverType,
			err)
	}
	d.Spec = spec
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (d Desc) MarshalJSON() ([]byte, error) {
	if p, ok := d.Spec.(*PresetSpec); ok {
		return json.Marshal(string(p.ObserverType))
	}
	return json.Marshal(d.Spec)
}

func types() []Type {
	t := make([]Type, 0, len(registeredTypes))
	for k := range registeredTypes {
		t = append(t, k)
	}
	sort.Slice(t, func(i, j int) bool { return t[i] < t[j] })
	return t
}

// SimSpec observes a single field of a named body or joint.
//
// Body fields are pos, rot, vel, ang, and contact. Joint fields are
// angle and vel.
type SimSpec struct {
	ObserverType Type     `json:"observer_type"`
	SDType       sim.Kind `json:"sdtype"`
	SDComp       string   `json:"sdcomp"`
	SDName       string   `json:"sdname"`

	// CompName names the component SDName belongs to. If empty, the
	// owning component is used, and without an owner SDName is used
	// as is.
	CompName string `json:"comp_name,omitempty"`

	// Indices selects elements of the observed field
	Indices []int `json:"indices,omitempty"`

	// Name overrides the generated observation name
	Name string `json:"name,omitempty"`
}

// NewSimSpec returns a SimSpec observing field sdcomp of the entity
// sdname in component comp
func NewSimSpec(sdtype sim.Kind, sdcomp, sdname, comp string) *SimSpec {
	return &SimSpec{
		ObserverType: SimType,
		SDType:       sdtype,
		SDComp:       sdcomp,
		SDName:       sdname,
		CompName:     comp,
	}
}

// Type satisfies the Spec interface
func (s *SimSpec) Type() Type { return SimType }

// Validate satisfies the Spec interface
func (s *SimSpec) Validate() error {
	if s.SDName == "" {
		return fmt.Errorf("validate: sim observer has no sdname")
	}
	size, ok := fieldSizes[field{s.SDType, s.SDComp}]
	if !ok {
		return fmt.Errorf("validate: unknown field %v of %v", s.SDComp,
			s.SDType)
	}
	for _, i := range s.Indices {
		if i < 0 || i >= size {
			return fmt.Errorf("validate: index %v out of range for %v %v "+
				"of size %v", i, s.SDType, s.SDComp, size)
		}
	}
	return nil
}

func (s *SimSpec) bind(b Binder) (Observer, error) {
	entity := s.SDName
	if s.CompName != "" {
		comp, ok := b.Components[s.CompName]
		if !ok {
			return nil, fmt.Errorf("sim observer refers to unknown "+
				"component %q", s.CompName)
		}
		entity = comp.Rename(s.SDName)
	} else if b.Self != nil {
		entity = b.Self.Rename(s.SDName)
	}

	name := s.Name
	if name == "" {
		name = fmt.Sprintf("%s_%s_%s", s.SDType, s.SDComp, entity)
		if len(s.Indices) > 0 {
			name += fmt.Sprint(s.Indices)
		}
	}
	return &SimObserver{
		Label:   name,
		Kind:    s.SDType,
		Field:   s.SDComp,
		Entity:  entity,
		Indices: append([]int(nil), s.Indices...),
	}, nil
}

// RootVecSpec is an edge observer of the vector between the roots of
// the two components of the edge
type RootVecSpec struct {
	ObserverType Type  `json:"observer_type"`
	Indices      []int `json:"indices,omitempty"`
}

// Type satisfies the Spec interface
func (r *RootVecSpec) Type() Type { return RootVecType }

// Validate satisfies the Spec interface
func (r *RootVecSpec) Validate() error {
	for _, i := range r.Indices {
		if i < 0 || i >= 3 {
			return fmt.Errorf("validate: root_vec index %v out of range", i)
		}
	}
	return nil
}

func (r *RootVecSpec) bind(b Binder) (Observer, error) {
	if len(b.Pair) != 2 {
		return nil, fmt.Errorf("root_vec observer must belong to an edge")
	}
	first, second := b.Pair[0], b.Pair[1]
	return &LambdaObserver{
		Label: fmt.Sprintf("root_vec_%s__%s", first.Name, second.Name),
		Fn:    Sub,
		Inputs: []Observer{
			rootObserver(first, "pos", r.Indices),
			rootObserver(second, "pos", r.Indices),
		},
	}, nil
}

// PresetSpec is a component observer preset.
//
// root_joints observes the root position, rotation, velocity, and
// angular velocity together with every joint angle and joint velocity
// of the component. root_z_joints is the same but observes only the
// height of the root.
type PresetSpec struct {
	ObserverType Type `json:"observer_type"`
}

// Type satisfies the Spec interface
func (p *PresetSpec) Type() Type { return p.ObserverType }

// Validate satisfies the Spec interface
func (p *PresetSpec) Validate() error {
	if p.ObserverType != RootJointsType && p.ObserverType != RootZJointsType {
		return fmt.Errorf("validate: unknown preset %q", p.ObserverType)
	}
	return nil
}

func (p *PresetSpec) bind(b Binder) (Observer, error) {
	if b.Self == nil {
		return nil, fmt.Errorf("%v observer must belong to a component",
			p.ObserverType)
	}
	self := *b.Self

	var posIndices []int
	if p.ObserverType == RootZJointsType {
		posIndices = []int{2}
	}
	group := Group{
		rootObserver(self, "pos", posIndices),
		rootObserver(self, "rot", nil),
		rootObserver(self, "vel", nil),
		rootObserver(self, "ang", nil),
	}
	if len(self.Joints) > 0 {
		group = append(group,
			&JointsObserver{Label: "joint_angle_" + self.Name, Field: "angle",
				Joints: self.Joints},
			&JointsObserver{Label: "joint_vel_" + self.Name, Field: "vel",
				Joints: self.Joints},
		)
	}
	return group, nil
}

func rootObserver(c components.Instance, comp string,
	indices []int) *SimObserver {
	name := fmt.Sprintf("%s_%s_%s", sim.Body, comp, c.Root)
	if len(indices) > 0 {
		name += fmt.Sprint(indices)
	}
	return &SimObserver{
		Label:   name,
		Kind:    sim.Body,
		Field:   comp,
		Entity:  c.Root,
		Indices: indices,
	}
}

// LambdaSpec combines the values of other observers elementwise
type LambdaSpec struct {
	ObserverType Type   `json:"observer_type"`
	Name         string `json:"name"`
	Fn           Fn     `json:"fn"`
	Observers    []Desc `json:"observers"`
}

// NewLambdaSpec returns a LambdaSpec combining the given specs with fn
func NewLambdaSpec(name string, fn Fn, specs ...Spec) *LambdaSpec {
	l := &LambdaSpec{ObserverType: LambdaType, Name: name, Fn: fn}
	for _, s := range specs {
		l.Observers = append(l.Observers, Desc{s})
	}
	return l
}

// Type satisfies the Spec interface
func (l *LambdaSpec) Type() Type { return LambdaType }

// Validate satisfies the Spec interface
func (l *LambdaSpec) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("validate: lambda observer has no name")
	}
	if _, ok := fns[l.Fn]; !ok {
		return fmt.Errorf("validate: unknown lambda fn %q", l.Fn)
	}
	if len(l.Observers) < 1 {
		return fmt.Errorf("validate: lambda observer %v has no inputs",
			l.Name)
	}
	if l.Fn == Sub && len(l.Observers) != 2 {
		return fmt.Errorf("validate: lambda observer %v: %q takes 2 inputs, "+
			"have(%v)", l.Name, l.Fn, len(l.Observers))
	}
	for _, o := range l.Observers {
		if o.Spec == nil {
			return fmt.Errorf("validate: lambda observer %v has a nil input",
				l.Name)
		}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (l *LambdaSpec) bind(b Binder) (Observer, error) {
	inputs := make([]Observer, len(l.Observers))
	for i, o := range l.Observers {
		obs, err := o.bind(b)
		if err != nil {
			return nil, fmt.Errorf("lambda observer %v: %v", l.Name, err)
		}
		inputs[i] = obs
	}
	return &LambdaObserver{Label: l.Name, Fn: l.Fn, Inputs: inputs}, nil
}
