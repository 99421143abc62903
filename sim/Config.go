// Package sim describes the physics system that composed environments
// are built on top of: its structured configuration, the text format
// that configurations are exchanged in, the per-body state (QP), and the
// System interface which steps that state forward in time.
//
// The physics engine itself is not implemented here. Package box2dsys
// provides one concrete System.
package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind is a kind of named entity in a Config
type Kind string

const (
	Body     Kind = "body"
	Joint    Kind = "joint"
	Actuator Kind = "actuator"
)

// Shape is the geometry of a Collider
type Shape string

const (
	Capsule Shape = "capsule"
	Sphere  Shape = "sphere"
	Plane   Shape = "plane"
	Box     Shape = "box"
)

// Collider is a piece of collision geometry attached to a body
type Collider struct {
	Shape    Shape
	Radius   float64
	Length   float64
	HalfSize r3.Vec
	Position r3.Vec
}

// BodySpec describes a rigid body
type BodySpec struct {
	Name      string
	Mass      float64
	Frozen    bool
	Colliders []Collider
}

// Limit is an angle limit of a joint, in degrees
type Limit struct {
	Min, Max float64
}

// JointSpec describes a joint connecting a parent body to a child body
type JointSpec struct {
	Name         string
	Parent       string
	Child        string
	Stiffness    float64
	ParentOffset r3.Vec
	ChildOffset  r3.Vec
	AngleLimits  []Limit
}

// ActuatorSpec describes an actuator driving a joint
type ActuatorSpec struct {
	Name     string
	Joint    string
	Strength float64
}

// CollidePair names two bodies that are allowed to collide
type CollidePair struct {
	First, Second string
}

// Options are the global simulation options of a Config. Zero valued
// fields are considered unset.
type Options struct {
	Dt             float64   `json:"dt,omitempty"`
	Substeps       int       `json:"substeps,omitempty"`
	Friction       float64   `json:"friction,omitempty"`
	Gravity        []float64 `json:"gravity,omitempty"`
	AngularDamping float64   `json:"angular_damping,omitempty"`
	BaumgarteERP   float64   `json:"baumgarte_erp,omitempty"`
	Elasticity     float64   `json:"elasticity,omitempty"`
}

// DefaultOptions returns the global options used when a composition
// does not override them
func DefaultOptions() Options {
	return Options{
		Dt:             0.05,
		Substeps:       10,
		Friction:       0.6,
		Gravity:        []float64{0, 0, -9.8},
		AngularDamping: -0.05,
		BaumgarteERP:   0.1,
	}
}

// Override returns a copy of o with every set field of other replacing
// the corresponding field of o
func (o Options) Override(other Options) Options {
	out := o
	if other.Dt != 0 {
		out.Dt = other.Dt
	}
	if other.Substeps != 0 {
		out.Substeps = other.Substeps
	}
	if other.Friction != 0 {
		out.Friction = other.Friction
	}
	if other.Gravity != nil {
		out.Gravity = append([]float64(nil), other.Gravity...)
	} else if o.Gravity != nil {
		out.Gravity = append([]float64(nil), o.Gravity...)
	}
	if other.AngularDamping != 0 {
		out.AngularDamping = other.AngularDamping
	}
	if other.BaumgarteERP != 0 {
		out.BaumgarteERP = other.BaumgarteERP
	}
	if other.Elasticity != 0 {
		out.Elasticity = other.Elasticity
	}
	return out
}

// Validate returns an error if the options are malformed
func (o Options) Validate() error {
	if o.Dt < 0 {
		return fmt.Errorf("validate: dt must be non-negative, have(%v)", o.Dt)
	}
	if o.Substeps < 0 {
		return fmt.Errorf("validate: substeps must be non-negative, "+
			"have(%v)", o.Substeps)
	}
	if o.Gravity != nil && len(o.Gravity) != 3 {
		return fmt.Errorf("validate: gravity must have 3 components, "+
			"have(%v)", len(o.Gravity))
	}
	return nil
}

// Config is the structured form of a simulation configuration
type Config struct {
	Bodies         []BodySpec
	Joints         []JointSpec
	Actuators      []ActuatorSpec
	CollideInclude []CollidePair
	Options        Options
}

// Names returns the names of all entities of kind k in the order they
// appear in the Config
func (c *Config) Names(k Kind) []string {
	var names []string
	switch k {
	case Body:
		names = make([]string, len(c.Bodies))
		for i := range c.Bodies {
			names[i] = c.Bodies[i].Name
		}
	case Joint:
		names = make([]string, len(c.Joints))
		for i := range c.Joints {
			names[i] = c.Joints[i].Name
		}
	case Actuator:
		names = make([]string, len(c.Actuators))
		for i := range c.Actuators {
			names[i] = c.Actuators[i].Name
		}
	}
	return names
}

// Index returns the index of the entity of kind k with the given name
func (c *Config) Index(k Kind, name string) (int, bool) {
	for i, n := range c.Names(k) {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Indices resolves names of kind k to their indices in the Config. The
// indices are returned in the order of names, together with a mask over
// all entities of kind k which is true for every entity named.
func (c *Config) Indices(k Kind, names []string) ([]int, []bool, error) {
	all := c.Names(k)
	lookup := make(map[string]int, len(all))
	for i, n := range all {
		lookup[n] = i
	}

	indices := make([]int, len(names))
	mask := make([]bool, len(all))
	for i, name := range names {
		index, ok := lookup[name]
		if !ok {
			return nil, nil, fmt.Errorf("indices: no %v named %q", k, name)
		}
		indices[i] = index
		mask[index] = true
	}
	return indices, mask, nil
}

// Clone returns a deep copy of the Config
func (c *Config) Clone() *Config {
	out := &Config{
		Bodies:         make([]BodySpec, len(c.Bodies)),
		Joints:         make([]JointSpec, len(c.Joints)),
		Actuators:      append([]ActuatorSpec(nil), c.Actuators...),
		CollideInclude: append([]CollidePair(nil), c.CollideInclude...),
		Options:        Options{}.Override(c.Options),
	}
	for i, b := range c.Bodies {
		b.Colliders = append([]Collider(nil), b.Colliders...)
		out.Bodies[i] = b
	}
	for i, j := range c.Joints {
		j.AngleLimits = append([]Limit(nil), j.AngleLimits...)
		out.Joints[i] = j
	}
	return out
}
