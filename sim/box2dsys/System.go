// Package box2dsys implements a planar sim.System using Box2D.
//
// Bodies move in the x-y plane. Box2D has no notion of height, so the
// z coordinate of every body is carried through steps unchanged, and
// rotations are reduced to their yaw. Gravity acts along z and therefore
// has no effect in the plane; ground friction is modelled as linear and
// angular damping instead.
package box2dsys

import (
	"fmt"
	"math"
	"sync"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/shaclearn/sim"
	"github.com/samuelfneumann/shaclearn/utils/floatutils"
)

const (
	// Height at which non-frozen root bodies rest by default
	DefaultHeight float64 = 0.5

	// Radius of bodies without colliders
	MinRadius float64 = 0.05

	VelocityIterations int = 8
	PositionIterations int = 3
)

var actionBounds = r1.Interval{Min: -1, Max: 1}

// System is a planar physics system. A System is safe for concurrent
// use, but steps are serialized; each environment should have its own
// System. The Box2D world is rebuilt from the loaded state on every
// call, so steps depend only on their arguments.
type System struct {
	mu sync.Mutex

	config *sim.Config
	world  box2d.B2World

	bodies []*box2d.B2Body
	index  map[*box2d.B2Body]int
	joints []*box2d.B2RevoluteJoint

	// actuatorJoint[i] is the index of the joint driven by actuator i
	actuatorJoint []int

	collide  map[[2]int]bool
	contacts []int

	dt        float64
	substeps  int
	friction  float64
	defaultQP sim.QP
}

// New creates a new System from a Config. New satisfies sim.Factory.
func New(c *sim.Config) (sim.System, error) {
	if err := c.Options.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	opts := sim.DefaultOptions().Override(c.Options)

	s := &System{
		config:   c.Clone(),
		dt:       opts.Dt,
		substeps: opts.Substeps,
		friction: opts.Friction,
	}
	if s.substeps < 1 {
		s.substeps = 1
	}

	qp, err := defaultQP(s.config)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	s.defaultQP = qp

	s.collide = make(map[[2]int]bool, len(c.CollideInclude))
	for _, pair := range c.CollideInclude {
		first, ok := s.config.Index(sim.Body, pair.First)
		if !ok {
			return nil, fmt.Errorf("new: collide_include references "+
				"unknown body %q", pair.First)
		}
		second, ok := s.config.Index(sim.Body, pair.Second)
		if !ok {
			return nil, fmt.Errorf("new: collide_include references "+
				"unknown body %q", pair.Second)
		}
		s.collide[[2]int{first, second}] = true
		s.collide[[2]int{second, first}] = true
	}

	if err := s.build(qp); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	s.actuatorJoint = make([]int, len(c.Actuators))
	for i, a := range s.config.Actuators {
		j, ok := s.config.Index(sim.Joint, a.Joint)
		if !ok {
			return nil, fmt.Errorf("new: actuator %q drives unknown "+
				"joint %q", a.Name, a.Joint)
		}
		s.actuatorJoint[i] = j
	}

	return s, nil
}

// build replaces the Box2D world with a fresh one holding the bodies
// and joints of the Config at the positions of qp. Joint impulses and
// contacts of earlier steps are discarded.
func (s *System) build(qp sim.QP) error {
	s.world = box2d.MakeB2World(box2d.MakeB2Vec2(0.0, 0.0))
	s.contacts = make([]int, len(s.config.Bodies))

	s.bodies = make([]*box2d.B2Body, len(s.config.Bodies))
	s.index = make(map[*box2d.B2Body]int, len(s.config.Bodies))
	for i, spec := range s.config.Bodies {
		s.bodies[i] = s.createBody(i, spec, qp.Pos[i], s.friction)
	}

	s.joints = make([]*box2d.B2RevoluteJoint, len(s.config.Joints))
	for i, spec := range s.config.Joints {
		joint, err := s.createJoint(spec)
		if err != nil {
			return err
		}
		s.joints[i] = joint
	}

	s.world.SetContactListener(newContactDetector(s))
	return nil
}

func (s *System) createBody(index int, spec sim.BodySpec, pos r3.Vec,
	friction float64) *box2d.B2Body {
	def := box2d.MakeB2BodyDef()
	if spec.Frozen {
		def.Type = 0 // Static body
	} else {
		def.Type = 2 // Dynamic body
	}
	def.Position = box2d.MakeB2Vec2(pos.X, pos.Y)
	def.LinearDamping = friction
	def.AngularDamping = friction

	body := s.world.CreateBody(&def)
	s.index[body] = index

	radius := MinRadius
	for _, col := range spec.Colliders {
		switch col.Shape {
		case sim.Plane:
			// Planes lie beneath the simulated plane of motion
			continue

		case sim.Box:
			shape := box2d.NewB2PolygonShape()
			shape.SetAsBox(math.Max(col.HalfSize.X, MinRadius),
				math.Max(col.HalfSize.Y, MinRadius))
			s.attach(body, shape, spec.Mass, 4*col.HalfSize.X*col.HalfSize.Y)

		default:
			r := math.Max(col.Radius+col.Length/2, MinRadius)
			radius = math.Max(radius, r)
			shape := box2d.NewB2CircleShape()
			shape.M_radius = r
			s.attach(body, shape, spec.Mass, math.Pi*r*r)
		}
	}

	// Dynamic bodies need some mass even without colliders
	if len(spec.Colliders) == 0 && !spec.Frozen {
		shape := box2d.NewB2CircleShape()
		shape.M_radius = radius
		fix := box2d.MakeB2FixtureDef()
		fix.Shape = shape
		fix.Density = density(spec.Mass, math.Pi*radius*radius)
		fix.IsSensor = true
		body.CreateFixtureFromDef(&fix)
	}

	return body
}

func (s *System) attach(body *box2d.B2Body, shape box2d.B2ShapeInterface,
	mass, area float64) {
	fix := box2d.MakeB2FixtureDef()
	fix.Shape = shape
	fix.Density = density(mass, area)
	fix.Friction = 0.0
	fix.Restitution = 0.0
	body.CreateFixtureFromDef(&fix)
}

func density(mass, area float64) float64 {
	if mass <= 0 || area <= 0 {
		return 1.0
	}
	return mass / area
}

func (s *System) createJoint(spec sim.JointSpec) (*box2d.B2RevoluteJoint,
	error) {
	parent, ok := s.config.Index(sim.Body, spec.Parent)
	if !ok {
		return nil, fmt.Errorf("joint %q has unknown parent %q", spec.Name,
			spec.Parent)
	}
	child, ok := s.config.Index(sim.Body, spec.Child)
	if !ok {
		return nil, fmt.Errorf("joint %q has unknown child %q", spec.Name,
			spec.Child)
	}

	rjd := box2d.MakeB2RevoluteJointDef()
	rjd.BodyA = s.bodies[parent]
	rjd.BodyB = s.bodies[child]
	rjd.LocalAnchorA = box2d.MakeB2Vec2(spec.ParentOffset.X,
		spec.ParentOffset.Y)
	rjd.LocalAnchorB = box2d.MakeB2Vec2(spec.ChildOffset.X, spec.ChildOffset.Y)
	if len(spec.AngleLimits) > 0 {
		rjd.EnableLimit = true
		rjd.LowerAngle = spec.AngleLimits[0].Min * math.Pi / 180
		rjd.UpperAngle = spec.AngleLimits[0].Max * math.Pi / 180
	}

	joint, ok := s.world.CreateJoint(&rjd).(*box2d.B2RevoluteJoint)
	if !ok {
		return nil, fmt.Errorf("joint %q is not a revolute joint", spec.Name)
	}
	return joint, nil
}

// defaultQP lays bodies out along their joint offsets. Bodies that are
// not the child of any joint are roots and rest at the origin.
func defaultQP(c *sim.Config) (sim.QP, error) {
	qp := sim.NewQP(len(c.Bodies))
	placed := make([]bool, len(c.Bodies))
	isChild := make([]bool, len(c.Bodies))

	for _, j := range c.Joints {
		child, ok := c.Index(sim.Body, j.Child)
		if !ok {
			return sim.QP{}, fmt.Errorf("defaultQP: joint %q has unknown "+
				"child %q", j.Name, j.Child)
		}
		isChild[child] = true
	}
	for i, b := range c.Bodies {
		if !isChild[i] {
			placed[i] = true
			if !b.Frozen {
				qp.Pos[i] = r3.Vec{Z: DefaultHeight}
			}
		}
	}

	// Joints may be listed in any order, so sweep until nothing changes
	for changed := true; changed; {
		changed = false
		for _, j := range c.Joints {
			parent, ok := c.Index(sim.Body, j.Parent)
			if !ok {
				return sim.QP{}, fmt.Errorf("defaultQP: joint %q has "+
					"unknown parent %q", j.Name, j.Parent)
			}
			child, _ := c.Index(sim.Body, j.Child)
			if !placed[parent] || placed[child] {
				continue
			}
			p := qp.Pos[parent]
			qp.Pos[child] = r3.Vec{
				X: p.X + j.ParentOffset.X - j.ChildOffset.X,
				Y: p.Y + j.ParentOffset.Y - j.ChildOffset.Y,
				Z: p.Z + j.ParentOffset.Z - j.ChildOffset.Z,
			}
			placed[child] = true
			changed = true
		}
	}
	return qp, nil
}

// Config returns the configuration of the System
func (s *System) Config() *sim.Config {
	return s.config
}

// DefaultQP returns the resting state of the System
func (s *System) DefaultQP() sim.QP {
	return s.defaultQP.Clone()
}

// Info computes joint angles and velocities of qp. Contacts are only
// known after stepping, so Info reports none.
func (s *System) Info(qp sim.QP) (sim.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(qp); err != nil {
		return sim.Info{}, fmt.Errorf("info: %v", err)
	}
	info := s.info()
	for i := range info.Contact {
		info.Contact[i] = r3.Vec{}
	}
	return info, nil
}

// Step advances qp by one control step. Actions are clipped to [-1, 1]
// and scaled by actuator strength into torques about the driven joint.
func (s *System) Step(qp sim.QP, action []float64) (sim.QP, sim.Info,
	error) {
	if len(action) != len(s.actuatorJoint) {
		return sim.QP{}, sim.Info{}, fmt.Errorf("step: invalid action "+
			"dimensions \n\thave(%v) \n\twant(%v)", len(action),
			len(s.actuatorJoint))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(qp); err != nil {
		return sim.QP{}, sim.Info{}, fmt.Errorf("step: %v", err)
	}

	action = floatutils.ClipSlice(action, actionBounds)
	h := s.dt / float64(s.substeps)
	for k := 0; k < s.substeps; k++ {
		for i, j := range s.actuatorJoint {
			torque := action[i] * s.config.Actuators[i].Strength
			s.joints[j].GetBodyB().ApplyTorque(torque, true)
			s.joints[j].GetBodyA().ApplyTorque(-torque, true)
		}
		s.world.Step(h, VelocityIterations, PositionIterations)
	}

	next := sim.NewQP(len(s.bodies))
	for i, b := range s.bodies {
		pos := b.GetPosition()
		vel := b.GetLinearVelocity()
		next.Pos[i] = r3.Vec{X: pos.X, Y: pos.Y, Z: qp.Pos[i].Z}
		next.Rot[i] = yawQuat(b.GetAngle())
		next.Vel[i] = r3.Vec{X: vel.X, Y: vel.Y}
		next.Ang[i] = r3.Vec{Z: b.GetAngularVelocity()}
	}
	return next, s.info(), nil
}

// load rebuilds the Box2D world in the state qp
func (s *System) load(qp sim.QP) error {
	if qp.Len() != len(s.config.Bodies) {
		return fmt.Errorf("qp has %v bodies, system has %v", qp.Len(),
			len(s.config.Bodies))
	}
	if err := s.build(qp); err != nil {
		return err
	}
	for i, b := range s.bodies {
		b.SetTransform(box2d.MakeB2Vec2(qp.Pos[i].X, qp.Pos[i].Y),
			yaw(qp.Rot[i]))
		b.SetLinearVelocity(box2d.MakeB2Vec2(qp.Vel[i].X, qp.Vel[i].Y))
		b.SetAngularVelocity(qp.Ang[i].Z)
	}
	return nil
}

func (s *System) info() sim.Info {
	info := sim.Info{
		Contact:    make([]r3.Vec, len(s.bodies)),
		JointAngle: make([]float64, len(s.joints)),
		JointVel:   make([]float64, len(s.joints)),
	}
	for i, n := range s.contacts {
		info.Contact[i] = r3.Vec{X: float64(n)}
	}
	for i, j := range s.joints {
		info.JointAngle[i] = j.GetJointAngle()
		info.JointVel[i] = j.GetJointSpeed()
	}
	return info
}

func yaw(q quat.Number) float64 {
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag),
		1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

func yawQuat(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Kmag: math.Sin(angle / 2)}
}
