package components

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/shaclearn/sim"
)

// Ant geometry
const (
	AntRoot = "torso"

	antTorsoRadius float64 = 0.25
	antLimbRadius  float64 = 0.08
	antAuxLength   float64 = 0.28
	antLegLength   float64 = 0.56
	antTorsoMass   float64 = 10.0
	antLimbMass    float64 = 1.0
	antStrength    float64 = 350.0

	// An ant is healthy while its torso height lies in this range
	antMinZ float64 = 0.2
	antMaxZ float64 = 1.0
)

// AntTermParams configure the termination condition of an ant
type AntTermParams struct {
	// ZOffset shifts the healthy torso height range, e.g. for an ant
	// placed on top of another body
	ZOffset float64 `json:"z_offset"`
}

// AntParams configures the four-legged ant. The ant takes no
// parameters.
type AntParams struct{}

func (a *AntParams) setDefaults() {}

// Validate satisfies the Params interface
func (a *AntParams) Validate() error { return nil }

func (a *AntParams) describe(term json.RawMessage) (*Description, error) {
	return antDescription(4, term)
}

// ProAntParams configures an ant with any number of legs
type ProAntParams struct {
	NumLegs int `json:"num_legs"`
}

func (p *ProAntParams) setDefaults() {
	p.NumLegs = 4
}

// Validate satisfies the Params interface
func (p *ProAntParams) Validate() error {
	if p.NumLegs < 1 {
		return fmt.Errorf("num_legs must be positive, have(%v)", p.NumLegs)
	}
	return nil
}

func (p *ProAntParams) describe(term json.RawMessage) (*Description,
	error) {
	return antDescription(p.NumLegs, term)
}

// antDescription builds an ant with legs evenly spaced around its
// torso. Leg i consists of an upper (aux_i) and lower (leg_i) limb
// connected to the torso by hip_i and to each other by knee_i.
func antDescription(legs int, term json.RawMessage) (*Description, error) {
	var tp AntTermParams
	if err := Decode(term, &tp); err != nil {
		return nil, fmt.Errorf("invalid term params: %v", err)
	}

	c := &sim.Config{
		Bodies: []sim.BodySpec{{
			Name: AntRoot,
			Mass: antTorsoMass,
			Colliders: []sim.Collider{
				{Shape: sim.Sphere, Radius: antTorsoRadius},
			},
		}},
	}
	collides := []string{AntRoot}

	for i := 1; i <= legs; i++ {
		angle := 2 * math.Pi * float64(i-1) / float64(legs)
		dir := r3.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
		scale := func(s float64) r3.Vec {
			return r3.Vec{X: dir.X * s, Y: dir.Y * s}
		}

		aux := fmt.Sprintf("aux_%d", i)
		leg := fmt.Sprintf("leg_%d", i)
		hip := fmt.Sprintf("hip_%d", i)
		knee := fmt.Sprintf("knee_%d", i)

		c.Bodies = append(c.Bodies,
			sim.BodySpec{
				Name: aux,
				Mass: antLimbMass,
				Colliders: []sim.Collider{{
					Shape:  sim.Capsule,
					Radius: antLimbRadius,
					Length: antAuxLength,
				}},
			},
			sim.BodySpec{
				Name: leg,
				Mass: antLimbMass,
				Colliders: []sim.Collider{{
					Shape:  sim.Capsule,
					Radius: antLimbRadius,
					Length: antLegLength,
				}},
			},
		)

		c.Joints = append(c.Joints,
			sim.JointSpec{
				Name:         hip,
				Parent:       AntRoot,
				Child:        aux,
				Stiffness:    5000,
				ParentOffset: scale(antTorsoRadius),
				ChildOffset:  scale(-antAuxLength / 2),
				AngleLimits:  []sim.Limit{{Min: -30, Max: 30}},
			},
			sim.JointSpec{
				Name:         knee,
				Parent:       aux,
				Child:        leg,
				Stiffness:    5000,
				ParentOffset: scale(antAuxLength / 2),
				ChildOffset:  scale(-antLegLength / 2),
				AngleLimits:  []sim.Limit{{Min: 30, Max: 70}},
			},
		)

		c.Actuators = append(c.Actuators,
			sim.ActuatorSpec{Name: hip, Joint: hip, Strength: antStrength},
			sim.ActuatorSpec{Name: knee, Joint: knee, Strength: antStrength},
		)

		collides = append(collides, leg)
	}

	minZ, maxZ := antMinZ+tp.ZOffset, antMaxZ+tp.ZOffset
	termFn := func(done bool, sys sim.System, qp sim.QP, info sim.Info,
		self Instance) bool {
		root, ok := sys.Config().Index(sim.Body, self.Root)
		if !ok {
			return done
		}
		z := qp.Pos[root].Z
		return done || z < minZ || z > maxZ
	}

	return &Description{
		Root:             AntRoot,
		Config:           c,
		Collides:         collides,
		Term:             termFn,
		DefaultObservers: []string{"root_z_joints"},
	}, nil
}
