package box2dsys

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/shaclearn/sim"
)

func arm() *sim.Config {
	return &sim.Config{
		Bodies: []sim.BodySpec{
			{Name: "ground", Frozen: true, Colliders: []sim.Collider{
				{Shape: sim.Plane},
			}},
			{Name: "torso", Mass: 10, Colliders: []sim.Collider{
				{Shape: sim.Sphere, Radius: 0.25},
			}},
			{Name: "link", Mass: 1, Colliders: []sim.Collider{
				{Shape: sim.Capsule, Radius: 0.08, Length: 0.5},
			}},
		},
		Joints: []sim.JointSpec{
			{
				Name:         "hip",
				Parent:       "torso",
				Child:        "link",
				ParentOffset: r3.Vec{X: 0.2},
				ChildOffset:  r3.Vec{X: -0.3},
				AngleLimits:  []sim.Limit{{Min: -60, Max: 60}},
			},
		},
		Actuators: []sim.ActuatorSpec{
			{Name: "hip_motor", Joint: "hip", Strength: 50},
		},
		CollideInclude: []sim.CollidePair{{First: "torso", Second: "ground"}},
	}
}

func TestDefaultQP(t *testing.T) {
	sys, err := New(arm())
	if err != nil {
		t.Fatal(err)
	}
	qp := sys.DefaultQP()

	if qp.Pos[0] != (r3.Vec{}) {
		t.Errorf("frozen root should rest at origin, have(%v)", qp.Pos[0])
	}
	if want := (r3.Vec{Z: DefaultHeight}); qp.Pos[1] != want {
		t.Errorf("torso position: want(%v) have(%v)", want, qp.Pos[1])
	}
	if want := (r3.Vec{X: 0.5, Z: DefaultHeight}); math.Abs(qp.Pos[2].X-
		want.X) > 1e-12 || qp.Pos[2].Z != want.Z {
		t.Errorf("link position: want(%v) have(%v)", want, qp.Pos[2])
	}

	// Mutating the returned state must not change the default
	qp.Pos[1].X = 100
	if sys.DefaultQP().Pos[1].X != 0 {
		t.Error("DefaultQP returned shared state")
	}
}

func TestStep(t *testing.T) {
	sys, err := New(arm())
	if err != nil {
		t.Fatal(err)
	}
	qp := sys.DefaultQP()

	next, info, err := sys.Step(qp, []float64{1.0})
	if err != nil {
		t.Fatal(err)
	}
	if len(info.JointAngle) != 1 || len(info.Contact) != 3 {
		t.Fatalf("info dimensions: have(%v joints, %v bodies)",
			len(info.JointAngle), len(info.Contact))
	}
	if info.JointVel[0] == 0 {
		t.Error("actuated joint did not move")
	}
	if next.Pos[0] != qp.Pos[0] {
		t.Errorf("frozen body moved: have(%v)", next.Pos[0])
	}
	for i := range next.Pos {
		if next.Pos[i].Z != qp.Pos[i].Z {
			t.Errorf("body %v height changed: want(%v) have(%v)", i,
				qp.Pos[i].Z, next.Pos[i].Z)
		}
	}

	if _, _, err := sys.Step(qp, []float64{1, 2}); err == nil {
		t.Error("step: expected error for invalid action dimensions")
	}
}

func TestUnknownReferences(t *testing.T) {
	c := arm()
	c.Joints[0].Parent = "missing"
	if _, err := New(c); err == nil {
		t.Error("new: expected error for joint with unknown parent")
	}

	c = arm()
	c.Actuators[0].Joint = "missing"
	if _, err := New(c); err == nil {
		t.Error("new: expected error for actuator with unknown joint")
	}

	c = arm()
	c.CollideInclude = append(c.CollideInclude,
		sim.CollidePair{First: "link", Second: "missing"})
	if _, err := New(c); err == nil {
		t.Error("new: expected error for unknown collision body")
	}
}

func TestStepIsPure(t *testing.T) {
	sys, err := New(arm())
	if err != nil {
		t.Fatal(err)
	}

	// Drive the link against its joint limit
	qp := sys.DefaultQP()
	for i := 0; i < 60; i++ {
		if qp, _, err = sys.Step(qp, []float64{1}); err != nil {
			t.Fatal(err)
		}
	}

	first, firstInfo, err := sys.Step(qp, []float64{1})
	if err != nil {
		t.Fatal(err)
	}

	// Step an unrelated state in between
	other := sys.DefaultQP()
	for i := 0; i < 3; i++ {
		if other, _, err = sys.Step(other, []float64{-1}); err != nil {
			t.Fatal(err)
		}
	}

	second, secondInfo, err := sys.Step(qp, []float64{1})
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Pos {
		if first.Pos[i] != second.Pos[i] || first.Vel[i] != second.Vel[i] ||
			first.Rot[i] != second.Rot[i] || first.Ang[i] != second.Ang[i] {
			t.Errorf("body %v: step depends on earlier steps "+
				"\n\tfirst(%v %v)\n\tsecond(%v %v)", i, first.Pos[i],
				first.Vel[i], second.Pos[i], second.Vel[i])
		}
		if firstInfo.Contact[i] != secondInfo.Contact[i] {
			t.Errorf("body %v contacts: want(%v) have(%v)", i,
				firstInfo.Contact[i], secondInfo.Contact[i])
		}
	}
	if firstInfo.JointVel[0] != secondInfo.JointVel[0] {
		t.Errorf("joint velocity: want(%v) have(%v)", firstInfo.JointVel[0],
			secondInfo.JointVel[0])
	}
}
