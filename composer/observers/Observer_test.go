package observers

import (
	"encoding/json"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/sim"
)

type staticSystem struct {
	config *sim.Config
}

func (s *staticSystem) Config() *sim.Config { return s.config }

func (s *staticSystem) DefaultQP() sim.QP { return sim.NewQP(len(s.config.Bodies)) }

func (s *staticSystem) Info(sim.QP) (sim.Info, error) { return sim.Info{}, nil }

func (s *staticSystem) Step(qp sim.QP, _ []float64) (sim.QP, sim.Info, error) {
	return qp, sim.Info{}, nil
}

func fixture() (*Context, map[string]components.Instance) {
	c := &sim.Config{
		Bodies: []sim.BodySpec{
			{Name: "torso_a1"}, {Name: "leg_a1"}, {Name: "torso_a2"},
		},
		Joints: []sim.JointSpec{
			{Name: "hip_a1", Parent: "torso_a1", Child: "leg_a1"},
		},
	}
	qp := sim.NewQP(3)
	qp.Pos[0] = r3.Vec{X: 1, Y: 2, Z: 0.5}
	qp.Pos[2] = r3.Vec{X: 4, Y: -2, Z: 0.5}
	qp.Vel[0] = r3.Vec{X: 1}
	info := sim.Info{
		Contact:    make([]r3.Vec, 3),
		JointAngle: []float64{0.3},
		JointVel:   []float64{-1},
	}

	comps := map[string]components.Instance{
		"a1": {Name: "a1", Suffix: "a1", Root: "torso_a1",
			Bodies: []string{"torso_a1", "leg_a1"}, Joints: []string{"hip_a1"}},
		"a2": {Name: "a2", Suffix: "a2", Root: "torso_a2",
			Bodies: []string{"torso_a2"}},
	}
	return NewContext(&staticSystem{c}, qp, info), comps
}

func decode(t *testing.T, data string) Desc {
	t.Helper()
	var d Desc
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDecodeRejectsUnknown(t *testing.T) {
	bad := []string{
		`"qp"`,
		`{"observer_type": "unknown"}`,
		`{"observer_type": "root_vec", "indices": [0], "scale": 2}`,
		`{"observer_type": "sim", "sdtype": "body", "sdcomp": "pos",
		  "sdname": "torso", "extra": 1}`,
	}
	for _, data := range bad {
		var d Desc
		if err := json.Unmarshal([]byte(data), &d); err == nil {
			t.Errorf("unmarshal %v: expected error", data)
		}
	}
}

func TestPresetRoundTrip(t *testing.T) {
	d := decode(t, `"root_z_joints"`)
	if d.Type() != RootZJointsType {
		t.Errorf("preset type: want(%v) have(%v)", RootZJointsType, d.Type())
	}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"root_z_joints"` {
		t.Errorf("marshal preset: have(%s)", data)
	}
}

func TestRootZJoints(t *testing.T) {
	ctx, comps := fixture()
	self := comps["a1"]
	obs, err := Binder{Self: &self, Components: comps}.Bind(
		decode(t, `"root_z_joints"`).Spec)
	if err != nil {
		t.Fatal(err)
	}

	out := NewDict()
	if err := obs.Observe(ctx, out); err != nil {
		t.Fatal(err)
	}

	// z(1) + rot(4) + vel(3) + ang(3) + joint angle(1) + joint vel(1)
	if out.Size() != 13 {
		t.Errorf("size: want(13) have(%v) keys %v", out.Size(), out.Keys())
	}
	if z, _ := out.Get("body_pos_torso_a1[2]"); !reflect.DeepEqual(z,
		[]float64{0.5}) {
		t.Errorf("root z: want([0.5]) have(%v)", z)
	}
	if a, _ := out.Get("joint_angle_a1"); !reflect.DeepEqual(a,
		[]float64{0.3}) {
		t.Errorf("joint angle: want([0.3]) have(%v)", a)
	}
}

func TestRootVec(t *testing.T) {
	ctx, comps := fixture()
	d := decode(t, `{"observer_type": "root_vec", "indices": [0, 1]}`)

	if _, err := (Binder{Components: comps}).Bind(d.Spec); err == nil {
		t.Error("bind: expected error for root_vec outside of an edge")
	}

	obs, err := Binder{
		Pair:       []components.Instance{comps["a1"], comps["a2"]},
		Components: comps,
	}.Bind(d.Spec)
	if err != nil {
		t.Fatal(err)
	}
	out := NewDict()
	if err := obs.Observe(ctx, out); err != nil {
		t.Fatal(err)
	}
	v, ok := out.Get("root_vec_a1__a2")
	if !ok {
		t.Fatalf("missing root_vec_a1__a2 in %v", out.Keys())
	}
	if want := []float64{-3, 4}; !reflect.DeepEqual(v, want) {
		t.Errorf("root vec: want(%v) have(%v)", want, v)
	}
}

func TestLambdaAcrossComponents(t *testing.T) {
	ctx, comps := fixture()
	spec := NewLambdaSpec("delta_pos", Sub,
		NewSimSpec(sim.Body, "pos", "torso", "a1"),
		NewSimSpec(sim.Body, "pos", "torso", "a2"),
	)

	// Round trip through JSON to exercise the nested Desc decoding
	data, err := json.Marshal(Desc{spec})
	if err != nil {
		t.Fatal(err)
	}
	d := decode(t, string(data))

	obs, err := Binder{Components: comps}.Bind(d.Spec)
	if err != nil {
		t.Fatal(err)
	}
	out := NewDict()
	if err := obs.Observe(ctx, out); err != nil {
		t.Fatal(err)
	}
	v, _ := out.Get("delta_pos")
	if want := []float64{-3, 4, 0}; !reflect.DeepEqual(v, want) {
		t.Errorf("delta_pos: want(%v) have(%v)", want, v)
	}

	// The lambda must not modify memoized lookups
	pos, err := ctx.Lookup(sim.Body, "pos", "torso_a1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []float64{1, 2, 0.5}; !reflect.DeepEqual(pos, want) {
		t.Errorf("memoized position modified: want(%v) have(%v)", want, pos)
	}
}

func TestMemoization(t *testing.T) {
	ctx, comps := fixture()
	self := comps["a1"]
	b := Binder{Self: &self, Components: comps}

	root, err := b.Bind(NewSimSpec(sim.Body, "pos", "torso", ""))
	if err != nil {
		t.Fatal(err)
	}
	preset, err := b.Bind(&PresetSpec{ObserverType: RootJointsType})
	if err != nil {
		t.Fatal(err)
	}

	out := NewDict()
	if err := root.Observe(ctx, out); err != nil {
		t.Fatal(err)
	}
	if err := preset.Observe(ctx, out); err != nil {
		t.Fatal(err)
	}
	// pos, rot, vel, ang of the root and angle, vel of one joint
	if n := ctx.Lookups(); n != 6 {
		t.Errorf("lookups: want(6) have(%v)", n)
	}
	// body_pos_torso_a1 was observed twice, and the first value wins
	if out.Len() != 6 {
		t.Errorf("entries: want(6) have(%v) %v", out.Len(), out.Keys())
	}
}

func TestDict(t *testing.T) {
	d := NewDict()
	d.Add("a", []float64{1, 2})
	if d.Add("a", []float64{3}) {
		t.Error("add: existing key replaced")
	}
	d.Add("b", []float64{3})

	other := NewDict()
	other.Add("b", []float64{9})
	other.Add("c", []float64{4, 5})
	d.Union(other)

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(d.Keys(), want) {
		t.Errorf("keys: want(%v) have(%v)", want, d.Keys())
	}
	if want := []float64{1, 2, 3, 4, 5}; !reflect.DeepEqual(d.Values(), want) {
		t.Errorf("values: want(%v) have(%v)", want, d.Values())
	}

	split := Split(d.Values(), d.Spans())
	if !reflect.DeepEqual(split.Keys(), d.Keys()) ||
		!reflect.DeepEqual(split.Values(), d.Values()) {
		t.Errorf("split: want(%v) have(%v)", d.Values(), split.Values())
	}
}
