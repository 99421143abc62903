package sim

import (
	"reflect"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func twoLinks(prefix string) *Config {
	return &Config{
		Bodies: []BodySpec{
			{
				Name: prefix + "_a",
				Mass: 1,
				Colliders: []Collider{
					{Shape: Capsule, Radius: 0.25, Length: 1,
						Position: r3.Vec{Z: 0.5}},
				},
			},
			{Name: prefix + "_b", Mass: 2},
		},
		Joints: []JointSpec{
			{
				Name:         prefix + "_hinge",
				Parent:       prefix + "_a",
				Child:        prefix + "_b",
				Stiffness:    5000,
				ParentOffset: r3.Vec{X: 0.5},
				AngleLimits:  []Limit{{Min: -30, Max: 30}},
			},
		},
		Actuators: []ActuatorSpec{
			{Name: prefix + "_motor", Joint: prefix + "_hinge", Strength: 300},
		},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := twoLinks("x")
	c.Options = DefaultOptions()

	text, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Unmarshal(text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, parsed) {
		t.Errorf("round trip mismatch\n\twant(%+v)\n\thave(%+v)", c, parsed)
	}
}

func TestConcatFragments(t *testing.T) {
	a, b := twoLinks("a"), twoLinks("b")
	textA, err := Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	textB, err := Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	global, err := Marshal(&Config{Options: DefaultOptions()})
	if err != nil {
		t.Fatal(err)
	}

	merged, err := Unmarshal(Concat(textA, textB, global))
	if err != nil {
		t.Fatal(err)
	}

	for _, kind := range []Kind{Body, Joint, Actuator} {
		want := append(a.Names(kind), b.Names(kind)...)
		have := merged.Names(kind)
		sort.Strings(want)
		sort.Strings(have)
		if !reflect.DeepEqual(want, have) {
			t.Errorf("%v names: want(%v) have(%v)", kind, want, have)
		}
	}
	if !reflect.DeepEqual(merged.Options, DefaultOptions()) {
		t.Errorf("options: want(%+v) have(%+v)", DefaultOptions(),
			merged.Options)
	}
}

func TestConcatEmptyFragments(t *testing.T) {
	if got := Concat("", "", ""); got != "" {
		t.Errorf("concat of empty fragments: want(\"\") have(%q)", got)
	}
	c, err := Unmarshal(Concat())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Bodies) != 0 {
		t.Errorf("empty document should have no bodies, have(%v)",
			len(c.Bodies))
	}
}

func TestIndices(t *testing.T) {
	c := twoLinks("x")

	indices, mask, err := c.Indices(Body, []string{"x_b", "x_a"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{1, 0}) {
		t.Errorf("indices: want([1 0]) have(%v)", indices)
	}
	if !reflect.DeepEqual(mask, []bool{true, true}) {
		t.Errorf("mask: want([true true]) have(%v)", mask)
	}

	_, mask, err = c.Indices(Joint, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mask, []bool{false}) {
		t.Errorf("mask: want([false]) have(%v)", mask)
	}

	if _, _, err := c.Indices(Actuator, []string{"missing"}); err == nil {
		t.Error("indices: expected error for unknown actuator")
	}
}

func TestClone(t *testing.T) {
	c := twoLinks("x")
	clone := c.Clone()
	clone.Bodies[0].Name = "changed"
	clone.Joints[0].AngleLimits[0].Min = 0

	if c.Bodies[0].Name != "x_a" {
		t.Error("clone: body modification leaked into original")
	}
	if c.Joints[0].AngleLimits[0].Min != -30 {
		t.Error("clone: joint limit modification leaked into original")
	}
}
