package composer

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/sim"
)

const biAnt = `{
	"components": {
		"agent1": {"component": "ant", "pos": [0, 1, 0]},
		"agent2": {"component": "ant", "pos": [0, -1, 0]}
	},
	"extra_observers": [
		{"observer_type": "lambda", "name": "delta_pos", "fn": "-",
		 "observers": [
			{"observer_type": "sim", "sdtype": "body", "sdcomp": "pos",
			 "sdname": "torso", "comp_name": "agent1"},
			{"observer_type": "sim", "sdtype": "body", "sdcomp": "pos",
			 "sdname": "torso", "comp_name": "agent2"}
		 ]}
	],
	"edges": {"agent1__agent2": {"collide_type": null}}
}`

func mustParse(t *testing.T, data string) *Desc {
	t.Helper()
	d, err := ParseDesc([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func mustNew(t *testing.T, data string) *Composer {
	t.Helper()
	c, err := New(mustParse(t, data))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDeterministicConfigText(t *testing.T) {
	first := mustNew(t, biAnt)
	for i := 0; i < 5; i++ {
		again := mustNew(t, biAnt)
		if first.ConfigText() != again.ConfigText() {
			t.Fatal("config text differs between identical compositions")
		}
	}
}

func TestBiAnt(t *testing.T) {
	c := mustNew(t, biAnt)
	m := c.Metadata()

	var names []string
	for _, inst := range m.Components {
		names = append(names, inst.Name)
	}
	if want := "agent1 agent2 ground"; strings.Join(names, " ") != want {
		t.Errorf("components: want(%v) have(%v)", want, names)
	}

	var keys []string
	for _, e := range m.Edges {
		keys = append(keys, e.Key)
	}
	want := "agent1__agent2 agent1__ground agent2__ground"
	if strings.Join(keys, " ") != want {
		t.Errorf("edges: want(%v) have(%v)", want, keys)
	}

	edge := m.Edges[0]
	if edge.CollideType != CollideNone || len(edge.Pairs) != 0 {
		t.Errorf("agent1__agent2: want no collisions, have %v %v",
			edge.CollideType, edge.Pairs)
	}

	// Every renamed body of every component is in the merged config
	// exactly once
	seen := make(map[string]int)
	for _, b := range m.Config.Names(sim.Body) {
		seen[b]++
	}
	total := 0
	for _, inst := range m.Components {
		for _, b := range inst.Bodies {
			total++
			if seen[b] != 1 {
				t.Errorf("body %v appears %v times in merged config", b,
					seen[b])
			}
		}
	}
	if total != len(seen) {
		t.Errorf("merged config has %v bodies, components have %v",
			len(seen), total)
	}

	// No collision pair may connect the two ants
	agent1, _ := c.Component("agent1")
	agent2, _ := c.Component("agent2")
	owner := make(map[string]string)
	for _, b := range agent1.Bodies {
		owner[b] = "agent1"
	}
	for _, b := range agent2.Bodies {
		owner[b] = "agent2"
	}
	for _, p := range m.Config.CollideInclude {
		a, b := owner[p.First], owner[p.Second]
		if a != "" && b != "" && a != b {
			t.Errorf("inter-agent collision pair %v", p)
		}
	}
}

func TestRenamedNamesDisjoint(t *testing.T) {
	c := mustNew(t, biAnt)
	agent1, _ := c.Component("agent1")
	agent2, _ := c.Component("agent2")

	for _, k := range []sim.Kind{sim.Body, sim.Joint, sim.Actuator} {
		names := make(map[string]bool)
		for _, n := range agent1.Config.Names(k) {
			names[n] = true
		}
		for _, n := range agent2.Config.Names(k) {
			if names[n] {
				t.Errorf("%v %v shared by both instances", k, n)
			}
		}
	}
	if agent1.Root != "torso_agent1" {
		t.Errorf("root: want(torso_agent1) have(%v)", agent1.Root)
	}
}

func TestEdgeCount(t *testing.T) {
	for n := 1; n <= 4; n++ {
		var comps []string
		for i := 1; i <= n; i++ {
			comps = append(comps, fmt.Sprintf(`"a%d": {"component": "ant"}`, i))
		}
		c := mustNew(t, `{"components": {`+strings.Join(comps, ",")+`}}`)

		// Ground is added to the n ants
		want := (n + 1) * n / 2
		edges := c.Metadata().Edges
		if len(edges) != want {
			t.Errorf("%v components: want(%v) edges have(%v)", n+1, want,
				len(edges))
		}
		seen := make(map[string]bool)
		for _, e := range edges {
			if seen[e.Key] {
				t.Errorf("duplicate edge %v", e.Key)
			}
			seen[e.Key] = true
			if !(e.First < e.Second) || e.Key != e.First+EdgeSep+e.Second {
				t.Errorf("edge key %v not sorted", e.Key)
			}
		}
	}
}

func TestCollideTypes(t *testing.T) {
	tests := []struct {
		collide string
		pairs   func(a, b *ComponentInstance) int
	}{
		{`"full"`, func(a, b *ComponentInstance) int {
			return len(a.Collides) * len(b.Collides)
		}},
		{`""`, func(a, b *ComponentInstance) int { return 0 }},
		{`"root"`, func(a, b *ComponentInstance) int { return 1 }},
		{`null`, func(a, b *ComponentInstance) int { return 0 }},
		{`false`, func(a, b *ComponentInstance) int { return 0 }},
	}

	for _, test := range tests {
		c := mustNew(t, `{
			"components": {
				"agent1": {"component": "ant"},
				"cap1": {"component": "singleton"}
			},
			"add_ground": false,
			"edges": {"agent1__cap1": {"collide_type": `+test.collide+`}}
		}`)
		a, _ := c.Component("agent1")
		b, _ := c.Component("cap1")
		edges := c.Metadata().Edges
		if len(edges) != 1 {
			t.Fatalf("want one edge, have(%v)", len(edges))
		}
		if want := test.pairs(a, b); len(edges[0].Pairs) != want {
			t.Errorf("collide_type %v: want(%v) pairs have(%v)", test.collide,
				want, len(edges[0].Pairs))
		}
		if len(c.Metadata().Config.CollideInclude) != len(edges[0].Pairs) {
			t.Errorf("collide_type %v: merged config has %v pairs",
				test.collide, len(c.Metadata().Config.CollideInclude))
		}
	}

	// Without a description the policy is full
	c := mustNew(t, `{"components": {"agent1": {"component": "ant"}}}`)
	edge := c.Metadata().Edges[0]
	a, _ := c.Component("agent1")
	if edge.CollideType != CollideFull || len(edge.Pairs) != len(a.Collides) {
		t.Errorf("default collide type: have %v with %v pairs",
			edge.CollideType, len(edge.Pairs))
	}
	// The ground is renamed with its instance name like any component
	if edge.Pairs[0] != (sim.CollidePair{First: "torso_agent1",
		Second: "ground_ground"}) {
		t.Errorf("first pair: have(%v)", edge.Pairs[0])
	}

	if _, err := New(mustParse(t, `{
		"components": {"agent1": {"component": "ant"}},
		"edges": {"agent1__ground": {"collide_type": "partial"}}
	}`)); err == nil {
		t.Error("new: expected error for unknown collide_type")
	}
}

func TestDuplicateReward(t *testing.T) {
	// The component suffix makes its reward name collide with the
	// edge reward dist_a__b
	_, err := New(mustParse(t, `{
		"components": {
			"a": {"component": "ant"},
			"b": {"component": "ant"},
			"c": {"component": "singleton", "suffix": "a__b",
				"reward_fns": {"dist": {"reward_type": "control_cost"}}}
		},
		"edges": {
			"a__b": {"reward_fns": {"dist": {"reward_type": "root_dist"}}}
		}
	}`))
	if !IsDuplicateReward(err) {
		t.Errorf("new: want duplicate reward error, have(%v)", err)
	}

	_, err = New(mustParse(t, `{
		"components": {
			"a": {"component": "ant", "suffix": "s",
				"reward_fns": {"goal": {"reward_type": "control_cost"}}},
			"b": {"component": "singleton", "suffix": "s",
				"reward_fns": {"goal": {"reward_type": "control_cost"}}}
		}
	}`))
	if !IsDuplicateReward(err) {
		t.Errorf("new: want duplicate reward error, have(%v)", err)
	}
	if !IsConstructionError(err) {
		t.Errorf("new: want construction error, have(%T)", err)
	}
}

func TestConstructionErrors(t *testing.T) {
	_, err := New(mustParse(t, `{
		"components": {"agent1": {"component": "ant"}},
		"edges": {"agent1__agent3": {}}
	}`))
	if !IsUnusedEdge(err) {
		t.Errorf("unused edge: have(%v)", err)
	}

	_, err = New(mustParse(t, `{"components": {"x": {"component": "octopus"}}}`))
	if !components.IsUnknownComponent(err) {
		t.Errorf("unknown component: have(%v)", err)
	}

	_, err = New(mustParse(t, `{
		"components": {
			"a": {"component": "ant", "suffix": "s"},
			"b": {"component": "ant", "suffix": "s"}
		}
	}`))
	if !IsNameCollision(err) {
		t.Errorf("name collision: have(%v)", err)
	}

	_, err = New(mustParse(t, `{
		"components": {"ground": {"component": "singleton"}}
	}`))
	if err == nil {
		t.Error("new: expected error for component named ground")
	}

	_, err = New(mustParse(t, `{
		"components": {"a": {"component": "ant", "pos": [1, 2]}}
	}`))
	if err == nil {
		t.Error("new: expected error for malformed position")
	}

	unknownFields := []string{
		`{"components": {"a": {"component": "ant", "colour": "red"}}}`,
		`{"components": {"a": {"component": "ant"}},
		  "edges": {"a__ground": {"collide": "full"}}}`,
		`{"components": {}, "walls": true}`,
	}
	for _, data := range unknownFields {
		if _, err := ParseDesc([]byte(data)); err == nil {
			t.Errorf("parseDesc %v: expected error", data)
		}
	}
}

func TestAgentGroups(t *testing.T) {
	desc := `{
		"components": {
			"agent1": {"component": "ant"},
			"agent2": {"component": "ant",
				"reward_fns": {"goal": {"reward_type": "root_goal",
					"sdcomp": "vel", "indices": [0, 1], "target_goal": [4, 0]}}}
		},
		"edges": {
			"agent1__agent2": {"reward_fns": {"dist": {"reward_type":
				"root_dist", "min_dist": 1}}}
		},
		"agent_groups": %s
	}`

	c := mustNew(t, fmt.Sprintf(desc, `{
		"agent2": {"reward_names": ["goal_agent2"]},
		"agent1": {"reward_names": ["dist_agent1__agent2"]}
	}`))
	groups := c.Metadata().AgentGroups
	if len(groups) != 2 || groups[0].Name != "agent1" {
		t.Errorf("agent groups not sorted: %v", groups)
	}

	bad := []string{
		`{"agent1": {"reward_names": ["goal_agent2"]}}`,
		`{"agent1": {"reward_names": ["goal_agent2", "dist_agent1__agent2",
			"missing"]}}`,
	}
	for _, groups := range bad {
		_, err := New(mustParse(t, fmt.Sprintf(desc, groups)))
		if !IsAgentGroupMismatch(err) {
			t.Errorf("agent groups %v: want mismatch error, have(%v)", groups,
				err)
		}
	}
}

func TestCloneIsolation(t *testing.T) {
	d := mustParse(t, biAnt)
	c, err := New(d)
	if err != nil {
		t.Fatal(err)
	}
	d.Components["agent3"] = ComponentDesc{Component: components.Ant}
	if _, ok := c.Component("agent3"); ok {
		t.Error("composer aliased the caller's description")
	}
	if _, ok := d.Components["ground"]; ok {
		t.Error("composer modified the caller's description")
	}
}

func TestResetAndTerm(t *testing.T) {
	c := mustNew(t, biAnt)
	sys := &fakeSystem{config: c.Config()}

	qp, err := c.ResetFn(sys, sys.DefaultQP())
	if err != nil {
		t.Fatal(err)
	}
	agent1, _ := c.Component("agent1")
	i, _ := sys.config.Index(sim.Body, agent1.Root)
	if p := qp.Pos[i]; p.X != 0 || p.Y != 1 || p.Z != 0.5 {
		t.Errorf("agent1 root: want(0 1 0.5) have(%v)", p)
	}
	ground, _ := sys.config.Index(sim.Body, "ground_ground")
	if p := qp.Pos[ground]; p.X != 0 || p.Y != 0 || p.Z != 0 {
		t.Errorf("ground moved: have(%v)", p)
	}

	if c.TermFn(false, sys, qp, sim.Info{}) {
		t.Error("healthy ants terminated")
	}
	qp.Pos[i].Z = 2
	if !c.TermFn(false, sys, qp, sim.Info{}) {
		t.Error("flying ant did not terminate")
	}
}

func TestObsFn(t *testing.T) {
	c := mustNew(t, biAnt)
	sys := &fakeSystem{config: c.Config()}
	qp, err := c.ResetFn(sys, sys.DefaultQP())
	if err != nil {
		t.Fatal(err)
	}
	info, _ := sys.Info(qp)

	obs, features, err := c.ObsFn(sys, qp, info)
	if err != nil {
		t.Fatal(err)
	}
	keys := obs.Keys()
	if keys[len(keys)-1] != "delta_pos" {
		t.Errorf("extra observers must follow component observers: %v", keys)
	}
	delta, _ := obs.Get("delta_pos")
	if math.Abs(delta[1]-2) > 1e-12 || delta[0] != 0 || delta[2] != 0 {
		t.Errorf("delta_pos: want([0 2 0]) have(%v)", delta)
	}
	if features.Len() != 0 {
		t.Errorf("no reward features expected, have %v", features.Keys())
	}
}

func TestEdit(t *testing.T) {
	d := mustParse(t, `{"components": {"agent1": {"component": "ant"}}}`)
	edited, err := d.Edit(map[string]interface{}{
		"components.agent1.component":        "pro_ant",
		"components.agent1.component_params": map[string]interface{}{"num_legs": 6},
		"global_options.dt":                  0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Components["agent1"].Component != components.Ant {
		t.Error("edit modified the original description")
	}
	c, err := New(edited)
	if err != nil {
		t.Fatal(err)
	}
	agent1, _ := c.Component("agent1")
	if len(agent1.Actuators) != 12 {
		t.Errorf("pro_ant actuators: want(12) have(%v)", len(agent1.Actuators))
	}
	if c.Metadata().GlobalOptions.Dt != 0.02 {
		t.Errorf("dt: want(0.02) have(%v)", c.Metadata().GlobalOptions.Dt)
	}

	if _, err := d.Edit(map[string]interface{}{
		"components.agent1.component.x": 1,
	}); err == nil {
		t.Error("edit: expected error for path through a string")
	}
}

// fakeSystem places every body at the origin and never moves
type fakeSystem struct {
	config *sim.Config
}

func (f *fakeSystem) Config() *sim.Config { return f.config }

func (f *fakeSystem) DefaultQP() sim.QP {
	qp := sim.NewQP(len(f.config.Bodies))
	for i, b := range f.config.Bodies {
		if !b.Frozen {
			qp.Pos[i].Z = 0.5
		}
	}
	return qp
}

func (f *fakeSystem) Info(sim.QP) (sim.Info, error) {
	return sim.Info{
		JointAngle: make([]float64, len(f.config.Joints)),
		JointVel:   make([]float64, len(f.config.Joints)),
	}, nil
}

func (f *fakeSystem) Step(qp sim.QP, action []float64) (sim.QP, sim.Info,
	error) {
	info, _ := f.Info(qp)
	return qp.Clone(), info, nil
}

func TestComponentTransform(t *testing.T) {
	c := mustNew(t, `{
		"components": {
			"placed": {"component": "singleton", "pos": [1, 0, 0]},
			"turned": {"component": "singleton", "quat": [0, 0, 0, 1]},
			"origin": {"component": "singleton", "quat_origin": [0, 0, 0, 1]},
			"plain": {"component": "singleton"}
		}
	}`)

	for name, want := range map[string]bool{
		"placed": true,
		"turned": true,
		"origin": false,
		"plain":  false,
	} {
		inst, ok := c.Component(name)
		if !ok {
			t.Fatalf("component %v not found", name)
		}
		if have := inst.Transform != nil; have != want {
			t.Errorf("%v transform: want(%v) have(%v)", name, want, have)
		}
	}
}
