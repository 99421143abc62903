// Package rewards implements the reward functions of composed
// environments.
//
// Reward functions are described by a Spec, decoded from JSON as a
// tagged union keyed by "reward_type". A Spec is bound to the component
// or edge it belongs to, producing a Func. A Func names the observers it
// needs; the environment evaluates those observers into a reward
// feature Dict which is passed back to the Func together with the
// action on every step.
package rewards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/composer/observers"
	"github.com/samuelfneumann/shaclearn/sim"
)

// Type is the type of a reward Spec
type Type string

// Available reward types
const (
	RootGoal    Type = "root_goal"
	RootDist    Type = "root_dist"
	ControlCost Type = "control_cost"
)

var registeredTypes = map[Type]reflect.Type{
	RootGoal:    reflect.TypeOf(RootGoalSpec{}),
	RootDist:    reflect.TypeOf(RootDistSpec{}),
	ControlCost: reflect.TypeOf(ControlCostSpec{}),
}

// Spec is an unbound reward function description
type Spec interface {
	Type() Type
	Validate() error
	setDefaults()
	bind(b Binder) (Func, error)
}

// Func is a bound reward function
type Func interface {
	// Observers returns the observers whose values the Func reads
	// from its reward features
	Observers() []observers.Observer

	// Reward computes the reward, score, and done flag of a step
	Reward(action []float64, features *observers.Dict) (reward,
		score float64, done bool, err error)
}

// Binder holds what a Spec may refer to when it is bound
type Binder struct {
	// Self is the component owning the reward function, or nil
	Self *components.Instance

	// Pair holds the two components of the edge owning the reward
	// function, or is nil
	Pair []components.Instance

	// Actions holds the indices into the action vector of the
	// actuators of Self, or of both components of Pair
	Actions []int
}

// Bind binds a Spec to the component or edge described by b
func (b Binder) Bind(s Spec) (Func, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("bind: %v", err)
	}
	f, err := s.bind(b)
	if err != nil {
		return nil, fmt.Errorf("bind: %v", err)
	}
	return f, nil
}

// Desc wraps a Spec so that it can be JSON marshalled and unmarshalled
// into its concrete type
type Desc struct {
	Spec
}

// UnmarshalJSON implements the json.Unmarshaler interface. Unknown
// reward types and fields unknown to the reward type are errors.
func (d *Desc) UnmarshalJSON(data []byte) error {
	var probe struct {
		RewardType Type `json:"reward_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	ty, ok := registeredTypes[probe.RewardType]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown reward type %q, want one "+
			"of %v", probe.RewardType, types())
	}

	spec := reflect.New(ty).Interface().(Spec)
	spec.setDefaults()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(spec); err != nil {
		return fmt.Errorf("unmarshalJSON: reward %v: %v", probe.RewardType,
			err)
	}
	d.Spec = spec
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (d Desc) MarshalJSON() ([]byte, error) {
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

// Goal is a target value. It is decoded from either a JSON number,
// which applies to every observed element, or a JSON array.
type Goal []float64

// UnmarshalJSON implements the json.Unmarshaler interface
func (g *Goal) UnmarshalJSON(data []byte) error {
	var x float64
	if err := json.Unmarshal(data, &x); err == nil {
		*g = Goal{x}
		return nil
	}
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshalJSON: goal must be a number or an "+
			"array of numbers: %v", err)
	}
	*g = Goal(v)
	return nil
}

// broadcast returns the goal with one value per observed element
func (g Goal) broadcast(n int) ([]float64, error) {
	switch len(g) {
	case n:
		return append([]float64(nil), g...), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = g[0]
		}
		return out, nil
	case 0:
		return make([]float64, n), nil
	}
	return nil, fmt.Errorf("goal has %v values, want 1 or %v", len(g), n)
}

// Distance configures a distance based reward:
//
//	score  = -dist
//	reward = scale * (offset - dist)
//	done   = dist < min_dist
type Distance struct {
	Offset  float64 `json:"offset"`
	Scale   float64 `json:"scale"`
	MinDist float64 `json:"min_dist"`
}

func (d *Distance) evaluate(dist float64) (float64, float64, bool) {
	return d.Scale * (d.Offset - dist), -dist, dist < d.MinDist
}

// RootGoalSpec rewards a component for bringing a field of its root
// body close to a target goal
type RootGoalSpec struct {
	RewardType Type `json:"reward_type"`
	Distance

	// SDComp is the observed root field, e.g. pos or vel
	SDComp     string `json:"sdcomp"`
	Indices    []int  `json:"indices,omitempty"`
	TargetGoal Goal   `json:"target_goal"`
}

// Type satisfies the Spec interface
func (r *RootGoalSpec) Type() Type { return RootGoal }

func (r *RootGoalSpec) setDefaults() {
	r.Scale = 1
	r.SDComp = "pos"
}

// Validate satisfies the Spec interface
func (r *RootGoalSpec) Validate() error {
	switch r.SDComp {
	case "pos", "vel", "ang":
	default:
		return fmt.Errorf("validate: root_goal cannot observe %q", r.SDComp)
	}
	for _, i := range r.Indices {
		if i < 0 || i >= 3 {
			return fmt.Errorf("validate: root_goal index %v out of range", i)
		}
	}
	return nil
}

func (r *RootGoalSpec) bind(b Binder) (Func, error) {
	if b.Self == nil {
		return nil, fmt.Errorf("root_goal reward must belong to a component")
	}
	obs := &observers.SimObserver{
		Label:   rootLabel(*b.Self, r.SDComp, r.Indices),
		Kind:    sim.Body,
		Field:   r.SDComp,
		Entity:  b.Self.Root,
		Indices: r.Indices,
	}

	n := 3
	if len(r.Indices) > 0 {
		n = len(r.Indices)
	}
	goal, err := r.TargetGoal.broadcast(n)
	if err != nil {
		return nil, fmt.Errorf("root_goal: %v", err)
	}
	return &rootGoal{Distance: r.Distance, obs: obs, goal: goal}, nil
}

type rootGoal struct {
	Distance
	obs  *observers.SimObserver
	goal []float64
}

func (r *rootGoal) Observers() []observers.Observer {
	return []observers.Observer{r.obs}
}

func (r *rootGoal) Reward(action []float64, features *observers.Dict) (
	float64, float64, bool, error) {
	v, ok := features.Get(r.obs.Label)
	if !ok {
		return 0, 0, false, fmt.Errorf("reward: missing feature %v",
			r.obs.Label)
	}
	reward, score, done := r.evaluate(floats.Distance(v, r.goal, 2))
	return reward, score, done, nil
}

// RootDistSpec is an edge reward for bringing the roots of the two
// components of the edge close together
type RootDistSpec struct {
	RewardType Type `json:"reward_type"`
	Distance

	Indices []int `json:"indices,omitempty"`
}

// Type satisfies the Spec interface
func (r *RootDistSpec) Type() Type { return RootDist }

func (r *RootDistSpec) setDefaults() {
	r.Scale = 1
}

// Validate satisfies the Spec interface
func (r *RootDistSpec) Validate() error {
	for _, i := range r.Indices {
		if i < 0 || i >= 3 {
			return fmt.Errorf("validate: root_dist index %v out of range", i)
		}
	}
	return nil
}

func (r *RootDistSpec) bind(b Binder) (Func, error) {
	if len(b.Pair) != 2 {
		return nil, fmt.Errorf("root_dist reward must belong to an edge")
	}
	obs := make([]*observers.SimObserver, 2)
	for i, c := range b.Pair {
		obs[i] = &observers.SimObserver{
			Label:   rootLabel(c, "pos", r.Indices),
			Kind:    sim.Body,
			Field:   "pos",
			Entity:  c.Root,
			Indices: r.Indices,
		}
	}
	return &rootDist{Distance: r.Distance, obs: obs}, nil
}

type rootDist struct {
	Distance
	obs []*observers.SimObserver
}

func (r *rootDist) Observers() []observers.Observer {
	return []observers.Observer{r.obs[0], r.obs[1]}
}

func (r *rootDist) Reward(action []float64, features *observers.Dict) (
	float64, float64, bool, error) {
	first, ok := features.Get(r.obs[0].Label)
	if !ok {
		return 0, 0, false, fmt.Errorf("reward: missing feature %v",
			r.obs[0].Label)
	}
	second, ok := features.Get(r.obs[1].Label)
	if !ok {
		return 0, 0, false, fmt.Errorf("reward: missing feature %v",
			r.obs[1].Label)
	}
	reward, score, done := r.evaluate(floats.Distance(first, second, 2))
	return reward, score, done, nil
}

// ControlCostSpec penalizes the squared magnitude of the actions of a
// component, or of both components of an edge
type ControlCostSpec struct {
	RewardType Type    `json:"reward_type"`
	Scale      float64 `json:"scale"`
}

// Type satisfies the Spec interface
func (c *ControlCostSpec) Type() Type { return ControlCost }

func (c *ControlCostSpec) setDefaults() {
	c.Scale = 1
}

// Validate satisfies the Spec interface
func (c *ControlCostSpec) Validate() error {
	if c.Scale < 0 || math.IsNaN(c.Scale) {
		return fmt.Errorf("validate: control_cost scale must be "+
			"non-negative, have(%v)", c.Scale)
	}
	return nil
}

func (c *ControlCostSpec) bind(b Binder) (Func, error) {
	if b.Self == nil && len(b.Pair) != 2 {
		return nil, fmt.Errorf("control_cost reward must belong to a " +
			"component or an edge")
	}
	return &controlCost{scale: c.Scale,
		actions: append([]int(nil), b.Actions...)}, nil
}

type controlCost struct {
	scale   float64
	actions []int
}

func (c *controlCost) Observers() []observers.Observer { return nil }

func (c *controlCost) Reward(action []float64, _ *observers.Dict) (float64,
	float64, bool, error) {
	cost := 0.0
	for _, i := range c.actions {
		if i >= len(action) {
			return 0, 0, false, fmt.Errorf("reward: action index %v out of "+
				"range for action of size %v", i, len(action))
		}
		cost += action[i] * action[i]
	}
	return -c.scale * cost, -cost, false, nil
}

func rootLabel(c components.Instance, comp string, indices []int) string {
	name := fmt.Sprintf("%s_%s_%s", sim.Body, comp, c.Root)
	if len(indices) > 0 {
		name += fmt.Sprint(indices)
	}
	return name
}
