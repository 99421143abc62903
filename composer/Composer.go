// Package composer assembles physics environments from declarative
// descriptions of components and the edges between them.
//
// A Composer loads every component of a Desc, renames its entities
// with a per-instance suffix, synthesizes an edge for every pair of
// components, and merges all configuration fragments into a single
// simulation configuration. The resulting Metadata is immutable and is
// used by Env to reset, step, observe, and reward the composed system.
package composer

import (
	"fmt"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/composer/observers"
	"github.com/samuelfneumann/shaclearn/composer/rewards"
	"github.com/samuelfneumann/shaclearn/sim"
)

// ComponentInstance is a loaded and renamed component
type ComponentInstance struct {
	components.Instance
	Type components.Type

	// Config is the renamed configuration of the component
	Config   *sim.Config
	Collides []string

	// Transform is applied to the bodies of the component on reset. It
	// is nil if the component is not transformed.
	Transform *sim.Transform

	Term      components.TermFunc
	Observers []observers.Observer

	// Fragment is the serialized renamed configuration
	Fragment string

	desc ComponentDesc
}

// RewardEntry is a registered reward function
type RewardEntry struct {
	Name string
	Func rewards.Func
}

// GroupEntry is an agent group
type GroupEntry struct {
	Name        string
	RewardNames []string
}

// Metadata is the immutable result of a composition. All slices are
// in deterministic order: components and edges are sorted by name,
// and reward functions are in registration order.
type Metadata struct {
	Components []*ComponentInstance
	Edges      []*EdgeInstance

	GlobalOptions sim.Options
	ConfigText    string
	Config        *sim.Config

	ExtraObservers []observers.Observer

	// RewardFeatures are evaluated for reward functions only and are
	// not part of the observation
	RewardFeatures []observers.Observer

	RewardFns   []RewardEntry
	AgentGroups []GroupEntry
}

// Composer builds and holds the Metadata of a composed system
type Composer struct {
	metadata *Metadata
	index    map[string]*ComponentInstance
}

// New composes the system described by desc. The description is
// copied and may be modified by the caller afterwards.
func New(desc *Desc) (*Composer, error) {
	desc, err := desc.Clone()
	if err != nil {
		return nil, &ConstructionError{Op: "new", Err: err}
	}
	if desc.Components == nil {
		desc.Components = make(map[string]ComponentDesc)
	}

	if desc.groundEnabled() {
		if _, ok := desc.Components[components.GroundRoot]; ok {
			return nil, &ConstructionError{
				Op:      "new",
				Subject: components.GroundRoot,
				Err: fmt.Errorf("component name is reserved when " +
					"add_ground is set"),
			}
		}
		desc.Components[components.GroundRoot] = ComponentDesc{
			Component: components.Ground,
		}
	}

	options := sim.DefaultOptions()
	if desc.GlobalOptions != nil {
		if err := desc.GlobalOptions.Validate(); err != nil {
			return nil, &ConstructionError{Op: "new", Subject: "global_options",
				Err: err}
		}
		options = options.Override(*desc.GlobalOptions)
	}

	c := &Composer{
		metadata: &Metadata{GlobalOptions: options},
		index:    make(map[string]*ComponentInstance),
	}
	m := c.metadata

	// Load and rename components
	owner := make(map[string]string)
	for _, name := range sortedKeys(desc.Components) {
		inst, err := loadComponent(name, desc.Components[name])
		if err != nil {
			return nil, err
		}
		for _, body := range inst.Bodies {
			if other, ok := owner[body]; ok {
				return nil, &ConstructionError{
					Op:      "new",
					Subject: name,
					Err: fmt.Errorf("%w: %q also belongs to component %v",
						errNameCollision, body, other),
				}
			}
			owner[body] = name
		}
		m.Components = append(m.Components, inst)
		c.index[name] = inst
	}

	m.Edges, err = synthesizeEdges(m.Components, desc.Edges)
	if err != nil {
		return nil, err
	}

	m.ConfigText, m.Config, err = merge(m.Components, m.Edges, options)
	if err != nil {
		return nil, &ConstructionError{Op: "new", Err: err}
	}

	if err := c.bind(desc); err != nil {
		return nil, err
	}
	if err := c.setAgentGroups(desc.AgentGroups); err != nil {
		return nil, err
	}
	return c, nil
}

// loadComponent loads a component and renames it with its suffix
func loadComponent(name string, d ComponentDesc) (*ComponentInstance,
	error) {
	loaded, err := components.Load(d.Component, d.ComponentParams,
		d.TermParams)
	if err != nil {
		return nil, &ConstructionError{Op: "loadComponent", Subject: name,
			Err: err}
	}

	suffix := name
	if d.Suffix != nil {
		suffix = *d.Suffix
	}
	config := RenameConfig(loaded.Config, suffix)
	known := entityNames(loaded.Config)

	inst := &ComponentInstance{
		Instance: components.Instance{
			Name:      name,
			Suffix:    suffix,
			Root:      RenameNames([]string{loaded.Root}, suffix, known, true)[0],
			Bodies:    config.Names(sim.Body),
			Joints:    config.Names(sim.Joint),
			Actuators: config.Names(sim.Actuator),
		},
		Type:     d.Component,
		Config:   config,
		Collides: RenameNames(loaded.Collides, suffix, known, true),
		Term:     loaded.Term,
		desc:     d,
	}

	bodies := make(map[string]bool, len(inst.Bodies))
	for _, b := range inst.Bodies {
		if b == "" {
			return nil, &ConstructionError{Op: "loadComponent", Subject: name,
				Err: fmt.Errorf("empty body name")}
		}
		bodies[b] = true
	}
	for _, b := range append([]string{inst.Root}, inst.Collides...) {
		if !bodies[b] {
			return nil, &ConstructionError{Op: "loadComponent", Subject: name,
				Err: fmt.Errorf("renamed body %q not found", b)}
		}
	}

	if d.Pos != nil || d.Quat != nil {
		t := sim.NewTransform()
		if t.Pos, err = sim.VecFromSlice(d.Pos); err != nil {
			return nil, &ConstructionError{Op: "loadComponent",
				Subject: name, Err: fmt.Errorf("pos: %v", err)}
		}
		if t.Rot, err = sim.QuatFromSlice(d.Quat); err != nil {
			return nil, &ConstructionError{Op: "loadComponent",
				Subject: name, Err: fmt.Errorf("quat: %v", err)}
		}
		if t.Origin, err = sim.QuatFromSlice(d.QuatOrigin); err != nil {
			return nil, &ConstructionError{Op: "loadComponent",
				Subject: name, Err: fmt.Errorf("quat_origin: %v", err)}
		}
		inst.Transform = &t
	}

	inst.Fragment, err = sim.Marshal(config)
	if err != nil {
		return nil, &ConstructionError{Op: "loadComponent", Subject: name,
			Err: err}
	}

	// Default observers are bound later, once all components exist
	if d.Observers == nil {
		for _, preset := range loaded.DefaultObservers {
			obs, err := observers.Preset(preset)
			if err != nil {
				return nil, &ConstructionError{Op: "loadComponent",
					Subject: name, Err: err}
			}
			inst.desc.Observers = append(inst.desc.Observers, obs)
		}
	}
	return inst, nil
}

// bind binds all observers and reward functions of components, then
// of edges, then the top level extra observers
func (c *Composer) bind(desc *Desc) error {
	m := c.metadata
	all := make(map[string]components.Instance, len(m.Components))
	for _, inst := range m.Components {
		all[inst.Name] = inst.Instance
	}

	for _, inst := range m.Components {
		self := inst.Instance
		ob := observers.Binder{Self: &self, Components: all}
		for _, d := range inst.desc.Observers {
			obs, err := ob.Bind(d.Spec)
			if err != nil {
				return &ConstructionError{Op: "bind", Subject: inst.Name,
					Err: err}
			}
			inst.Observers = append(inst.Observers, obs)
		}

		actions, err := c.actionIndices(inst)
		if err != nil {
			return err
		}
		rb := rewards.Binder{Self: &self, Actions: actions}
		for _, name := range sortedKeys(inst.desc.RewardFns) {
			fullName := AddSuffix(name, inst.Suffix)
			if err := c.register(fullName, rb,
				inst.desc.RewardFns[name]); err != nil {
				return err
			}
		}

		for _, d := range inst.desc.ExtraObservers {
			obs, err := ob.Bind(d.Spec)
			if err != nil {
				return &ConstructionError{Op: "bind", Subject: inst.Name,
					Err: err}
			}
			m.ExtraObservers = append(m.ExtraObservers, obs)
		}
	}

	for _, edge := range m.Edges {
		first, second := c.index[edge.First], c.index[edge.Second]
		pair := []components.Instance{first.Instance, second.Instance}

		firstActions, err := c.actionIndices(first)
		if err != nil {
			return err
		}
		secondActions, err := c.actionIndices(second)
		if err != nil {
			return err
		}
		rb := rewards.Binder{Pair: pair,
			Actions: append(firstActions, secondActions...)}
		for _, name := range sortedKeys(edge.desc.RewardFns) {
			fullName := AddSuffix(name, edge.Key)
			if err := c.register(fullName, rb,
				edge.desc.RewardFns[name]); err != nil {
				return err
			}
		}

		ob := observers.Binder{Pair: pair, Components: all}
		for _, d := range edge.desc.ExtraObservers {
			obs, err := ob.Bind(d.Spec)
			if err != nil {
				return &ConstructionError{Op: "bind", Subject: edge.Key,
					Err: err}
			}
			m.ExtraObservers = append(m.ExtraObservers, obs)
		}
	}

	ob := observers.Binder{Components: all}
	for _, d := range desc.ExtraObservers {
		obs, err := ob.Bind(d.Spec)
		if err != nil {
			return &ConstructionError{Op: "bind", Subject: "extra_observers",
				Err: err}
		}
		m.ExtraObservers = append(m.ExtraObservers, obs)
	}
	return nil
}

// register binds and registers a reward function under a globally
// unique name
func (c *Composer) register(name string, b rewards.Binder,
	d rewards.Desc) error {
	m := c.metadata
	for _, entry := range m.RewardFns {
		if entry.Name == name {
			return &ConstructionError{Op: "register", Subject: name,
				Err: errDuplicateReward}
		}
	}
	if d.Spec == nil {
		return &ConstructionError{Op: "register", Subject: name,
			Err: fmt.Errorf("empty reward description")}
	}

	fn, err := b.Bind(d.Spec)
	if err != nil {
		return &ConstructionError{Op: "register", Subject: name, Err: err}
	}
	m.RewardFns = append(m.RewardFns, RewardEntry{Name: name, Func: fn})
	m.RewardFeatures = append(m.RewardFeatures, fn.Observers()...)
	return nil
}

// actionIndices returns the indices into the action vector of the
// actuators of a component
func (c *Composer) actionIndices(inst *ComponentInstance) ([]int, error) {
	indices, _, err := c.metadata.Config.Indices(sim.Actuator, inst.Actuators)
	if err != nil {
		return nil, &ConstructionError{Op: "actionIndices",
			Subject: inst.Name, Err: err}
	}
	return indices, nil
}

// setAgentGroups validates and records the agent groups. The reward
// names of all groups together must be exactly the registered reward
// functions.
func (c *Composer) setAgentGroups(groups map[string]AgentGroup) error {
	if len(groups) == 0 {
		return nil
	}
	m := c.metadata

	registered := make(map[string]bool, len(m.RewardFns))
	for _, entry := range m.RewardFns {
		registered[entry.Name] = true
	}

	used := make(map[string]bool)
	for _, name := range sortedKeys(groups) {
		g := groups[name]
		for _, r := range g.RewardNames {
			if !registered[r] {
				return &ConstructionError{
					Op:      "setAgentGroups",
					Subject: name,
					Err: fmt.Errorf("%w: reward %q is not registered",
						errAgentGroups, r),
				}
			}
			used[r] = true
		}
		m.AgentGroups = append(m.AgentGroups, GroupEntry{
			Name:        name,
			RewardNames: append([]string(nil), g.RewardNames...),
		})
	}

	for _, entry := range m.RewardFns {
		if !used[entry.Name] {
			return &ConstructionError{
				Op:      "setAgentGroups",
				Subject: entry.Name,
				Err: fmt.Errorf("%w: reward is in no agent group",
					errAgentGroups),
			}
		}
	}
	return nil
}

// Metadata returns the metadata of the composition, which must not be
// modified
func (c *Composer) Metadata() *Metadata {
	return c.metadata
}

// Config returns a copy of the merged configuration
func (c *Composer) Config() *sim.Config {
	return c.metadata.Config.Clone()
}

// ConfigText returns the merged configuration text
func (c *Composer) ConfigText() string {
	return c.metadata.ConfigText
}

// Component returns the named component instance
func (c *Composer) Component(name string) (*ComponentInstance, bool) {
	inst, ok := c.index[name]
	return inst, ok
}

// ResetFn applies the transform of every component to its bodies in
// sorted component order
func (c *Composer) ResetFn(sys sim.System, qp sim.QP) (sim.QP, error) {
	for _, inst := range c.metadata.Components {
		if inst.Transform == nil {
			continue
		}
		_, mask, err := sys.Config().Indices(sim.Body, inst.Bodies)
		if err != nil {
			return sim.QP{}, fmt.Errorf("resetFn: %v: %v", inst.Name, err)
		}
		qp, err = inst.Transform.Apply(qp, mask)
		if err != nil {
			return sim.QP{}, fmt.Errorf("resetFn: %v: %v", inst.Name, err)
		}
	}
	return qp, nil
}

// TermFn folds the termination condition of every component into done
func (c *Composer) TermFn(done bool, sys sim.System, qp sim.QP,
	info sim.Info) bool {
	for _, inst := range c.metadata.Components {
		if inst.Term != nil {
			done = inst.Term(done, sys, qp, info, inst.Instance)
		}
	}
	return done
}

// ObsFn computes the observation of a state along with the reward
// features. The observation holds the observers of every component
// followed by the extra observers; an observation name which already
// exists keeps its first value.
func (c *Composer) ObsFn(sys sim.System, qp sim.QP,
	info sim.Info) (*observers.Dict, *observers.Dict, error) {
	ctx := observers.NewContext(sys, qp, info)

	obs := observers.NewDict()
	for _, inst := range c.metadata.Components {
		own := observers.NewDict()
		for _, o := range inst.Observers {
			if err := o.Observe(ctx, own); err != nil {
				return nil, nil, fmt.Errorf("obsFn: %v: %v", inst.Name, err)
			}
		}
		obs.Union(own)
	}
	for _, o := range c.metadata.ExtraObservers {
		if err := o.Observe(ctx, obs); err != nil {
			return nil, nil, fmt.Errorf("obsFn: %v", err)
		}
	}

	features := observers.NewDict()
	for _, o := range c.metadata.RewardFeatures {
		if err := o.Observe(ctx, features); err != nil {
			return nil, nil, fmt.Errorf("obsFn: reward features: %v", err)
		}
	}
	return obs, features, nil
}
