package composer

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/shaclearn/composer/observers"
	"github.com/samuelfneumann/shaclearn/environment"
	"github.com/samuelfneumann/shaclearn/sim"
)

// Env is an environment.Env which simulates a composed system.
//
// The reward of an Env has one entry per agent group, or a single entry
// if no agent groups are configured. An Env holds no episode state and
// is safe to use from multiple goroutines if its System is.
type Env struct {
	composer *Composer
	sys      sim.System

	layout     []observers.Span
	obsSize    int
	actionSize int
	rewardSize int

	posNoise float64
	velNoise float64
}

// EnvOption configures an Env
type EnvOption func(*Env)

// WithResetNoise perturbs the initial state of every episode. The x
// and y position of each body is offset uniformly within [-pos, pos],
// and each velocity component is perturbed with Gaussian noise with
// standard deviation vel.
func WithResetNoise(pos, vel float64) EnvOption {
	return func(e *Env) {
		e.posNoise = pos
		e.velNoise = vel
	}
}

// NewEnv returns a new Env simulating the system composed by c with
// sys, which must have been created from the configuration of c
func NewEnv(c *Composer, sys sim.System, opts ...EnvOption) (*Env, error) {
	e := &Env{
		composer:   c,
		sys:        sys,
		actionSize: sim.ActionSize(sys.Config()),
		rewardSize: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.posNoise < 0 || e.velNoise < 0 {
		return nil, fmt.Errorf("newEnv: reset noise must be non-negative")
	}
	if groups := len(c.Metadata().AgentGroups); groups > 0 {
		e.rewardSize = groups
	}

	for _, inst := range c.Metadata().Components {
		if _, _, err := sys.Config().Indices(sim.Body,
			inst.Bodies); err != nil {
			return nil, fmt.Errorf("newEnv: system does not match "+
				"composition: %v", err)
		}
	}

	// The observation layout is fixed by the initial state
	qp, err := c.ResetFn(sys, sys.DefaultQP())
	if err != nil {
		return nil, fmt.Errorf("newEnv: %v", err)
	}
	info, err := sys.Info(qp)
	if err != nil {
		return nil, fmt.Errorf("newEnv: %v", err)
	}
	obs, _, err := c.ObsFn(sys, qp, info)
	if err != nil {
		return nil, fmt.Errorf("newEnv: %v", err)
	}
	e.layout = obs.Spans()
	e.obsSize = obs.Size()

	return e, nil
}

// Create composes the system described by desc, creates its physics
// system with factory, and returns an Env simulating it
func Create(desc *Desc, factory sim.Factory, opts ...EnvOption) (*Env,
	error) {
	c, err := New(desc)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	sys, err := factory(c.Config())
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	return NewEnv(c, sys, opts...)
}

// Composer returns the Composer of the Env
func (e *Env) Composer() *Composer {
	return e.composer
}

// System returns the physics system of the Env
func (e *Env) System() sim.System {
	return e.sys
}

// ObservationLayout returns the name, start, and size of each entry of
// the observation vector
func (e *Env) ObservationLayout() []observers.Span {
	return append([]observers.Span(nil), e.layout...)
}

// ObservationDict splits an observation vector of the Env into its
// named entries
func (e *Env) ObservationDict(obs mat.Vector) (*observers.Dict, error) {
	if obs == nil || obs.Len() != e.obsSize {
		n := 0
		if obs != nil {
			n = obs.Len()
		}
		return nil, fmt.Errorf("observationDict: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", e.obsSize, n)
	}
	v := make([]float64, obs.Len())
	for i := range v {
		v[i] = obs.AtVec(i)
	}
	return observers.Split(v, e.layout), nil
}

// ObservationSpec returns the observation specification of the Env
func (e *Env) ObservationSpec() environment.Spec {
	return environment.Spec{Size: e.obsSize, Type: environment.Observation}
}

// ActionSpec returns the action specification of the Env. Actions are
// bounded in [-1, 1].
func (e *Env) ActionSpec() environment.Spec {
	return environment.NewBoundedSpec(e.actionSize, environment.Action,
		-1.0, 1.0)
}

// RewardSpec returns the reward specification of the Env
func (e *Env) RewardSpec() environment.Spec {
	return environment.Spec{Size: e.rewardSize, Type: environment.Reward}
}

// Reset returns the initial state of an episode. The seed only matters
// if the Env was created with reset noise.
func (e *Env) Reset(seed uint64) (environment.State, error) {
	qp, err := e.composer.ResetFn(e.sys, e.sys.DefaultQP())
	if err != nil {
		return environment.State{}, fmt.Errorf("reset: %v", err)
	}
	qp = e.perturb(qp, seed)

	info, err := e.sys.Info(qp)
	if err != nil {
		return environment.State{}, fmt.Errorf("reset: %v", err)
	}
	obs, err := e.observe(qp, info)
	if err != nil {
		return environment.State{}, fmt.Errorf("reset: %v", err)
	}

	stateInfo := environment.Info{
		Score:   mat.NewVecDense(e.rewardSize, nil),
		Rewards: make(map[string]float64),
		Scores:  make(map[string]float64),
	}
	for _, entry := range e.composer.Metadata().RewardFns {
		stateInfo.Rewards[entry.Name] = 0
		stateInfo.Scores[entry.Name] = 0
	}

	return environment.State{
		QP:          qp,
		Observation: obs,
		Reward:      mat.NewVecDense(e.rewardSize, nil),
		Info:        stateInfo,
	}, nil
}

// perturb adds reset noise to the bodies of a state which are not
// frozen
func (e *Env) perturb(qp sim.QP, seed uint64) sim.QP {
	if e.posNoise == 0 && e.velNoise == 0 {
		return qp
	}
	qp = qp.Clone()
	bodies := e.sys.Config().Bodies

	if e.posNoise > 0 {
		bounds := make([]r1.Interval, 2*len(bodies))
		for i := range bounds {
			bounds[i] = r1.Interval{Min: -e.posNoise, Max: e.posNoise}
		}
		offsets := environment.NewUniformStarter(bounds, seed).Start()
		for i, b := range bodies {
			if b.Frozen {
				continue
			}
			qp.Pos[i].X += offsets[2*i]
			qp.Pos[i].Y += offsets[2*i+1]
		}
	}

	if e.velNoise > 0 {
		dist := distuv.Normal{Mu: 0, Sigma: e.velNoise,
			Src: rand.NewSource(seed + 1)}
		for i, b := range bodies {
			if b.Frozen {
				continue
			}
			qp.Vel[i] = r3.Vec{
				X: qp.Vel[i].X + dist.Rand(),
				Y: qp.Vel[i].Y + dist.Rand(),
				Z: qp.Vel[i].Z + dist.Rand(),
			}
		}
	}
	return qp
}

// Step advances the environment by one step
func (e *Env) Step(s environment.State,
	action *mat.VecDense) (environment.State, error) {
	size := 0
	if action != nil {
		size = action.Len()
	}
	if size != e.actionSize {
		return environment.State{}, fmt.Errorf("step: invalid action "+
			"dimensions \n\twant(%v) \n\thave(%v)", e.actionSize, size)
	}
	act := make([]float64, size)
	for i := range act {
		act[i] = action.AtVec(i)
	}

	qp, info, err := e.sys.Step(s.QP, act)
	if err != nil {
		return environment.State{}, fmt.Errorf("step: %v", err)
	}
	obsDict, features, err := e.composer.ObsFn(e.sys, qp, info)
	if err != nil {
		return environment.State{}, fmt.Errorf("step: %v", err)
	}
	obs, err := e.vector(obsDict)
	if err != nil {
		return environment.State{}, fmt.Errorf("step: %v", err)
	}

	m := e.composer.Metadata()
	type result struct {
		reward, score float64
		done          bool
	}
	results := make(map[string]result, len(m.RewardFns))
	stateInfo := s.Info.Clone()
	for _, entry := range m.RewardFns {
		r, sc, d, err := entry.Func.Reward(act, features)
		if err != nil {
			return environment.State{}, fmt.Errorf("step: reward %v: %v",
				entry.Name, err)
		}
		results[entry.Name] = result{r, sc, d}
		stateInfo.Rewards[entry.Name] = r
		stateInfo.Scores[entry.Name] = sc
	}

	reward := mat.NewVecDense(e.rewardSize, nil)
	score := mat.NewVecDense(e.rewardSize, nil)
	done := false
	if len(m.AgentGroups) > 0 {
		for i, g := range m.AgentGroups {
			for _, name := range g.RewardNames {
				res := results[name]
				reward.SetVec(i, reward.AtVec(i)+res.reward)
				score.SetVec(i, score.AtVec(i)+res.score)
				done = done || res.done
			}
		}
	} else {
		for _, entry := range m.RewardFns {
			res := results[entry.Name]
			reward.SetVec(0, reward.AtVec(0)+res.reward)
			score.SetVec(0, score.AtVec(0)+res.score)
			done = done || res.done
		}
	}
	done = e.composer.TermFn(done, e.sys, qp, info)

	stateInfo.Score = score
	stateInfo.Steps = s.Info.Steps + 1
	stateInfo.Truncated = false

	return environment.State{
		QP:          qp,
		Observation: obs,
		Reward:      reward,
		Done:        done,
		Info:        stateInfo,
	}, nil
}

// observe computes the observation vector of a state
func (e *Env) observe(qp sim.QP, info sim.Info) (*mat.VecDense, error) {
	obs, _, err := e.composer.ObsFn(e.sys, qp, info)
	if err != nil {
		return nil, err
	}
	return e.vector(obs)
}

// vector concatenates an observation, checking it against the layout
// fixed at construction
func (e *Env) vector(obs *observers.Dict) (*mat.VecDense, error) {
	spans := obs.Spans()
	if len(spans) != len(e.layout) {
		return nil, fmt.Errorf("observation has %v entries, want %v",
			len(spans), len(e.layout))
	}
	for i, span := range spans {
		if span != e.layout[i] {
			return nil, fmt.Errorf("observation entry %v does not match "+
				"layout \n\twant(%+v) \n\thave(%+v)", i, e.layout[i], span)
		}
	}
	return obs.Vector(), nil
}
