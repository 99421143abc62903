// Package experiment implements functionality for rolling out batches
// of episodes in composed environments and evaluating their losses
package experiment

import (
	"bytes"
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/shaclearn/agent/shac"
	"github.com/samuelfneumann/shaclearn/composer"
	"github.com/samuelfneumann/shaclearn/composer/descs"
	"github.com/samuelfneumann/shaclearn/environment"
	"github.com/samuelfneumann/shaclearn/environment/wrappers"
	"github.com/samuelfneumann/shaclearn/experiment/tracker"
	"github.com/samuelfneumann/shaclearn/network"
	"github.com/samuelfneumann/shaclearn/sim/box2dsys"
	"github.com/samuelfneumann/shaclearn/solver"
)

// Config represents a configuration of an experiment
type Config struct {
	// Env is the name of a registered environment description
	Env string `json:"env"`

	Batch         int `json:"batch"`
	Horizon       int `json:"horizon"`
	EpisodeLength int `json:"episode_length"`
	ActionRepeat  int `json:"action_repeat"`

	PosNoise float64 `json:"pos_noise"`
	VelNoise float64 `json:"vel_noise"`

	Policy PolicyType  `json:"policy"`
	SHAC   shac.Config `json:"shac"`

	// Critic and Solver describe the value function and how it is
	// trained. Both must be set, or neither.
	Critic *network.Config `json:"critic,omitempty"`
	Solver *solver.Solver  `json:"solver,omitempty"`
}

// DefaultConfig returns the default Config of an experiment on env
func DefaultConfig(env string) Config {
	return Config{
		Env:           env,
		Batch:         4,
		Horizon:       32,
		EpisodeLength: 1000,
		ActionRepeat:  1,
		Policy:        UniformPolicy,
		SHAC:          shac.DefaultConfig(),
	}
}

// ParseConfig decodes a JSON Config. Unknown fields are errors.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("parseConfig: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("parseConfig: %v", err)
	}
	return c, nil
}

// Validate checks that the Config describes a valid experiment
func (c Config) Validate() error {
	if c.Batch <= 0 || c.Horizon <= 0 {
		return fmt.Errorf("validate: batch and horizon must be positive "+
			"\n\thave(%v, %v)", c.Batch, c.Horizon)
	}
	if c.EpisodeLength <= 0 || c.ActionRepeat <= 0 {
		return fmt.Errorf("validate: episode length and action repeat "+
			"must be positive \n\thave(%v, %v)", c.EpisodeLength,
			c.ActionRepeat)
	}
	if c.PosNoise < 0 || c.VelNoise < 0 {
		return fmt.Errorf("validate: reset noise must be non-negative")
	}
	switch c.Policy {
	case ZeroPolicy, UniformPolicy:
	default:
		return fmt.Errorf("validate: unknown policy %q", c.Policy)
	}
	if err := c.SHAC.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if (c.Critic == nil) != (c.Solver == nil) {
		return fmt.Errorf("validate: critic and solver must be set together")
	}
	if c.Critic != nil {
		if err := c.Critic.Validate(); err != nil {
			return fmt.Errorf("validate: critic: %v", err)
		}
	}
	return nil
}

// CreateEnv composes the environment of the Config. Episodes are
// truncated after EpisodeLength steps and restart automatically.
func (c Config) CreateEnv() (environment.Env, error) {
	desc, err := descs.Get(c.Env)
	if err != nil {
		return nil, fmt.Errorf("createEnv: %v", err)
	}
	env, err := composer.Create(desc, box2dsys.New,
		composer.WithResetNoise(c.PosNoise, c.VelNoise))
	if err != nil {
		return nil, fmt.Errorf("createEnv: %v", err)
	}
	episode, err := wrappers.NewEpisode(env, c.EpisodeLength, c.ActionRepeat)
	if err != nil {
		return nil, fmt.Errorf("createEnv: %v", err)
	}
	return wrappers.NewAutoReset(episode), nil
}

// CreatePolicy returns the Policy of the Config for env
func (c Config) CreatePolicy(env environment.Env, seed uint64) (Policy,
	error) {
	switch c.Policy {
	case ZeroPolicy:
		return NewZero(env.ActionSpec().Size), nil
	case UniformPolicy:
		return NewUniform(env.ActionSpec(), seed)
	}
	return nil, fmt.Errorf("createPolicy: unknown policy %q", c.Policy)
}

// CreateCritic returns the Critic of the Config for env, or nil if the
// Config has no critic
func (c Config) CreateCritic(env environment.Env) (*shac.Critic, error) {
	if c.Critic == nil {
		return nil, nil
	}
	g := G.NewGraph()
	net, err := c.Critic.Create(env.ObservationSpec().Size,
		c.Batch*c.Horizon, g)
	if err != nil {
		return nil, fmt.Errorf("createCritic: %v", err)
	}
	critic, err := shac.NewCritic(net, c.Solver)
	if err != nil {
		return nil, fmt.Errorf("createCritic: %v", err)
	}
	return critic, nil
}

// CreateExp creates the experiment described by the Config
func (c Config) CreateExp(seed uint64, t ...tracker.Tracker) (*Online,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}
	env, err := c.CreateEnv()
	if err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}
	policy, err := c.CreatePolicy(env, seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}
	critic, err := c.CreateCritic(env)
	if err != nil {
		return nil, fmt.Errorf("createExp: %v", err)
	}

	exp, err := NewOnline(env, policy, c.SHAC, c.Batch, c.Horizon, seed,
		critic, t...)
	if err != nil {
		if critic != nil {
			critic.Close()
		}
		return nil, fmt.Errorf("createExp: %v", err)
	}
	return exp, nil
}
