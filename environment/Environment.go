// Package environment outlines the contract between environments and
// the code that rolls them out.
//
// An Env is a pure state machine: Reset produces an initial State and
// Step maps a State and an action to the next State. All mutable
// episode state is held in the State, which is threaded explicitly
// through calls by the caller.
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/sim"
)

// Env is an environment which can be reset and stepped
type Env interface {
	Reset(seed uint64) (State, error)
	Step(s State, action *mat.VecDense) (State, error)

	ObservationSpec() Spec
	ActionSpec() Spec
	RewardSpec() Spec
}

// State is the state of an environment after a reset or a step
type State struct {
	QP          sim.QP
	Observation *mat.VecDense

	// Reward holds one reward per agent, or a single reward for
	// environments without agents
	Reward *mat.VecDense

	// Done is set when any agent is done
	Done bool

	Info Info
}

// Info holds diagnostic information of a State
type Info struct {
	// Score holds one score per agent, like Reward
	Score *mat.VecDense

	// Rewards and Scores hold the contribution of each reward function
	// by name
	Rewards map[string]float64
	Scores  map[string]float64

	// Steps is the number of steps taken in the episode so far
	Steps int

	// Truncated is set when an episode ended because of a step limit
	// rather than because of a terminal state
	Truncated bool

	// FirstQP and FirstObservation hold the initial state of the
	// episode and are used to restart episodes automatically
	FirstQP          *sim.QP
	FirstObservation *mat.VecDense
}

// Clone returns a copy of the Info which shares no maps with it
func (i Info) Clone() Info {
	out := i
	out.Rewards = make(map[string]float64, len(i.Rewards))
	for k, v := range i.Rewards {
		out.Rewards[k] = v
	}
	out.Scores = make(map[string]float64, len(i.Scores))
	for k, v := range i.Scores {
		out.Scores[k] = v
	}
	return out
}

// Discount returns 0 if the State ends an episode and 1 otherwise
func (s State) Discount() float64 {
	if s.Done {
		return 0
	}
	return 1
}

// Truncation returns 1 if the State was truncated and 0 otherwise
func (s State) Truncation() float64 {
	if s.Info.Truncated {
		return 1
	}
	return 0
}
