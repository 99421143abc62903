// Package timestep implements transitions of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/environment"
)

// StepType denotes the type of step that a Transition ends on, either
// the first environmental step of an episode, a middle step, or a last
// step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// Transition packages together a single step in an environment: the
// observation an action was taken in, the action, and its outcome
type Transition struct {
	stepType        StepType
	Observation     *mat.VecDense
	Action          *mat.VecDense
	Reward          float64
	Discount        float64
	Truncation      float64
	NextObservation *mat.VecDense
	Number          int
}

// New returns a new Transition
func New(t StepType, obs, action *mat.VecDense, r, d, trunc float64,
	next *mat.VecDense, n int) Transition {
	return Transition{t, obs, action, r, d, trunc, next, n}
}

// FromStates returns the Transition from prev to next after taking
// action in prev. Environments with agent groups return one reward per
// group, and the reward of the Transition is the sum over all groups.
func FromStates(prev, next environment.State,
	action *mat.VecDense) (Transition, error) {
	if next.Reward == nil || next.Observation == nil {
		return Transition{}, fmt.Errorf("fromStates: next state has no " +
			"observation or reward")
	}
	if prev.Observation == nil {
		return Transition{}, fmt.Errorf("fromStates: previous state has " +
			"no observation")
	}

	t := Mid
	if next.Done {
		t = Last
	} else if next.Info.Steps == 1 {
		t = First
	}

	obs := mat.VecDenseCopyOf(prev.Observation)
	nextObs := mat.VecDenseCopyOf(next.Observation)
	var act *mat.VecDense
	if action != nil {
		act = mat.VecDenseCopyOf(action)
	}

	return New(t, obs, act, mat.Sum(next.Reward), next.Discount(),
		next.Truncation(), nextObs, next.Info.Steps), nil
}

// First returns whether a Transition is the first in an episode
func (t *Transition) First() bool {
	return t.stepType == First
}

// Mid returns whether a Transition is a middle step in an episode
func (t *Transition) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a Transition is the last step in an episode
func (t *Transition) Last() bool {
	return t.stepType == Last
}

func (t Transition) String() string {
	str := "Transition | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Truncation: %.0f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.Discount, t.Truncation,
		t.Number)
}
