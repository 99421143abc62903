package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/environment"
)

// AutoReset wraps an environment and restarts episodes automatically.
// When a step ends an episode, the returned State keeps the reward and
// done flag of the step, but its coordinates and observation are those
// of the first State of the episode. Stepping from it continues with a
// new episode.
//
// AutoReset itself implements the environment.Env interface.
type AutoReset struct {
	environment.Env
}

// NewAutoReset returns a new AutoReset wrapper
func NewAutoReset(env environment.Env) *AutoReset {
	return &AutoReset{env}
}

// Reset resets the environment to a starting state and records it in
// the State's Info so that later episodes can restart from it
func (a *AutoReset) Reset(seed uint64) (environment.State, error) {
	s, err := a.Env.Reset(seed)
	if err != nil {
		return environment.State{}, err
	}
	first := s.QP.Clone()
	s.Info.FirstQP = &first
	s.Info.FirstObservation = mat.VecDenseCopyOf(s.Observation)
	return s, nil
}

// Step takes one action in the environment
func (a *AutoReset) Step(s environment.State,
	action *mat.VecDense) (environment.State, error) {
	if s.Info.FirstQP == nil || s.Info.FirstObservation == nil {
		return environment.State{}, fmt.Errorf("step: state was not " +
			"reset by an AutoReset environment")
	}
	if s.Done {
		s = restart(s)
	}

	next, err := a.Env.Step(s, action)
	if err != nil {
		return environment.State{}, err
	}
	if next.Done {
		next.QP = next.Info.FirstQP.Clone()
		next.Observation = mat.VecDenseCopyOf(next.Info.FirstObservation)
	}
	return next, nil
}
