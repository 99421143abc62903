// Package wrappers implements wrappers which alter how episodes of an
// environment.Env unfold
package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/environment"
)

// Episode wraps an environment and ends episodes once a step limit is
// reached, marking them as truncated. Each action is repeated for a
// number of environment steps, and the rewards of the repeated steps
// are summed. Repetition stops early if the episode ends.
//
// Episode itself implements the environment.Env interface.
type Episode struct {
	environment.Env
	limit        environment.StepLimit
	actionRepeat int
}

// NewEpisode returns a new Episode wrapper which ends episodes after
// episodeLength environment steps and repeats each action
// actionRepeat times
func NewEpisode(env environment.Env, episodeLength,
	actionRepeat int) (*Episode, error) {
	if episodeLength <= 0 {
		return nil, fmt.Errorf("newEpisode: episode length must be "+
			"positive \n\thave(%v)", episodeLength)
	}
	if actionRepeat <= 0 {
		return nil, fmt.Errorf("newEpisode: action repeat must be "+
			"positive \n\thave(%v)", actionRepeat)
	}
	return &Episode{
		Env:          env,
		limit:        environment.NewStepLimit(episodeLength),
		actionRepeat: actionRepeat,
	}, nil
}

// Reset resets the environment to a starting state
func (e *Episode) Reset(seed uint64) (environment.State, error) {
	s, err := e.Env.Reset(seed)
	if err != nil {
		return environment.State{}, err
	}
	s.Info.Steps = 0
	s.Info.Truncated = false
	return s, nil
}

// Step takes one action in the environment, repeating it if needed.
// Stepping from a State which ended an episode starts counting steps
// anew.
func (e *Episode) Step(s environment.State,
	action *mat.VecDense) (environment.State, error) {
	if s.Done {
		s = restart(s)
	}

	reward := mat.NewVecDense(e.RewardSpec().Size, nil)
	next := s
	for i := 0; i < e.actionRepeat; i++ {
		var err error
		next, err = e.Env.Step(next, action)
		if err != nil {
			return environment.State{}, err
		}
		reward.AddVec(reward, next.Reward)
		if next.Done {
			break
		}
	}
	next.Reward = reward

	e.limit.End(&next)
	return next, nil
}

// EpisodeLength returns the number of environment steps after which
// episodes are truncated
func (e *Episode) EpisodeLength() int {
	return e.limit.Steps()
}

// ActionRepeat returns the number of environment steps each action is
// taken for
func (e *Episode) ActionRepeat() int {
	return e.actionRepeat
}

// restart returns a copy of a State which ended an episode, ready to
// begin counting a new episode
func restart(s environment.State) environment.State {
	s.Info = s.Info.Clone()
	s.Info.Steps = 0
	s.Info.Truncated = false
	s.Done = false
	return s
}
