package tracker

import "github.com/samuelfneumann/shaclearn/timestep"

// Return tracks and saves the episodic return in an experiment. The
// rewards of each rollout are accumulated separately, and the return
// of an episode is stored once the last transition of the episode is
// tracked. For environments with agent groups, rewards are summed over
// groups.
//
// Note: An episode must finish for this Tracker to save its data.
// If the last episode of a rollout does not finish, that episode's
// return will not be saved.
type Return struct {
	currentReturns []float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track tracks the reward of a transition
func (r *Return) Track(rollout int, t timestep.Transition) {
	r.currentReturns = grow(r.currentReturns, rollout)
	r.currentReturns[rollout] += t.Reward

	if t.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturns[rollout])
		r.currentReturns[rollout] = 0
	}
}

// Data returns the returns of all finished episodes in the order the
// episodes finished
func (r *Return) Data() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
