package environment

// StepLimit ends episodes once a number of steps has been taken
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End determines whether or not the current episode should be ended.
// An episode which reaches the step limit without otherwise being done
// is marked as truncated.
func (s StepLimit) End(state *State) bool {
	if state.Info.Steps >= s.episodeSteps {
		if !state.Done {
			state.Info.Truncated = true
		}
		state.Done = true
		return true
	}
	return false
}

// Steps returns the step limit
func (s StepLimit) Steps() int {
	return s.episodeSteps
}
