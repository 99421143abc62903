package wrappers

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/environment"
	"github.com/samuelfneumann/shaclearn/sim"
)

// line is an environment whose single body moves along the x axis by
// the action at each step. Episodes end once the body reaches goal.
type line struct {
	goal float64
}

func (l line) Reset(seed uint64) (environment.State, error) {
	qp := sim.NewQP(1)
	return environment.State{
		QP:          qp,
		Observation: mat.NewVecDense(1, nil),
		Reward:      mat.NewVecDense(1, nil),
	}, nil
}

func (l line) Step(s environment.State,
	action *mat.VecDense) (environment.State, error) {
	qp := s.QP.Clone()
	qp.Pos[0].X += action.AtVec(0)

	info := s.Info.Clone()
	info.Steps++
	info.Truncated = false
	return environment.State{
		QP:          qp,
		Observation: mat.NewVecDense(1, []float64{qp.Pos[0].X}),
		Reward:      mat.NewVecDense(1, []float64{action.AtVec(0)}),
		Done:        qp.Pos[0].X >= l.goal,
		Info:        info,
	}, nil
}

func (l line) ObservationSpec() environment.Spec {
	return environment.Spec{Size: 1, Type: environment.Observation}
}

func (l line) ActionSpec() environment.Spec {
	return environment.NewBoundedSpec(1, environment.Action, -1, 1)
}

func (l line) RewardSpec() environment.Spec {
	return environment.Spec{Size: 1, Type: environment.Reward}
}

func TestEpisodeTruncation(t *testing.T) {
	env, err := NewEpisode(line{goal: 100}, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	s, err := env.Reset(0)
	if err != nil {
		t.Fatal(err)
	}

	action := mat.NewVecDense(1, []float64{1})
	for i := 1; i <= 3; i++ {
		s, err = env.Step(s, action)
		if err != nil {
			t.Fatal(err)
		}
		if s.Done != (i == 3) {
			t.Errorf("step %v: want done(%v) have(%v)", i, i == 3, s.Done)
		}
	}
	if !s.Info.Truncated {
		t.Error("episode ended by the step limit is not truncated")
	}

	// Stepping on starts a new episode count
	s, err = env.Step(s, action)
	if err != nil {
		t.Fatal(err)
	}
	if s.Info.Steps != 1 || s.Done || s.Info.Truncated {
		t.Errorf("restart: want 1 step, not done, have(%v, %v, %v)",
			s.Info.Steps, s.Done, s.Info.Truncated)
	}
}

func TestEpisodeTerminalIsNotTruncated(t *testing.T) {
	env, err := NewEpisode(line{goal: 2}, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := env.Reset(0)
	action := mat.NewVecDense(1, []float64{1})
	for i := 0; i < 2; i++ {
		if s, err = env.Step(s, action); err != nil {
			t.Fatal(err)
		}
	}
	if !s.Done || s.Info.Truncated {
		t.Errorf("want terminal and not truncated, have(%v, %v)", s.Done,
			s.Info.Truncated)
	}
}

func TestEpisodeActionRepeat(t *testing.T) {
	env, err := NewEpisode(line{goal: 5}, 100, 3)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := env.Reset(0)
	action := mat.NewVecDense(1, []float64{1})

	s, err = env.Step(s, action)
	if err != nil {
		t.Fatal(err)
	}
	if r := s.Reward.AtVec(0); r != 3 {
		t.Errorf("reward: want(3) have(%v)", r)
	}
	if s.Info.Steps != 3 {
		t.Errorf("steps: want(3) have(%v)", s.Info.Steps)
	}

	// Repetition stops once the goal is reached
	s, err = env.Step(s, action)
	if err != nil {
		t.Fatal(err)
	}
	if r := s.Reward.AtVec(0); r != 2 || !s.Done {
		t.Errorf("reward: want(2) and done, have(%v, %v)", r, s.Done)
	}

	if _, err := NewEpisode(line{}, 10, 0); err == nil {
		t.Error("newEpisode: expected error for zero action repeat")
	}
	if _, err := NewEpisode(line{}, 0, 1); err == nil {
		t.Error("newEpisode: expected error for zero episode length")
	}
}

func TestAutoReset(t *testing.T) {
	episode, err := NewEpisode(line{goal: 100}, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	env := NewAutoReset(episode)

	if _, err := env.Step(environment.State{}, nil); err == nil {
		t.Error("step: expected error for state not created by reset")
	}

	s, err := env.Reset(0)
	if err != nil {
		t.Fatal(err)
	}
	action := mat.NewVecDense(1, []float64{0.5})
	for i := 0; i < 2; i++ {
		if s, err = env.Step(s, action); err != nil {
			t.Fatal(err)
		}
	}

	// The last step keeps its reward and flags but starts over
	if !s.Done || !s.Info.Truncated {
		t.Errorf("want done and truncated, have(%v, %v)", s.Done,
			s.Info.Truncated)
	}
	if r := s.Reward.AtVec(0); r != 0.5 {
		t.Errorf("reward: want(0.5) have(%v)", r)
	}
	if x := s.QP.Pos[0].X; x != 0 {
		t.Errorf("position: want(0) have(%v)", x)
	}
	if o := s.Observation.AtVec(0); o != 0 {
		t.Errorf("observation: want(0) have(%v)", o)
	}

	s, err = env.Step(s, action)
	if err != nil {
		t.Fatal(err)
	}
	if s.Done || s.Info.Steps != 1 || s.QP.Pos[0].X != 0.5 {
		t.Errorf("new episode: have done(%v) steps(%v) x(%v)", s.Done,
			s.Info.Steps, s.QP.Pos[0].X)
	}

	// Restarting must not modify the recorded first state
	if s.Info.FirstQP.Pos[0].X != 0 {
		t.Error("first state modified by stepping")
	}
}
