package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/shaclearn/agent/shac"
	"github.com/samuelfneumann/shaclearn/buffer/trajectory"
	"github.com/samuelfneumann/shaclearn/environment"
	"github.com/samuelfneumann/shaclearn/experiment/tracker"
	"github.com/samuelfneumann/shaclearn/network"
	"github.com/samuelfneumann/shaclearn/timestep"
)

// Online rolls out a batch of episodes of an environment with a
// policy. Each segment steps every rollout for a fixed horizon,
// continuing from where the previous segment stopped, and evaluates
// the SHAC losses of the collected data. If a Critic is set, the value
// function is fit to the value targets of each segment.
type Online struct {
	env      environment.Env
	policy   Policy
	buffer   *trajectory.Buffer
	states   []environment.State
	trackers []tracker.Tracker

	cfg    shac.Config
	value  network.Applier
	critic *shac.Critic
}

// Segment holds the results of one segment of an Online experiment
type Segment struct {
	Data    shac.Data
	Metrics shac.Metrics

	// Actions holds the action of each transition in the row layout of
	// Data.Observation, or is nil if the environment takes no actions
	Actions *mat.Dense

	// RewardsToGo holds the [B, T] discounted rewards-to-go of each
	// transition within its episode, without bootstrapping
	RewardsToGo *mat.Dense

	// MeanReward is the mean reward over all transitions of the segment
	MeanReward float64

	// CriticLoss is the critic loss before the critic update, or 0 if
	// the experiment has no Critic
	CriticLoss float64
}

// NewOnline creates and returns a new online experiment of batch
// rollouts with the given horizon. Rollout i is reset with seed
// seed + i. Values are estimated by the critic if it is non-nil, and
// are zero otherwise.
func NewOnline(env environment.Env, policy Policy, cfg shac.Config, batch,
	horizon int, seed uint64, critic *shac.Critic,
	t ...tracker.Tracker) (*Online, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}
	buffer, err := trajectory.New(env.ObservationSpec().Size,
		env.ActionSpec().Size, batch, horizon)
	if err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}

	states := make([]environment.State, batch)
	for i := range states {
		if states[i], err = env.Reset(seed + uint64(i)); err != nil {
			return nil, fmt.Errorf("newOnline: reset rollout %v: %v", i, err)
		}
	}

	var value network.Applier = zeroValue{}
	if critic != nil {
		value = critic.Network()
	}

	return &Online{
		env:      env,
		policy:   policy,
		buffer:   buffer,
		states:   states,
		trackers: t,
		cfg:      cfg,
		value:    value,
		critic:   critic,
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// States returns the current state of each rollout
func (o *Online) States() []environment.State {
	return append([]environment.State(nil), o.states...)
}

// Unroll steps each rollout for one horizon and returns the collected
// data
func (o *Online) Unroll() (shac.Data, error) {
	o.buffer.Reset()
	_, horizon := o.buffer.Dims()

	for i := range o.states {
		for t := 0; t < horizon; t++ {
			state := o.states[i]
			action, err := o.policy.SelectAction(state.Observation)
			if err != nil {
				return shac.Data{}, fmt.Errorf("unroll: rollout %v: %v", i,
					err)
			}
			next, err := o.env.Step(state, action)
			if err != nil {
				return shac.Data{}, fmt.Errorf("unroll: rollout %v: %v", i,
					err)
			}

			step, err := timestep.FromStates(state, next, action)
			if err != nil {
				return shac.Data{}, fmt.Errorf("unroll: rollout %v: %v", i,
					err)
			}
			if err := o.buffer.Store(i, step); err != nil {
				return shac.Data{}, fmt.Errorf("unroll: %v", err)
			}
			o.track(i, step)
			o.states[i] = next
		}
	}

	return o.buffer.Data()
}

// RunSegment collects one segment of data and computes its losses,
// updating the Critic if there is one
func (o *Online) RunSegment() (Segment, error) {
	data, err := o.Unroll()
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: %w", err)
	}

	_, metrics, err := shac.Loss(o.cfg, data, o.value)
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: %w", err)
	}
	rtg, err := o.buffer.RewardsToGo(o.cfg.Discounting)
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: %w", err)
	}
	seg := Segment{
		Data:        data,
		Metrics:     metrics,
		RewardsToGo: rtg,
		MeanReward:  stat.Mean(mat.DenseCopyOf(data.Reward).RawMatrix().Data, nil),
	}
	if o.env.ActionSpec().Size > 0 {
		if seg.Actions, err = o.buffer.Actions(); err != nil {
			return Segment{}, fmt.Errorf("runSegment: %w", err)
		}
	}

	if o.critic == nil {
		return seg, nil
	}
	batch, err := shac.NewBatch(o.cfg, data, o.value)
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: %w", err)
	}
	targets, err := shac.TargetValues(batch, o.cfg.Discounting, o.cfg.Lambda,
		o.cfg.TDLambda)
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: %w", err)
	}
	seg.CriticLoss, err = o.critic.Update(data.Observation,
		shac.Flatten(targets))
	if err != nil {
		return Segment{}, fmt.Errorf("runSegment: critic: %v", err)
	}
	return seg, nil
}

// Run runs segments segments of the experiment and returns the results
// of each segment
func (o *Online) Run(segments int) ([]Segment, error) {
	out := make([]Segment, 0, segments)
	for i := 0; i < segments; i++ {
		seg, err := o.RunSegment()
		if err != nil {
			return out, fmt.Errorf("run: segment %v: %v", i, err)
		}
		out = append(out, seg)
	}
	return out, nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// Close releases the resources of the experiment
func (o *Online) Close() error {
	if o.critic != nil {
		return o.critic.Close()
	}
	return nil
}

// track sends a transition of a rollout to each Tracker
func (o *Online) track(rollout int, t timestep.Transition) {
	for _, tracker := range o.trackers {
		tracker.Track(rollout, t)
	}
}

// zeroValue is a value function which predicts zero for every
// observation
type zeroValue struct{}

func (zeroValue) Apply(obs mat.Matrix) (*mat.VecDense, error) {
	r, _ := obs.Dims()
	return mat.NewVecDense(r, nil), nil
}
