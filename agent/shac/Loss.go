package shac

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/network"
)

// Data is a batch of B rollouts of T transitions each, with the batch
// dimension leading. Matrices of per step quantities are [B, T].
// Observations are stacked into [B*T, features] matrices where row
// b*T + t holds timestep t of rollout b.
type Data struct {
	Observation     *mat.Dense
	NextObservation *mat.Dense
	Reward          *mat.Dense
	Discount        *mat.Dense
	Truncation      *mat.Dense

	// Entropy holds the [B, T] entropy of the policy at each step. It
	// may be nil, in which case the entropy loss is zero.
	Entropy *mat.Dense
}

// Dims returns the batch size B and horizon T of the Data
func (d Data) Dims() (int, int) {
	if d.Reward == nil || d.Reward.IsEmpty() {
		return 0, 0
	}
	return d.Reward.Dims()
}

func (d Data) validate(op string) error {
	n, t := d.Dims()
	if n == 0 {
		return fmt.Errorf("%v: empty data", op)
	}
	want := []int{n, t}
	for _, entry := range []struct {
		name string
		m    *mat.Dense
	}{
		{"discount", d.Discount},
		{"truncation", d.Truncation},
		{"entropy", d.Entropy},
	} {
		if entry.m == nil {
			if entry.name == "entropy" {
				continue
			}
			return &ShapeError{Op: op, Name: entry.name, Want: want,
				Have: []int{0, 0}}
		}
		if r, c := entry.m.Dims(); r != n || c != t {
			return &ShapeError{Op: op, Name: entry.name, Want: want,
				Have: []int{r, c}}
		}
	}

	if d.Observation == nil || d.NextObservation == nil {
		return fmt.Errorf("%v: missing observations", op)
	}
	r, c := d.Observation.Dims()
	if r != n*t {
		return &ShapeError{Op: op, Name: "observation",
			Want: []int{n * t, c}, Have: []int{r, c}}
	}
	if nr, nc := d.NextObservation.Dims(); nr != r || nc != c {
		return &ShapeError{Op: op, Name: "next observation",
			Want: []int{r, c}, Have: []int{nr, nc}}
	}
	return nil
}

// Metrics are the losses computed by Loss
type Metrics struct {
	TotalLoss   float64
	PolicyLoss  float64
	VLoss       float64
	EntropyLoss float64
}

// Map returns the Metrics keyed by name
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"total_loss":   m.TotalLoss,
		"policy_loss":  m.PolicyLoss,
		"v_loss":       m.VLoss,
		"entropy_loss": m.EntropyLoss,
	}
}

// Loss returns the SHAC loss of data with value function value,
// together with its component losses. The total loss is the policy
// loss plus the entropy loss; the value loss is reported but not
// included in the total, since the critic is fit separately.
func Loss(cfg Config, data Data, value network.Applier) (float64, Metrics,
	error) {
	if err := cfg.Validate(); err != nil {
		return 0, Metrics{}, fmt.Errorf("loss: %w", err)
	}
	b, err := NewBatch(cfg, data, value)
	if err != nil {
		return 0, Metrics{}, err
	}

	var policyLoss float64
	switch cfg.PolicyObjective {
	case MeanReward:
		policyLoss, err = MeanRewardLoss(b)
	default:
		policyLoss, err = PolicyLoss(b, cfg.Discounting)
	}
	if err != nil {
		return 0, Metrics{}, fmt.Errorf("loss: %w", err)
	}

	targets, err := TargetValues(b, cfg.Discounting, cfg.Lambda,
		cfg.TDLambda)
	if err != nil {
		return 0, Metrics{}, fmt.Errorf("loss: %w", err)
	}
	vLoss, err := ValueLoss(targets, b.Values)
	if err != nil {
		return 0, Metrics{}, fmt.Errorf("loss: %w", err)
	}

	var entropyLoss float64
	if data.Entropy != nil {
		n, t := data.Dims()
		entropyLoss = -cfg.EntropyCost * mat.Sum(data.Entropy) / float64(n*t)
	}

	m := Metrics{
		TotalLoss:   policyLoss + entropyLoss,
		PolicyLoss:  policyLoss,
		VLoss:       vLoss,
		EntropyLoss: entropyLoss,
	}
	return m.TotalLoss, m, nil
}

// NewBatch converts data into a Batch with time leading, scaling the
// rewards and evaluating the value of each observation and the
// bootstrap value of the last next observation of each rollout with
// value
func NewBatch(cfg Config, data Data, value network.Applier) (Batch, error) {
	if err := data.validate("newBatch"); err != nil {
		return Batch{}, err
	}
	n, t := data.Dims()

	rewards := mat.DenseCopyOf(data.Reward.T())
	rewards.Scale(cfg.RewardScaling, rewards)
	truncation := mat.DenseCopyOf(data.Truncation.T())
	termination, err := Termination(mat.DenseCopyOf(data.Discount.T()),
		truncation)
	if err != nil {
		return Batch{}, fmt.Errorf("newBatch: %w", err)
	}

	baseline, err := value.Apply(data.Observation)
	if err != nil {
		return Batch{}, fmt.Errorf("newBatch: value: %w", err)
	}
	if baseline.Len() != n*t {
		return Batch{}, &ShapeError{Op: "newBatch", Name: "values",
			Want: []int{n * t}, Have: []int{baseline.Len()}}
	}
	values := mat.NewDense(t, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < t; i++ {
			values.Set(i, j, baseline.AtVec(j*t+i))
		}
	}

	_, features := data.NextObservation.Dims()
	last := mat.NewDense(n, features, nil)
	for j := 0; j < n; j++ {
		last.SetRow(j, data.NextObservation.RawRowView(j*t+t-1))
	}
	bootstrap, err := value.Apply(last)
	if err != nil {
		return Batch{}, fmt.Errorf("newBatch: bootstrap value: %w", err)
	}
	if bootstrap.Len() != n {
		return Batch{}, &ShapeError{Op: "newBatch", Name: "bootstrap",
			Want: []int{n}, Have: []int{bootstrap.Len()}}
	}

	return Batch{
		Rewards:     rewards,
		Values:      values,
		Truncation:  truncation,
		Termination: termination,
		Bootstrap:   bootstrap,
	}, nil
}

// Flatten returns the entries of a [T, B] matrix in the row order of
// Data observations, so that entry b*T + t holds m[t, b]
func Flatten(m *mat.Dense) *mat.VecDense {
	t, n := m.Dims()
	out := mat.NewVecDense(t*n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < t; i++ {
			out.SetVec(j*t+i, m.At(i, j))
		}
	}
	return out
}
