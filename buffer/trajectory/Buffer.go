// Package trajectory implements a buffer of batched rollouts of fixed
// horizon which are used to compute short-horizon actor-critic losses
package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/shaclearn/agent/shac"
	"github.com/samuelfneumann/shaclearn/timestep"
)

// Buffer stores B rollouts of T transitions each. Transitions of a
// rollout must be stored in order. Once every rollout holds T
// transitions, the contents of the Buffer can be retrieved with Data.
type Buffer struct {
	obsSize    int // Size of state observations
	actionSize int // Number of action dimensions
	batch      int // Number of rollouts B
	horizon    int // Number of transitions T per rollout

	// Number of transitions stored in each rollout
	pos []int

	// Buffers for storing data, rollout major
	obsBuffer     []float64
	nextObsBuffer []float64
	actBuffer     []float64
	rewBuffer     []float64
	discBuffer    []float64
	truncBuffer   []float64
}

// New creates and returns a new trajectory buffer
func New(obsDim, actDim, batch, horizon int) (*Buffer, error) {
	if obsDim <= 0 {
		return nil, fmt.Errorf("new: observation size must be positive")
	}
	if actDim < 0 {
		return nil, fmt.Errorf("new: action size must be non-negative")
	}
	if batch <= 0 || horizon <= 0 {
		return nil, fmt.Errorf("new: batch size and horizon must be "+
			"positive \n\thave(%v, %v)", batch, horizon)
	}

	size := batch * horizon
	return &Buffer{
		obsSize:       obsDim,
		actionSize:    actDim,
		batch:         batch,
		horizon:       horizon,
		pos:           make([]int, batch),
		obsBuffer:     make([]float64, size*obsDim),
		nextObsBuffer: make([]float64, size*obsDim),
		actBuffer:     make([]float64, size*actDim),
		rewBuffer:     make([]float64, size),
		discBuffer:    make([]float64, size),
		truncBuffer:   make([]float64, size),
	}, nil
}

// Dims returns the batch size and horizon of the Buffer
func (b *Buffer) Dims() (int, int) {
	return b.batch, b.horizon
}

// Store stores the next transition of a rollout
func (b *Buffer) Store(rollout int, t timestep.Transition) error {
	if rollout < 0 || rollout >= b.batch {
		return fmt.Errorf("store: rollout %v out of range [0, %v)", rollout,
			b.batch)
	}
	if b.pos[rollout] >= b.horizon {
		return &BufferError{Op: "store", Err: errRolloutFull}
	}
	if t.Observation == nil || t.Observation.Len() != b.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			b.obsSize, vecLen(t.Observation))
	}
	if t.NextObservation == nil || t.NextObservation.Len() != b.obsSize {
		return fmt.Errorf("store: illegal next obs length "+
			"\n\twant(%v)\n\thave(%v)", b.obsSize, vecLen(t.NextObservation))
	}
	if vecLen(t.Action) != b.actionSize {
		return fmt.Errorf("store: illegal act length \n\twant(%v)\n\thave(%v)",
			b.actionSize, vecLen(t.Action))
	}

	i := rollout*b.horizon + b.pos[rollout]

	// Add observations
	start := i * b.obsSize
	stop := start + b.obsSize
	copyVec(b.obsBuffer[start:stop], t.Observation)
	copyVec(b.nextObsBuffer[start:stop], t.NextObservation)

	// Add actions
	if b.actionSize > 0 {
		start = i * b.actionSize
		stop = start + b.actionSize
		copyVec(b.actBuffer[start:stop], t.Action)
	}

	b.rewBuffer[i] = t.Reward
	b.discBuffer[i] = t.Discount
	b.truncBuffer[i] = t.Truncation
	b.pos[rollout]++
	return nil
}

// Full returns whether every rollout holds a full horizon of
// transitions
func (b *Buffer) Full() bool {
	for _, p := range b.pos {
		if p != b.horizon {
			return false
		}
	}
	return true
}

// Data returns the contents of the Buffer as the data of a SHAC loss.
// The returned matrices do not share memory with the Buffer.
func (b *Buffer) Data() (shac.Data, error) {
	if !b.Full() {
		return shac.Data{}, &BufferError{Op: "data", Err: errIncomplete}
	}

	size := b.batch * b.horizon
	return shac.Data{
		Observation: mat.NewDense(size, b.obsSize,
			append([]float64(nil), b.obsBuffer...)),
		NextObservation: mat.NewDense(size, b.obsSize,
			append([]float64(nil), b.nextObsBuffer...)),
		Reward: mat.NewDense(b.batch, b.horizon,
			append([]float64(nil), b.rewBuffer...)),
		Discount: mat.NewDense(b.batch, b.horizon,
			append([]float64(nil), b.discBuffer...)),
		Truncation: mat.NewDense(b.batch, b.horizon,
			append([]float64(nil), b.truncBuffer...)),
	}, nil
}

// Actions returns the [B*T, actions] matrix of stored actions, where
// row b*T + t holds the action of timestep t of rollout b
func (b *Buffer) Actions() (*mat.Dense, error) {
	if !b.Full() {
		return nil, &BufferError{Op: "actions", Err: errIncomplete}
	}
	if b.actionSize == 0 {
		return nil, fmt.Errorf("actions: buffer stores no actions")
	}
	return mat.NewDense(b.batch*b.horizon, b.actionSize,
		append([]float64(nil), b.actBuffer...)), nil
}

// RewardsToGo returns the [B, T] discounted rewards-to-go of each
// stored transition. Sums do not cross episode boundaries and are not
// bootstrapped at the horizon.
func (b *Buffer) RewardsToGo(discount float64) (*mat.Dense, error) {
	if !b.Full() {
		return nil, &BufferError{Op: "rewardsToGo", Err: errIncomplete}
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("rewardsToGo: discount must be in [0, 1] "+
			"\n\thave(%v)", discount)
	}

	out := mat.NewDense(b.batch, b.horizon, nil)
	for r := 0; r < b.batch; r++ {
		rews := b.rewBuffer[r*b.horizon : (r+1)*b.horizon]
		disc := b.discBuffer[r*b.horizon : (r+1)*b.horizon]
		trunc := b.truncBuffer[r*b.horizon : (r+1)*b.horizon]
		discountCumSum(out.RawRowView(r), rews, disc, trunc, discount)
	}
	return out, nil
}

// Reset empties the Buffer
func (b *Buffer) Reset() {
	for i := range b.pos {
		b.pos[i] = 0
	}
}

func vecLen(v *mat.VecDense) int {
	if v == nil {
		return 0
	}
	return v.Len()
}

func copyVec(dst []float64, v *mat.VecDense) {
	for i := range dst {
		dst[i] = v.AtVec(i)
	}
}

// discountCumSum fills dst with the discounted cumulative sums of
// rews, restarting the sum after every step which ends an episode
//
//	dst[t] = rews[t] + discount * dst[t+1]
func discountCumSum(dst, rews, disc, trunc []float64, discount float64) {
	var acc float64
	for t := len(rews) - 1; t >= 0; t-- {
		if disc[t] == 0 || trunc[t] == 1 {
			acc = 0
		}
		acc = rews[t] + discount*acc
		dst[t] = acc
	}
}
