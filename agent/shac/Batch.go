package shac

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Batch is a window of T timesteps of B rollouts. All matrices are
// [T, B]; Bootstrap holds the B values of the states following the
// window. Truncation and Termination hold 1 where the flag is set and
// 0 otherwise.
type Batch struct {
	Rewards     *mat.Dense
	Values      *mat.Dense
	Truncation  *mat.Dense
	Termination *mat.Dense
	Bootstrap   *mat.VecDense
}

// Dims returns the horizon T and the batch size B of the Batch
func (b Batch) Dims() (int, int) {
	if b.Rewards == nil || b.Rewards.IsEmpty() {
		return 0, 0
	}
	return b.Rewards.Dims()
}

// validate checks the shapes and flags of the Batch. Values are only
// checked if needValues is set.
func (b Batch) validate(op string, needValues bool) error {
	t, n := b.Dims()
	if t == 0 {
		return fmt.Errorf("%v: horizon must be positive", op)
	}
	want := []int{t, n}

	type entry struct {
		name string
		m    *mat.Dense
		flag bool
	}
	matrices := []entry{
		{"truncation", b.Truncation, true},
		{"termination", b.Termination, true},
	}
	if needValues {
		matrices = append(matrices, entry{"values", b.Values, false})
	}

	for _, entry := range matrices {
		if entry.m == nil || entry.m.IsEmpty() {
			return &ShapeError{Op: op, Name: entry.name, Want: want,
				Have: []int{0, 0}}
		}
		if r, c := entry.m.Dims(); r != t || c != n {
			return &ShapeError{Op: op, Name: entry.name, Want: want,
				Have: []int{r, c}}
		}
		if !entry.flag {
			continue
		}
		for i := 0; i < t; i++ {
			for j := 0; j < n; j++ {
				if v := entry.m.At(i, j); v != 0 && v != 1 {
					return fmt.Errorf("%v: %v[%v, %v] = %v is not a flag",
						op, entry.name, i, j, v)
				}
			}
		}
	}

	if b.Bootstrap == nil || b.Bootstrap.IsEmpty() {
		return &ShapeError{Op: op, Name: "bootstrap", Want: []int{n},
			Have: []int{0}}
	}
	if l := b.Bootstrap.Len(); l != n {
		return &ShapeError{Op: op, Name: "bootstrap", Want: []int{n},
			Have: []int{l}}
	}
	return nil
}

// NextValues returns the [T, B] values of the states following each
// timestep: the values shifted back by one step with the bootstrap
// values appended
func (b Batch) NextValues() *mat.Dense {
	t, n := b.Dims()
	next := mat.NewDense(t, n, nil)
	if t > 1 {
		next.Slice(0, t-1, 0, n).(*mat.Dense).Copy(b.Values.Slice(1, t, 0, n))
	}
	for j := 0; j < n; j++ {
		next.Set(t-1, j, b.Bootstrap.AtVec(j))
	}
	return next
}

// Termination returns the [T, B] termination flags of a window given
// its discounts and truncation flags: a timestep terminates if its
// discount is zero and it was not truncated.
//
//	termination = (1 - discount) * (1 - truncation)
func Termination(discount, truncation *mat.Dense) (*mat.Dense, error) {
	if discount == nil || truncation == nil {
		return nil, fmt.Errorf("termination: nil input")
	}
	r, c := discount.Dims()
	if tr, tc := truncation.Dims(); tr != r || tc != c {
		return nil, &ShapeError{Op: "termination", Name: "truncation",
			Want: []int{r, c}, Have: []int{tr, tc}}
	}
	term := mat.NewDense(r, c, nil)
	term.Apply(func(i, j int, v float64) float64 {
		return (1 - v) * (1 - truncation.At(i, j))
	}, discount)
	return term, nil
}
