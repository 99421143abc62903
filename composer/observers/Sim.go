package observers

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/shaclearn/sim"
)

type field struct {
	kind sim.Kind
	comp string
}

// fieldSizes holds the number of values of each observable field
var fieldSizes = map[field]int{
	{sim.Body, "pos"}:     3,
	{sim.Body, "rot"}:     4,
	{sim.Body, "vel"}:     3,
	{sim.Body, "ang"}:     3,
	{sim.Body, "contact"}: 3,
	{sim.Joint, "angle"}:  1,
	{sim.Joint, "vel"}:    1,
}

// memoKey identifies one lookup of a field of a named entity
type memoKey struct {
	kind   sim.Kind
	field  string
	entity string
}

// Context is the state observed by a single observation computation.
// Field lookups are memoized for the lifetime of the Context, so a
// Context must not be reused across states.
type Context struct {
	Sys  sim.System
	QP   sim.QP
	Info sim.Info

	memo map[memoKey][]float64
}

// NewContext returns a new Context for observing a state
func NewContext(sys sim.System, qp sim.QP, info sim.Info) *Context {
	return &Context{
		Sys:  sys,
		QP:   qp,
		Info: info,
		memo: make(map[memoKey][]float64),
	}
}

// Lookups returns the number of distinct field lookups performed
func (c *Context) Lookups() int {
	return len(c.memo)
}

// Lookup returns the values of field comp of the named entity. The
// returned slice must not be modified.
func (c *Context) Lookup(kind sim.Kind, comp, entity string) ([]float64,
	error) {
	key := memoKey{kind, comp, entity}
	if v, ok := c.memo[key]; ok {
		return v, nil
	}

	i, ok := c.Sys.Config().Index(kind, entity)
	if !ok {
		return nil, fmt.Errorf("lookup: unknown %v %q", kind, entity)
	}

	var v []float64
	switch kind {
	case sim.Body:
		if i >= c.QP.Len() {
			return nil, fmt.Errorf("lookup: body %q not in state", entity)
		}
		switch comp {
		case "pos":
			p := c.QP.Pos[i]
			v = []float64{p.X, p.Y, p.Z}
		case "rot":
			r := c.QP.Rot[i]
			v = []float64{r.Real, r.Imag, r.Jmag, r.Kmag}
		case "vel":
			p := c.QP.Vel[i]
			v = []float64{p.X, p.Y, p.Z}
		case "ang":
			p := c.QP.Ang[i]
			v = []float64{p.X, p.Y, p.Z}
		case "contact":
			v = make([]float64, 3)
			if i < len(c.Info.Contact) {
				p := c.Info.Contact[i]
				v = []float64{p.X, p.Y, p.Z}
			}
		}

	case sim.Joint:
		switch comp {
		case "angle":
			if i >= len(c.Info.JointAngle) {
				return nil, fmt.Errorf("lookup: no angle for joint %q", entity)
			}
			v = []float64{c.Info.JointAngle[i]}
		case "vel":
			if i >= len(c.Info.JointVel) {
				return nil, fmt.Errorf("lookup: no velocity for joint %q",
					entity)
			}
			v = []float64{c.Info.JointVel[i]}
		}
	}
	if v == nil {
		return nil, fmt.Errorf("lookup: unknown field %v of %v", comp, kind)
	}

	c.memo[key] = v
	return v, nil
}

// SimObserver observes one field of a named body or joint
type SimObserver struct {
	Label   string
	Kind    sim.Kind
	Field   string
	Entity  string
	Indices []int
}

// Observe satisfies the Observer interface
func (s *SimObserver) Observe(ctx *Context, out *Dict) error {
	v, err := ctx.Lookup(s.Kind, s.Field, s.Entity)
	if err != nil {
		return fmt.Errorf("observe %v: %v", s.Label, err)
	}
	out.Add(s.Label, selectIndices(v, s.Indices))
	return nil
}

// JointsObserver observes one field of several joints as a single
// vector
type JointsObserver struct {
	Label  string
	Field  string
	Joints []string
}

// Observe satisfies the Observer interface
func (j *JointsObserver) Observe(ctx *Context, out *Dict) error {
	values := make([]float64, 0, len(j.Joints))
	for _, joint := range j.Joints {
		v, err := ctx.Lookup(sim.Joint, j.Field, joint)
		if err != nil {
			return fmt.Errorf("observe %v: %v", j.Label, err)
		}
		values = append(values, v...)
	}
	out.Add(j.Label, values)
	return nil
}

// Group observes each of its Observers in order
type Group []Observer

// Observe satisfies the Observer interface
func (g Group) Observe(ctx *Context, out *Dict) error {
	for _, o := range g {
		if err := o.Observe(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// Fn is an elementwise function combining observations
type Fn string

const (
	Sub Fn = "-"
	Add Fn = "+"
	Mul Fn = "*"
)

var fns = map[Fn]func(dst, s []float64){
	Sub: floats.Sub,
	Add: floats.Add,
	Mul: floats.Mul,
}

// LambdaObserver folds the values of its inputs with an elementwise
// function. Each input's values are concatenated before folding, and
// all inputs must have the same number of values.
type LambdaObserver struct {
	Label  string
	Fn     Fn
	Inputs []Observer
}

// Observe satisfies the Observer interface
func (l *LambdaObserver) Observe(ctx *Context, out *Dict) error {
	fn, ok := fns[l.Fn]
	if !ok {
		return fmt.Errorf("observe %v: unknown fn %q", l.Label, l.Fn)
	}

	var acc []float64
	for i, in := range l.Inputs {
		d := NewDict()
		if err := in.Observe(ctx, d); err != nil {
			return fmt.Errorf("observe %v: %v", l.Label, err)
		}
		v := d.Values()
		if i == 0 {
			acc = v
			continue
		}
		if len(v) != len(acc) {
			return fmt.Errorf("observe %v: input %v has %v values, want %v",
				l.Label, i, len(v), len(acc))
		}
		fn(acc, v)
	}
	out.Add(l.Label, acc)
	return nil
}

func selectIndices(v []float64, indices []int) []float64 {
	if len(indices) == 0 {
		return append([]float64(nil), v...)
	}
	out := make([]float64, len(indices))
	for i, index := range indices {
		out[i] = v[index]
	}
	return out
}
