package sim

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// QP is the coordinate state of every body in a system: position,
// rotation, linear velocity, and angular velocity, indexed like
// Config.Bodies.
type QP struct {
	Pos []r3.Vec
	Rot []quat.Number
	Vel []r3.Vec
	Ang []r3.Vec
}

// NewQP returns the QP of n bodies at rest at the origin
func NewQP(n int) QP {
	qp := QP{
		Pos: make([]r3.Vec, n),
		Rot: make([]quat.Number, n),
		Vel: make([]r3.Vec, n),
		Ang: make([]r3.Vec, n),
	}
	for i := range qp.Rot {
		qp.Rot[i] = quat.Number{Real: 1}
	}
	return qp
}

// Len returns the number of bodies in the QP
func (q QP) Len() int {
	return len(q.Pos)
}

// Clone returns a deep copy of the QP
func (q QP) Clone() QP {
	return QP{
		Pos: append([]r3.Vec(nil), q.Pos...),
		Rot: append([]quat.Number(nil), q.Rot...),
		Vel: append([]r3.Vec(nil), q.Vel...),
		Ang: append([]r3.Vec(nil), q.Ang...),
	}
}

// Info holds quantities computed by a System alongside a QP
type Info struct {
	// Contact holds the contact force (or contact indicator) on each
	// body
	Contact []r3.Vec

	JointAngle []float64
	JointVel   []float64
}

// Rotate rotates v by the unit quaternion q
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Normalize returns q scaled to unit length
func Normalize(q quat.Number) (quat.Number, error) {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{}, fmt.Errorf("normalize: zero quaternion")
	}
	return quat.Scale(1/n, q), nil
}

// QuatFromSlice builds a unit quaternion from (w, x, y, z) values.
// An empty slice is the identity rotation.
func QuatFromSlice(v []float64) (quat.Number, error) {
	if len(v) == 0 {
		return quat.Number{Real: 1}, nil
	}
	if len(v) != 4 {
		return quat.Number{}, fmt.Errorf("quatFromSlice: quaternion must "+
			"have 4 components, have(%v)", len(v))
	}
	return Normalize(quat.Number{Real: v[0], Imag: v[1], Jmag: v[2],
		Kmag: v[3]})
}

// VecFromSlice builds a vector from (x, y, z) values. An empty slice
// is the zero vector.
func VecFromSlice(v []float64) (r3.Vec, error) {
	if len(v) == 0 {
		return r3.Vec{}, nil
	}
	if len(v) != 3 {
		return r3.Vec{}, fmt.Errorf("vecFromSlice: vector must have 3 "+
			"components, have(%v)", len(v))
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Transform is a rigid transform applied to a subset of bodies. Each
// body is first rotated by Rot in the component frame, then translated
// by Pos, and finally the translated bodies are rotated about the world
// origin by Origin.
type Transform struct {
	Pos    r3.Vec
	Origin quat.Number
	Rot    quat.Number
}

// NewTransform returns the identity Transform
func NewTransform() Transform {
	return Transform{
		Origin: quat.Number{Real: 1},
		Rot:    quat.Number{Real: 1},
	}
}

// Apply returns a copy of qp with the Transform applied to every body
// for which mask is true
func (t Transform) Apply(qp QP, mask []bool) (QP, error) {
	if len(mask) != qp.Len() {
		return QP{}, fmt.Errorf("apply: mask length %v does not match "+
			"number of bodies %v", len(mask), qp.Len())
	}

	out := qp.Clone()
	full := quat.Mul(t.Origin, t.Rot)
	for i, selected := range mask {
		if !selected {
			continue
		}
		p := Rotate(t.Rot, qp.Pos[i])
		p = r3.Vec{X: p.X + t.Pos.X, Y: p.Y + t.Pos.Y, Z: p.Z + t.Pos.Z}
		out.Pos[i] = Rotate(t.Origin, p)
		out.Rot[i] = quat.Mul(full, qp.Rot[i])
		out.Vel[i] = Rotate(full, qp.Vel[i])
		out.Ang[i] = Rotate(full, qp.Ang[i])
	}
	return out, nil
}
