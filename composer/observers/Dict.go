package observers

import (
	"gonum.org/v1/gonum/mat"
)

// Dict is an insertion-ordered mapping of observation names to values.
// Adding a name which already exists keeps the first value.
type Dict struct {
	keys   []string
	values map[string][]float64
}

// NewDict returns an empty Dict
func NewDict() *Dict {
	return &Dict{values: make(map[string][]float64)}
}

// Add adds a named value, returning false if the name already exists,
// in which case the Dict is unchanged
func (d *Dict) Add(name string, v []float64) bool {
	if _, ok := d.values[name]; ok {
		return false
	}
	d.keys = append(d.keys, name)
	d.values[name] = v
	return true
}

// Union adds every entry of other to d in order
func (d *Dict) Union(other *Dict) {
	for _, k := range other.keys {
		d.Add(k, other.values[k])
	}
}

// Get returns the value of a name
func (d *Dict) Get(name string) ([]float64, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Keys returns the names in the Dict in insertion order
func (d *Dict) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of entries in the Dict
func (d *Dict) Len() int {
	return len(d.keys)
}

// Size returns the total number of values in the Dict
func (d *Dict) Size() int {
	n := 0
	for _, v := range d.values {
		n += len(v)
	}
	return n
}

// Values returns a new slice holding all values concatenated in
// insertion order
func (d *Dict) Values() []float64 {
	out := make([]float64, 0, d.Size())
	for _, k := range d.keys {
		out = append(out, d.values[k]...)
	}
	return out
}

// Vector returns the concatenated values as a vector
func (d *Dict) Vector() *mat.VecDense {
	v := d.Values()
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

// Span locates one named entry of a Dict inside its concatenated
// values
type Span struct {
	Name  string
	Start int
	Size  int
}

// Spans returns the location of every entry in the concatenated
// values, in insertion order
func (d *Dict) Spans() []Span {
	spans := make([]Span, len(d.keys))
	start := 0
	for i, k := range d.keys {
		spans[i] = Span{Name: k, Start: start, Size: len(d.values[k])}
		start += spans[i].Size
	}
	return spans
}

// Split splits a concatenated vector back into a Dict with the given
// layout
func Split(v []float64, spans []Span) *Dict {
	d := NewDict()
	for _, s := range spans {
		d.Add(s.Name, append([]float64(nil), v[s.Start:s.Start+s.Size]...))
	}
	return d
}
