// Package initwfn wraps Gorgonia weight initializers so that they can
// be described in JSON configuration files.
package initwfn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	G "gorgonia.org/gorgonia"
)

// Type describes the weight initializers that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Zeroes   Type = "Zeroes"
	Ones     Type = "Ones"
	Constant Type = "Constant"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
)

var registeredTypes = map[Type]reflect.Type{
	GlorotU:  reflect.TypeOf(GlorotUConfig{}),
	GlorotN:  reflect.TypeOf(GlorotNConfig{}),
	HeU:      reflect.TypeOf(HeUConfig{}),
	HeN:      reflect.TypeOf(HeNConfig{}),
	Zeroes:   reflect.TypeOf(ZeroesConfig{}),
	Ones:     reflect.TypeOf(OnesConfig{}),
	Constant: reflect.TypeOf(ConstantConfig{}),
	Gaussian: reflect.TypeOf(GaussianConfig{}),
	Uniform:  reflect.TypeOf(UniformConfig{}),
}

// Config describes a Gorgonia InitWFn
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type

	Validate() error
}

// InitWFn wraps a Gorgonia InitWFn so that it can be JSON marshalled
// and unmarshalled. Its JSON form is
//
//	{"Type": "GlorotU", "Config": {"Gain": 1}}
type InitWFn struct {
	initWFn G.InitWFn
	Type    Type
	Config  Config
}

// New returns a new InitWFn described by c
func New(c Config) (*InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return &InitWFn{initWFn: c.Create(), Type: c.Type(), Config: c}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %+v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaler interface. Unknown
// types and unknown configuration fields are errors.
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type   Type
		Config json.RawMessage
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&probe); err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}

	ty, ok := registeredTypes[probe.Type]
	if !ok {
		return fmt.Errorf("unmarshalJSON: unknown initializer type %q, "+
			"want one of %v", probe.Type, types())
	}
	config := reflect.New(ty)
	if len(probe.Config) > 0 && string(probe.Config) != "null" {
		dec = json.NewDecoder(bytes.NewReader(probe.Config))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config.Interface()); err != nil {
			return fmt.Errorf("unmarshalJSON: %v config: %v", probe.Type, err)
		}
	}

	init, err := New(config.Elem().Interface().(Config))
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*i = *init
	return nil
}

func types() []Type {
	t := make([]Type, 0, len(registeredTypes))
	for k := range registeredTypes {
		t = append(t, k)
	}
	sort.Slice(t, func(i, j int) bool { return t[i] < t[j] })
	return t
}
