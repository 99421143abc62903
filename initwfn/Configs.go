package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// GlorotUConfig configures the Glorot uniform initializer
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return New(GlorotUConfig{Gain: gain})
}

func (g GlorotUConfig) Type() Type { return GlorotU }
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }
func (g GlorotUConfig) Validate() error { return validGain(g.Gain) }

// GlorotNConfig configures the Glorot normal initializer
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return New(GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Type() Type { return GlorotN }
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }
func (g GlorotNConfig) Validate() error { return validGain(g.Gain) }

// HeUConfig configures the He uniform initializer
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return New(HeUConfig{Gain: gain})
}

func (h HeUConfig) Type() Type { return HeU }
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }
func (h HeUConfig) Validate() error { return validGain(h.Gain) }

// HeNConfig configures the He normal initializer
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return New(HeNConfig{Gain: gain})
}

func (h HeNConfig) Type() Type { return HeN }
func (h HeNConfig) Create() G.InitWFn { return G.HeN(h.Gain) }
func (h HeNConfig) Validate() error { return validGain(h.Gain) }

// ZeroesConfig configures an initializer setting all weights to 0
type ZeroesConfig struct{}

// NewZeroes returns a new weight initializer setting all weights to 0
func NewZeroes() (*InitWFn, error) {
	return New(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type { return Zeroes }
func (z ZeroesConfig) Create() G.InitWFn { return G.Zeroes() }
func (z ZeroesConfig) Validate() error { return nil }

// OnesConfig configures an initializer setting all weights to 1
type OnesConfig struct{}

// NewOnes returns a new weight initializer setting all weights to 1
func NewOnes() (*InitWFn, error) {
	return New(OnesConfig{})
}

func (o OnesConfig) Type() Type { return Ones }
func (o OnesConfig) Create() G.InitWFn { return G.Ones() }
func (o OnesConfig) Validate() error { return nil }

// ConstantConfig configures an initializer setting all weights to a
// single value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new weight initializer setting all weights to
// value
func NewConstant(value float64) (*InitWFn, error) {
	return New(ConstantConfig{Value: value})
}

func (c ConstantConfig) Type() Type { return Constant }
func (c ConstantConfig) Create() G.InitWFn { return G.ValuesOf(c.Value) }
func (c ConstantConfig) Validate() error { return nil }

// GaussianConfig configures an initializer drawing weights from a
// Gaussian distribution
type GaussianConfig struct {
	Mean   float64
	StdDev float64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return New(GaussianConfig{Mean: mean, StdDev: stddev})
}

func (g GaussianConfig) Type() Type { return Gaussian }
func (g GaussianConfig) Create() G.InitWFn { return G.Gaussian(g.Mean, g.StdDev) }

// Validate checks that the standard deviation is non-negative
func (g GaussianConfig) Validate() error {
	if g.StdDev < 0 {
		return fmt.Errorf("validate: standard deviation must be "+
			"non-negative, have(%v)", g.StdDev)
	}
	return nil
}

// UniformConfig configures an initializer drawing weights uniformly
// from [Low, High]
type UniformConfig struct {
	Low  float64
	High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return New(UniformConfig{Low: low, High: high})
}

func (u UniformConfig) Type() Type { return Uniform }
func (u UniformConfig) Create() G.InitWFn { return G.Uniform(u.Low, u.High) }

// Validate checks that the bounds are ordered
func (u UniformConfig) Validate() error {
	if u.Low > u.High {
		return fmt.Errorf("validate: low bound %v > high bound %v", u.Low,
			u.High)
	}
	return nil
}

func validGain(gain float64) error {
	if gain <= 0 {
		return fmt.Errorf("validate: gain must be positive, have(%v)", gain)
	}
	return nil
}
