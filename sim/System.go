package sim

// System is a physics system built from a Config
type System interface {
	// Config returns the configuration the System was built from. The
	// returned Config must not be modified.
	Config() *Config

	// DefaultQP returns the resting state of the system
	DefaultQP() QP

	// Info computes the Info of a state without stepping it
	Info(qp QP) (Info, error)

	// Step advances qp by one control step under the given action,
	// which has one entry per actuator
	Step(qp QP, action []float64) (QP, Info, error)
}

// Factory creates a System from a Config
type Factory func(*Config) (System, error)

// ActionSize returns the number of action dimensions of a Config
func ActionSize(c *Config) int {
	return len(c.Actuators)
}
