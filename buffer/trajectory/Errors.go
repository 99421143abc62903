package trajectory

import "errors"

// BufferError implements errors unique to a trajectory buffer
type BufferError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *BufferError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

var errRolloutFull = errors.New("rollout already holds a full horizon")

var errIncomplete = errors.New("not every rollout holds a full horizon")

// IsRolloutFull returns whether or not an error reports that a
// transition was stored in a rollout which already reached the horizon
// of the buffer.
func IsRolloutFull(err error) bool {
	if bufErr, ok := err.(*BufferError); ok {
		err = bufErr.Err
	}
	return err == errRolloutFull
}

// IsIncomplete returns whether or not an error reports that data was
// requested from a buffer before every rollout reached the horizon.
func IsIncomplete(err error) bool {
	if bufErr, ok := err.(*BufferError); ok {
		err = bufErr.Err
	}
	return err == errIncomplete
}
