package shac

import (
	"errors"
	"fmt"
)

// ShapeError is returned when an input has an invalid shape
type ShapeError struct {
	Op   string
	Name string
	Want []int
	Have []int
}

func (s *ShapeError) Error() string {
	return fmt.Sprintf("%v: invalid shape for %v \n\twant(%v) \n\thave(%v)",
		s.Op, s.Name, s.Want, s.Have)
}

// IsShapeError returns whether err is or wraps a *ShapeError
func IsShapeError(err error) bool {
	var s *ShapeError
	return errors.As(err, &s)
}
