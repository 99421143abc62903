package components

import (
	"errors"
	"fmt"
)

// UnknownComponentError reports that a component type is not registered
type UnknownComponentError struct {
	Type Type
}

// Error satisfies the error interface
func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown component type %q, want one of %v", e.Type,
		Types())
}

// IsUnknownComponent returns whether an error reports an unregistered
// component type
func IsUnknownComponent(err error) bool {
	var unknown *UnknownComponentError
	return errors.As(err, &unknown)
}
