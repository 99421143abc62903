package composer

import (
	"errors"
)

// ConstructionError reports why a composition could not be built.
// Subject names the offending component, edge, reward function, or
// agent group.
type ConstructionError struct {
	Op      string
	Subject string
	Err     error
}

// Error satisfies the error interface
func (e *ConstructionError) Error() string {
	if e.Subject == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Subject + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

var errDuplicateReward = errors.New("duplicate reward function")

var errUnusedEdge = errors.New("unused edge description")

var errAgentGroups = errors.New("agent groups do not match registered " +
	"reward functions")

var errNameCollision = errors.New("body name collision")

// IsConstructionError returns whether an error was returned while
// building a composition
func IsConstructionError(err error) bool {
	var c *ConstructionError
	return errors.As(err, &c)
}

// IsDuplicateReward returns whether an error reports that two reward
// functions were registered under the same name
func IsDuplicateReward(err error) bool {
	return errors.Is(err, errDuplicateReward)
}

// IsUnusedEdge returns whether an error reports an edge description
// which does not name a pair of components
func IsUnusedEdge(err error) bool {
	return errors.Is(err, errUnusedEdge)
}

// IsAgentGroupMismatch returns whether an error reports that the
// reward names of the agent groups do not match the registered reward
// functions
func IsAgentGroupMismatch(err error) bool {
	return errors.Is(err, errAgentGroups)
}

// IsNameCollision returns whether an error reports that two components
// produced the same body name
func IsNameCollision(err error) bool {
	return errors.Is(err, errNameCollision)
}
