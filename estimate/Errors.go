package estimate

import (
	"errors"

	"github.com/samuelfneumann/gorollout/trajectory"
)

// ErrInvalidParameter indicates that an estimator was configured or
// called with a parameter outside its legal range
var ErrInvalidParameter = errors.New("parameter out of its legal range")

// IsInvalidParameter returns whether err indicates that a parameter
// was outside its legal range, such as a discount factor above 1
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsShapeMismatch returns whether err indicates that parallel arrays
// describing the same trajectory segment differed in length
func IsShapeMismatch(err error) bool {
	return errors.Is(err, trajectory.ErrShapeMismatch)
}
