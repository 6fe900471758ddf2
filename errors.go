package pcmesh

import (
	"errors"
	"fmt"
)

// Error taxonomy of the reconstruction pipeline. Stage errors wrap one of
// these so callers can tell validation failures apart from I/O failures
// with errors.Is.
var (
	// ErrEmptyInput is returned when there are no points to process.
	ErrEmptyInput = errors.New("empty point set")
	// ErrEmptyIndex is returned when building a spatial index from zero points.
	ErrEmptyIndex = errors.New("spatial index built from zero points")
	// ErrTooManyPoints is returned when conditioning could not meet the point budget.
	ErrTooManyPoints = errors.New("too many points after reduction")
	// ErrNumerical flags NaN or Inf values in input geometry or a computed field. Fatal.
	ErrNumerical = errors.New("non-finite value")
	// ErrDegenerateMesh flags vertices whose normal is undefined. Not fatal.
	ErrDegenerateMesh = errors.New("degenerate mesh normals")
	// ErrFileFormat is returned by readers and writers on malformed data.
	ErrFileFormat = errors.New("bad file format")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// TooManyPointsError reports the point count that exceeded the budget.
type TooManyPointsError struct {
	Count int
	Max   int
}

func (e *TooManyPointsError) Error() string {
	return fmt.Sprintf("%d points remain after reduction, limit is %d: increase downsampling or outlier removal aggressiveness", e.Count, e.Max)
}

// Is makes errors.Is(err, ErrTooManyPoints) hold.
func (e *TooManyPointsError) Is(target error) bool { return target == ErrTooManyPoints }

// Kind returns the taxonomy name of err for user facing diagnostics.
// Errors outside the taxonomy are reported as "IOError".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "EmptyInputError"
	case errors.Is(err, ErrEmptyIndex):
		return "EmptyIndexError"
	case errors.Is(err, ErrTooManyPoints):
		return "TooManyPointsError"
	case errors.Is(err, ErrNumerical):
		return "NumericalError"
	case errors.Is(err, ErrDegenerateMesh):
		return "DegenerateMeshError"
	case errors.Is(err, ErrFileFormat):
		return "FileFormatError"
	case errors.Is(err, ErrInvalidConfig):
		return "ConfigError"
	}
	return "IOError"
}
