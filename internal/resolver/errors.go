package resolver

import (
	"errors"
	"fmt"
)

// InvalidInputError reports a coordinate outside the valid lat/lon range.
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("resolver: %s %v out of range", e.Field, e.Value)
}

// MalformedBoundaryError reports a county polygon that cannot be tested.
type MalformedBoundaryError struct {
	FIPS    string
	Polygon int
	Ring    int // 0 is the outer ring, holes follow
	Reason  string
}

func (e *MalformedBoundaryError) Error() string {
	return fmt.Sprintf("resolver: county %s polygon %d ring %d: %s", e.FIPS, e.Polygon, e.Ring, e.Reason)
}

// IsInvalidInput returns true if err (or any error in its chain) is an
// InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// IsMalformedBoundary returns true if err (or any error in its chain) is a
// MalformedBoundaryError.
func IsMalformedBoundary(err error) bool {
	var me *MalformedBoundaryError
	return errors.As(err, &me)
}
