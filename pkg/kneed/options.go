package kneed

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is returned when a curve or its options cannot be used
	// to build a locator.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNumericalFit is returned when the polynomial least-squares fit
	// cannot be solved.
	ErrNumericalFit = errors.New("numerical fit failed")
)

// Curve is the shape assumption of the data.
type Curve int

const (
	Concave Curve = iota
	Convex
)

func (c Curve) String() string {
	switch c {
	case Concave:
		return "concave"
	case Convex:
		return "convex"
	default:
		return fmt.Sprintf("Curve(%d)", int(c))
	}
}

// ParseCurve converts "concave" or "convex" into a Curve.
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "concave":
		return Concave, nil
	case "convex":
		return Convex, nil
	}
	return 0, fmt.Errorf("%w: unknown curve %q", ErrInvalidInput, s)
}

// Direction is the orientation assumption of the data.
type Direction int

const (
	Increasing Direction = iota
	Decreasing
)

func (d Direction) String() string {
	switch d {
	case Increasing:
		return "increasing"
	case Decreasing:
		return "decreasing"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "increasing" or "decreasing" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "increasing":
		return Increasing, nil
	case "decreasing":
		return Decreasing, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, s)
}

// InterpMethod selects how y is smoothed before differencing.
type InterpMethod int

const (
	// Interp1D passes y through a piecewise-linear interpolant on the input grid.
	Interp1D InterpMethod = iota
	// Polynomial replaces y by a least-squares polynomial fit.
	Polynomial
)

func (m InterpMethod) String() string {
	switch m {
	case Interp1D:
		return "interp1d"
	case Polynomial:
		return "polynomial"
	default:
		return fmt.Sprintf("InterpMethod(%d)", int(m))
	}
}

// ParseInterpMethod converts "interp1d" or "polynomial" into an InterpMethod.
func ParseInterpMethod(s string) (InterpMethod, error) {
	switch s {
	case "interp1d":
		return Interp1D, nil
	case "polynomial":
		return Polynomial, nil
	}
	return 0, fmt.Errorf("%w: unknown interp_method %q", ErrInvalidInput, s)
}

// DefaultPolynomialDegree is the fit degree set by DefaultOptions.
const DefaultPolynomialDegree = 7

// Options holds the tuning parameters of a KneeLocator.
type Options struct {
	S                float64
	Curve            Curve
	Direction        Direction
	Online           bool
	InterpMethod     InterpMethod
	PolynomialDegree int
}

// DefaultOptions returns S=1, concave, increasing, offline, interp1d, degree 7.
func DefaultOptions() Options {
	return Options{
		S:                1.0,
		Curve:            Concave,
		Direction:        Increasing,
		InterpMethod:     Interp1D,
		PolynomialDegree: DefaultPolynomialDegree,
	}
}

// Validate reports whether the options can build a locator.
func (o Options) Validate() error {
	if math.IsNaN(o.S) || o.S < 0 {
		return fmt.Errorf("%w: sensitivity S must be >= 0, got %v", ErrInvalidInput, o.S)
	}
	if o.Curve != Concave && o.Curve != Convex {
		return fmt.Errorf("%w: %v", ErrInvalidInput, o.Curve)
	}
	if o.Direction != Increasing && o.Direction != Decreasing {
		return fmt.Errorf("%w: %v", ErrInvalidInput, o.Direction)
	}
	switch o.InterpMethod {
	case Interp1D:
	case Polynomial:
		if o.PolynomialDegree < 1 {
			return fmt.Errorf("%w: polynomial_degree must be >= 1, got %d", ErrInvalidInput, o.PolynomialDegree)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidInput, o.InterpMethod)
	}
	return nil
}
