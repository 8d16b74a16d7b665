// Package kneed locates knee and elbow points of a sampled curve using the
// normalized difference curve.
package kneed

import (
	"fmt"
	"math"
	"sort"
)

// KneeLocator holds a curve and everything derived from it. All series are
// computed in New and never change afterwards, so a KneeLocator is safe for
// concurrent use.
type KneeLocator struct {
	opts Options
	x, y []float64
	dsY  []float64

	xNormalized []float64
	yNormalized []float64
	yDifference []float64

	orient        orientation
	maximaIndices []int
	minimaIndices []int
	thresholds    []float64

	// knees are indices into the adjusted series, sorted by original x.
	knees   []int
	knee    int
	hasKnee bool
}

// New validates the curve and options and locates the knee. A curve without
// a knee is not an error; see Knee.
func New(x, y []float64, opts Options) (*KneeLocator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := validateCurve(x, y); err != nil {
		return nil, err
	}

	kl := &KneeLocator{
		opts:   opts,
		x:      append([]float64(nil), x...),
		y:      append([]float64(nil), y...),
		orient: orient(opts.Curve, opts.Direction),
	}

	var err error
	switch opts.InterpMethod {
	case Polynomial:
		kl.dsY, err = fitPolynomial(kl.x, kl.y, opts.PolynomialDegree)
	default:
		kl.dsY, err = interpolateLinear(kl.x, kl.y)
	}
	if err != nil {
		return nil, err
	}

	xn, _, _ := normalize(kl.x)
	yn, _, _ := normalize(kl.dsY)
	kl.xNormalized, kl.yNormalized = kl.orient.apply(xn, yn)
	kl.yDifference = difference(kl.xNormalized, kl.yNormalized)

	kl.maximaIndices, kl.minimaIndices = extrema(kl.yDifference)
	kl.thresholds = thresholds(kl.yDifference, kl.maximaIndices, opts.S, meanStep(kl.xNormalized))

	kl.knees = confirm(kl.yDifference, kl.maximaIndices, kl.minimaIndices, kl.thresholds)
	kl.pickKnee()
	return kl, nil
}

func validateCurve(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: x has %d values, y has %d", ErrInvalidInput, len(x), len(y))
	}
	if len(x) < 1 {
		return fmt.Errorf("%w: empty curve", ErrInvalidInput)
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
		if i > 0 && x[i] <= x[i-1] {
			return fmt.Errorf("%w: x must be strictly increasing (index %d)", ErrInvalidInput, i)
		}
	}
	return nil
}

func (kl *KneeLocator) pickKnee() {
	n := len(kl.x)
	sort.Slice(kl.knees, func(a, b int) bool {
		return kl.orient.original(kl.knees[a], n) < kl.orient.original(kl.knees[b], n)
	})
	// knees is sorted by x, so keeping the first maximum breaks ties by smallest x.
	for _, k := range kl.knees {
		if !kl.hasKnee || kl.yDifference[k] > kl.yDifference[kl.knee] {
			kl.knee = k
			kl.hasKnee = true
		}
	}
}

func (kl *KneeLocator) index(k int) int {
	return kl.orient.original(k, len(kl.x))
}

// Knee returns the x value of the most significant knee.
func (kl *KneeLocator) Knee() (float64, bool) {
	if !kl.hasKnee {
		return 0, false
	}
	return kl.x[kl.index(kl.knee)], true
}

// KneeY returns the input y value at the knee.
func (kl *KneeLocator) KneeY() (float64, bool) {
	if !kl.hasKnee {
		return 0, false
	}
	return kl.y[kl.index(kl.knee)], true
}

// NormKnee returns the knee's x in the adjusted normalized space.
func (kl *KneeLocator) NormKnee() (float64, bool) {
	if !kl.hasKnee {
		return 0, false
	}
	return kl.xNormalized[kl.knee], true
}

// NormKneeY returns the knee's y in the adjusted normalized space.
func (kl *KneeLocator) NormKneeY() (float64, bool) {
	if !kl.hasKnee {
		return 0, false
	}
	return kl.yNormalized[kl.knee], true
}

// Elbow is an alias for Knee.
func (kl *KneeLocator) Elbow() (float64, bool) { return kl.Knee() }

// ElbowY is an alias for KneeY.
func (kl *KneeLocator) ElbowY() (float64, bool) { return kl.KneeY() }

// AllKnees returns the x values of every confirmed knee in ascending order.
func (kl *KneeLocator) AllKnees() []float64 {
	out := make([]float64, len(kl.knees))
	for i, k := range kl.knees {
		out[i] = kl.x[kl.index(k)]
	}
	return out
}

// AllKneesY returns the input y values matching AllKnees.
func (kl *KneeLocator) AllKneesY() []float64 {
	out := make([]float64, len(kl.knees))
	for i, k := range kl.knees {
		out[i] = kl.y[kl.index(k)]
	}
	return out
}

// AllNormKnees returns the confirmed knees in the adjusted normalized space,
// ordered like AllKnees.
func (kl *KneeLocator) AllNormKnees() []float64 {
	out := make([]float64, len(kl.knees))
	for i, k := range kl.knees {
		out[i] = kl.xNormalized[k]
	}
	return out
}

// DsY returns the smoothed y series in input units. It equals the input for
// Interp1D and the fitted polynomial for Polynomial.
func (kl *KneeLocator) DsY() []float64 { return clone(kl.dsY) }

func (kl *KneeLocator) X() []float64 { return clone(kl.x) }
func (kl *KneeLocator) Y() []float64 { return clone(kl.y) }

func (kl *KneeLocator) XNormalized() []float64 { return clone(kl.xNormalized) }
func (kl *KneeLocator) YNormalized() []float64 { return clone(kl.yNormalized) }

// XDifference returns the x coordinates of the difference curve.
func (kl *KneeLocator) XDifference() []float64 { return clone(kl.xNormalized) }

// YDifference returns the difference curve.
func (kl *KneeLocator) YDifference() []float64 { return clone(kl.yDifference) }

// MaximaIndices returns the local maxima of the difference curve as indices
// into XDifference.
func (kl *KneeLocator) MaximaIndices() []int { return append([]int(nil), kl.maximaIndices...) }

// MinimaIndices returns the local minima of the difference curve.
func (kl *KneeLocator) MinimaIndices() []int { return append([]int(nil), kl.minimaIndices...) }

// Thresholds returns the confirmation threshold of each local maximum.
func (kl *KneeLocator) Thresholds() []float64 { return clone(kl.thresholds) }

func (kl *KneeLocator) Options() Options { return kl.opts }

func (kl *KneeLocator) Len() int { return len(kl.x) }

func clone(a []float64) []float64 {
	return append([]float64(nil), a...)
}
