package kneed

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// zeroTolerance snaps round-off in the difference curve to zero so that
// straight lines do not produce spurious extrema.
const zeroTolerance = 1e-12

// normalize min-max scales a into [0,1]. A constant series maps to zeros.
func normalize(a []float64) (out []float64, lo, hi float64) {
	out = make([]float64, len(a))
	if len(a) == 0 {
		return out, 0, 0
	}
	lo, hi = floats.Min(a), floats.Max(a)
	if hi == lo {
		return out, lo, hi
	}
	copy(out, a)
	floats.AddConst(-lo, out)
	floats.Scale(1/(hi-lo), out)
	return out, lo, hi
}

// denormalize maps values in [0,1] back onto [lo,hi].
func denormalize(a []float64, lo, hi float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	floats.Scale(hi-lo, out)
	floats.AddConst(lo, out)
	return out
}

// interpolateLinear evaluates the piecewise-linear interpolant through
// (x, y) on the same grid.
func interpolateLinear(x, y []float64) ([]float64, error) {
	out := make([]float64, len(y))
	if len(x) < 2 {
		copy(out, y)
		return out, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(x, y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for i, xi := range x {
		out[i] = pl.Predict(xi)
	}
	return out, nil
}

// fitPolynomial least-squares fits a polynomial of the given degree to
// (x, y) in normalized space and returns it evaluated on x, in the original
// y units.
func fitPolynomial(x, y []float64, degree int) ([]float64, error) {
	n := len(x)
	if degree >= n {
		return nil, fmt.Errorf("%w: degree %d needs more than %d points", ErrNumericalFit, degree, n)
	}
	xn, _, _ := normalize(x)
	yn, lo, hi := normalize(y)

	cols := degree + 1
	vander := mat.NewDense(n, cols, nil)
	for i, xi := range xn {
		p := 1.0
		for j := 0; j < cols; j++ {
			vander.Set(i, j, p)
			p *= xi
		}
	}

	var qr mat.QR
	qr.Factorize(vander)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(n, yn)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNumericalFit, err)
	}

	fitted := make([]float64, n)
	for i, xi := range xn {
		v := 0.0
		for j := cols - 1; j >= 0; j-- {
			v = v*xi + coef.AtVec(j)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite fitted value at index %d", ErrNumericalFit, i)
		}
		fitted[i] = v
	}
	return denormalize(fitted, lo, hi), nil
}

// orientation describes how the normalized curve was reflected to look
// concave increasing.
type orientation struct {
	flipX bool // horizontal reflection: adjusted index k is original n-1-k
	flipY bool // vertical reflection: y' = 1 - y
}

func orient(c Curve, d Direction) orientation {
	switch {
	case c == Concave && d == Increasing:
		return orientation{}
	case c == Convex && d == Decreasing:
		return orientation{flipY: true}
	case c == Concave && d == Decreasing:
		return orientation{flipX: true}
	default:
		return orientation{flipX: true, flipY: true}
	}
}

// original maps an index of the adjusted series back to the input index.
func (o orientation) original(k, n int) int {
	if o.flipX {
		return n - 1 - k
	}
	return k
}

// apply reflects the normalized series.
func (o orientation) apply(xn, yn []float64) (xa, ya []float64) {
	n := len(xn)
	xa = make([]float64, n)
	ya = make([]float64, n)
	for k := 0; k < n; k++ {
		i := o.original(k, n)
		xa[k], ya[k] = xn[i], yn[i]
		if o.flipX {
			xa[k] = 1 - xa[k]
		}
		if o.flipY {
			ya[k] = 1 - ya[k]
		}
	}
	return xa, ya
}

func difference(xa, ya []float64) []float64 {
	d := make([]float64, len(xa))
	floats.SubTo(d, ya, xa)
	for i, v := range d {
		if math.Abs(v) < zeroTolerance {
			d[i] = 0
		}
	}
	return d
}

// extrema returns the interior local maxima and minima of d. Plateaus count
// every index on them.
func extrema(d []float64) (maxima, minima []int) {
	for k := 1; k < len(d)-1; k++ {
		if d[k] >= d[k-1] && d[k] >= d[k+1] {
			maxima = append(maxima, k)
		}
		if d[k] <= d[k-1] && d[k] <= d[k+1] {
			minima = append(minima, k)
		}
	}
	return maxima, minima
}

// meanStep is the average absolute spacing of x.
func meanStep(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	steps := make([]float64, len(x)-1)
	for i := range steps {
		steps[i] = math.Abs(x[i+1] - x[i])
	}
	return stat.Mean(steps, nil)
}

func thresholds(d []float64, maxima []int, s, step float64) []float64 {
	t := make([]float64, len(maxima))
	for m, k := range maxima {
		t[m] = d[k] - s*step
	}
	return t
}

// confirm walks the difference curve from its first maximum. Reaching a
// maximum arms its threshold, reaching a minimum resets the threshold to
// zero, and the armed maximum is confirmed as soon as the next value drops
// below the threshold. Confirmed indices are returned in walk order without
// duplicates.
func confirm(d []float64, maxima, minima []int, tmx []float64) []int {
	if len(maxima) == 0 {
		return nil
	}
	var (
		confirmed []int
		seen      = make(map[int]bool)
		threshold float64
		pending   int
		mx, mn    int
	)
	for mn < len(minima) && minima[mn] < maxima[0] {
		mn++
	}
	for k := maxima[0]; k < len(d)-1; k++ {
		if mx < len(maxima) && maxima[mx] == k {
			threshold = tmx[mx]
			pending = k
			mx++
		}
		if mn < len(minima) && minima[mn] == k {
			threshold = 0
			mn++
		}
		if d[k+1] < threshold && !seen[pending] {
			seen[pending] = true
			confirmed = append(confirmed, pending)
		}
	}
	return confirmed
}
