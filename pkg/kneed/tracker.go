package kneed

import (
	"fmt"
	"sort"
)

// Tracker accumulates a growing curve and keeps every knee it has ever
// confirmed. Each Append relocates the knee on the cumulative data; a knee
// once reported stays in AllKnees, and Knee only moves when the new data
// yields a knee of its own.
//
// A Tracker has a single writer. Callers that share one across goroutines
// must synchronize Append themselves.
type Tracker struct {
	opts   Options
	x, y   []float64
	latest *KneeLocator

	confirmed map[float64]float64
	knee      float64
	kneeY     float64
	hasKnee   bool
}

// NewTracker returns an empty Tracker. The options are validated on the
// first Append.
func NewTracker(opts Options) *Tracker {
	opts.Online = true
	return &Tracker{
		opts:      opts,
		confirmed: make(map[float64]float64),
	}
}

// Append extends the curve and relocates the knee. On error the tracker is
// left unchanged.
func (t *Tracker) Append(x, y []float64) (*KneeLocator, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: appended x has %d values, y has %d", ErrInvalidInput, len(x), len(y))
	}
	if len(t.x) > 0 && len(x) > 0 && x[0] <= t.x[len(t.x)-1] {
		return nil, fmt.Errorf("%w: appended x %v does not follow %v", ErrInvalidInput, x[0], t.x[len(t.x)-1])
	}

	cx := append(append([]float64(nil), t.x...), x...)
	cy := append(append([]float64(nil), t.y...), y...)
	kl, err := New(cx, cy, t.opts)
	if err != nil {
		return nil, err
	}

	t.x, t.y, t.latest = cx, cy, kl
	allX, allY := kl.AllKnees(), kl.AllKneesY()
	for i := range allX {
		t.confirmed[allX[i]] = allY[i]
	}
	if k, ok := kl.Knee(); ok {
		t.knee, t.hasKnee = k, true
		t.kneeY, _ = kl.KneeY()
	}
	return kl, nil
}

// Knee returns the most recently reported knee.
func (t *Tracker) Knee() (float64, bool) { return t.knee, t.hasKnee }

// KneeY returns the input y value at Knee.
func (t *Tracker) KneeY() (float64, bool) { return t.kneeY, t.hasKnee }

// AllKnees returns every knee confirmed so far in ascending order.
func (t *Tracker) AllKnees() []float64 {
	out := make([]float64, 0, len(t.confirmed))
	for x := range t.confirmed {
		out = append(out, x)
	}
	sort.Float64s(out)
	return out
}

// AllKneesY returns the y values matching AllKnees.
func (t *Tracker) AllKneesY() []float64 {
	xs := t.AllKnees()
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = t.confirmed[x]
	}
	return out
}

// Latest returns the locator built by the last successful Append, or nil.
func (t *Tracker) Latest() *KneeLocator { return t.latest }

// Len returns the number of points accepted so far.
func (t *Tracker) Len() int { return len(t.x) }
