package kneed

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, x, y []float64, opts Options) *KneeLocator {
	t.Helper()
	kl, err := New(x, y, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return kl
}

func withCurve(c Curve, d Direction) Options {
	opts := DefaultOptions()
	opts.Curve = c
	opts.Direction = d
	return opts
}

func TestKneeShapes(t *testing.T) {
	var gen DataGenerator
	tests := []struct {
		name  string
		data  func() ([]float64, []float64)
		opts  Options
		wantX float64
		wantY float64
	}{
		{"concave increasing", gen.ConcaveIncreasing, withCurve(Concave, Increasing), 2, 80},
		{"concave decreasing", gen.ConcaveDecreasing, withCurve(Concave, Decreasing), 7, 80},
		{"convex increasing", gen.ConvexIncreasing, withCurve(Convex, Increasing), 7, 20},
		{"convex decreasing", gen.ConvexDecreasing, withCurve(Convex, Decreasing), 2, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.data()
			kl := mustNew(t, x, y, tt.opts)
			knee, ok := kl.Knee()
			if !ok {
				t.Fatalf("Knee() found nothing, difference curve %v", kl.YDifference())
			}
			if knee != tt.wantX {
				t.Errorf("Knee() = %v, want %v", knee, tt.wantX)
			}
			if ky, _ := kl.KneeY(); ky != tt.wantY {
				t.Errorf("KneeY() = %v, want %v", ky, tt.wantY)
			}
			if got := kl.AllKnees(); !reflect.DeepEqual(got, []float64{tt.wantX}) {
				t.Errorf("AllKnees() = %v, want [%v]", got, tt.wantX)
			}
			if got := kl.AllKneesY(); !reflect.DeepEqual(got, []float64{tt.wantY}) {
				t.Errorf("AllKneesY() = %v, want [%v]", got, tt.wantY)
			}
			if e, _ := kl.Elbow(); e != knee {
				t.Errorf("Elbow() = %v, want %v", e, knee)
			}
		})
	}
}

func TestFigure2(t *testing.T) {
	x, y := DataGenerator{}.Figure2()
	kl := mustNew(t, x, y, DefaultOptions())

	knee, ok := kl.Knee()
	if !ok || math.Abs(knee-2.0/9) > 1e-9 {
		t.Fatalf("Knee() = %v, %v, want 0.222", knee, ok)
	}
	ky, _ := kl.KneeY()
	if math.Abs(ky-1.8966) > 1e-3 {
		t.Errorf("KneeY() = %v, want ~1.8966", ky)
	}
	if nk, _ := kl.NormKnee(); math.Abs(nk-2.0/9) > 1e-9 {
		t.Errorf("NormKnee() = %v, want 0.222", nk)
	}
	if len(kl.AllKnees()) != 1 {
		t.Errorf("AllKnees() = %v, want a single knee", kl.AllKnees())
	}
}

func TestFlatteningAfterRapidRise(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := []float64{1, 2, 3, 4, 5, 10, 15, 18, 19, 19.5, 20}
	kl := mustNew(t, x, y, DefaultOptions())

	all := kl.AllKnees()
	if len(all) != 1 {
		t.Fatalf("AllKnees() = %v, want exactly one knee", all)
	}
	knee, _ := kl.Knee()
	if knee < 5 || knee > 7 {
		t.Errorf("Knee() = %v, want where the rise flattens (5..7)", knee)
	}
	if knee != 7 {
		t.Errorf("Knee() = %v, want 7", knee)
	}
	if ky, _ := kl.KneeY(); ky != 18 {
		t.Errorf("KneeY() = %v, want 18", ky)
	}
}

func TestLinearHasNoKnee(t *testing.T) {
	tests := []struct {
		name string
		f    func(float64) float64
	}{
		{"identity", func(x float64) float64 { return x }},
		{"scaled", func(x float64) float64 { return 2.5*x + 3 }},
		{"falling", func(x float64) float64 { return 7 - 0.3*x }},
	}
	for _, tt := range tests {
		for _, s := range []float64{0.1, 1, 3} {
			x := arange(11)
			y := make([]float64, len(x))
			for i := range x {
				y[i] = tt.f(x[i])
			}
			for _, opts := range []Options{withCurve(Concave, Increasing), withCurve(Convex, Decreasing)} {
				opts.S = s
				kl := mustNew(t, x, y, opts)
				if all := kl.AllKnees(); len(all) != 0 {
					t.Errorf("%s S=%v %v/%v: AllKnees() = %v, want none", tt.name, s, opts.Curve, opts.Direction, all)
				}
				if _, ok := kl.Knee(); ok {
					t.Errorf("%s S=%v: Knee() reported a knee", tt.name, s)
				}
			}
		}
	}
}

func TestSinglePoint(t *testing.T) {
	kl := mustNew(t, []float64{3}, []float64{4}, DefaultOptions())
	if _, ok := kl.Knee(); ok {
		t.Error("Knee() reported a knee for a single point")
	}
	if len(kl.AllKnees()) != 0 || len(kl.AllKneesY()) != 0 {
		t.Errorf("AllKnees() = %v, want none", kl.AllKnees())
	}
	if got := kl.DsY(); !reflect.DeepEqual(got, []float64{4}) {
		t.Errorf("DsY() = %v, want [4]", got)
	}
}

func TestIdempotent(t *testing.T) {
	x, y := DataGenerator{}.Bumpy()
	opts := DefaultOptions()
	opts.S = 0.5
	a := mustNew(t, x, y, opts)
	b := mustNew(t, x, y, opts)

	ka, oka := a.Knee()
	kb, okb := b.Knee()
	if ka != kb || oka != okb {
		t.Errorf("Knee() differs: %v/%v vs %v/%v", ka, oka, kb, okb)
	}
	if !reflect.DeepEqual(a.AllKnees(), b.AllKnees()) {
		t.Errorf("AllKnees() differs: %v vs %v", a.AllKnees(), b.AllKnees())
	}
}

func TestSensitivityIsMonotonic(t *testing.T) {
	var gen DataGenerator
	curves := map[string]func() ([]float64, []float64){
		"bumpy":   gen.Bumpy,
		"concave": gen.ConcaveIncreasing,
		"figure2": gen.Figure2,
		"gaussian": func() ([]float64, []float64) {
			return gen.NoisyGaussian(50, 10, 100, 42)
		},
	}
	sensitivities := []float64{0, 0.25, 0.5, 1, 2, 3, 5, 8}

	for name, data := range curves {
		x, y := data()
		prev := math.MaxInt
		for _, s := range sensitivities {
			opts := DefaultOptions()
			opts.S = s
			n := len(mustNew(t, x, y, opts).AllKnees())
			if n > prev {
				t.Errorf("%s: S=%v confirmed %d knees, more than %d at lower S", name, s, n, prev)
			}
			prev = n
		}
	}
}

func TestSensitivityCutoff(t *testing.T) {
	x, y := DataGenerator{}.ConcaveIncreasing()
	tests := []struct {
		s     float64
		knees int
	}{
		{0, 1}, {1, 1}, {2, 1}, {5, 1}, {6, 0},
	}
	for _, tt := range tests {
		opts := DefaultOptions()
		opts.S = tt.s
		if got := len(mustNew(t, x, y, opts).AllKnees()); got != tt.knees {
			t.Errorf("S=%v: %d knees, want %d", tt.s, got, tt.knees)
		}
	}
}

func TestInterp1DRoundTrip(t *testing.T) {
	x, y := DataGenerator{}.ConvexIncreasing()
	kl := mustNew(t, x, y, DefaultOptions())

	ds := kl.DsY()
	if !reflect.DeepEqual(ds, y) {
		t.Fatalf("DsY() = %v, want input %v", ds, y)
	}
	norm, lo, hi := normalize(ds)
	back := denormalize(norm, lo, hi)
	for i := range y {
		if math.Abs(back[i]-y[i]) > 1e-12 {
			t.Errorf("index %d: round trip %v, want %v", i, back[i], y[i])
		}
	}
}

func TestPolynomial(t *testing.T) {
	x := arange(12)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 3*x[i] + 2
	}
	opts := DefaultOptions()
	opts.InterpMethod = Polynomial
	opts.PolynomialDegree = 1

	kl := mustNew(t, x, y, opts)
	ds := kl.DsY()
	for i := range y {
		if math.Abs(ds[i]-y[i]) > 1e-9 {
			t.Errorf("DsY()[%d] = %v, want %v", i, ds[i], y[i])
		}
	}
	if len(kl.AllKnees()) != 0 {
		t.Errorf("AllKnees() = %v, want none for a line", kl.AllKnees())
	}
}

func TestPolynomialSmoothsCurve(t *testing.T) {
	x, y := DataGenerator{}.Figure2()
	opts := DefaultOptions()
	opts.InterpMethod = Polynomial
	opts.PolynomialDegree = 3

	kl := mustNew(t, x, y, opts)
	ds := kl.DsY()
	if len(ds) != len(y) {
		t.Fatalf("len(DsY()) = %d, want %d", len(ds), len(y))
	}
	if reflect.DeepEqual(ds, y) {
		t.Error("DsY() equals the input; expected a cubic fit")
	}
	// knee_y always reports the input curve.
	if k, ok := kl.Knee(); ok {
		ky, _ := kl.KneeY()
		for i := range x {
			if x[i] == k && y[i] != ky {
				t.Errorf("KneeY() = %v, want input y %v", ky, y[i])
			}
		}
	}
}

func TestPolynomialDegreeTooHigh(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 3, 4, 4.5, 4.7}
	for _, degree := range []int{5, 6, 20} {
		opts := DefaultOptions()
		opts.InterpMethod = Polynomial
		opts.PolynomialDegree = degree
		if _, err := New(x, y, opts); !errors.Is(err, ErrNumericalFit) {
			t.Errorf("degree %d: error = %v, want ErrNumericalFit", degree, err)
		}
	}

	opts := DefaultOptions()
	opts.InterpMethod = Polynomial
	opts.PolynomialDegree = 4
	if _, err := New(x, y, opts); err != nil {
		t.Errorf("degree 4 on 5 points: error = %v, want exact fit", err)
	}
}

func TestInvalidInput(t *testing.T) {
	poly := DefaultOptions()
	poly.InterpMethod = Polynomial
	poly.PolynomialDegree = 0
	negative := DefaultOptions()
	negative.S = -0.5
	badCurve := DefaultOptions()
	badCurve.Curve = Curve(9)

	tests := []struct {
		name string
		x, y []float64
		opts Options
	}{
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}, DefaultOptions()},
		{"empty", nil, nil, DefaultOptions()},
		{"negative S", []float64{1, 2}, []float64{1, 2}, negative},
		{"zero degree", []float64{1, 2}, []float64{1, 2}, poly},
		{"unknown curve", []float64{1, 2}, []float64{1, 2}, badCurve},
		{"x not increasing", []float64{1, 1, 2}, []float64{1, 2, 3}, DefaultOptions()},
		{"NaN", []float64{1, 2}, []float64{math.NaN(), 2}, DefaultOptions()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kl, err := New(tt.x, tt.y, tt.opts)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("New() error = %v, want ErrInvalidInput", err)
			}
			if kl != nil {
				t.Error("New() returned a locator alongside the error")
			}
		})
	}
}

func TestParseEnums(t *testing.T) {
	for _, c := range []Curve{Concave, Convex} {
		if got, err := ParseCurve(c.String()); err != nil || got != c {
			t.Errorf("ParseCurve(%q) = %v, %v", c, got, err)
		}
	}
	for _, d := range []Direction{Increasing, Decreasing} {
		if got, err := ParseDirection(d.String()); err != nil || got != d {
			t.Errorf("ParseDirection(%q) = %v, %v", d, got, err)
		}
	}
	for _, m := range []InterpMethod{Interp1D, Polynomial} {
		if got, err := ParseInterpMethod(m.String()); err != nil || got != m {
			t.Errorf("ParseInterpMethod(%q) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseCurve("wavy"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseCurve(wavy) error = %v", err)
	}
	if _, err := ParseInterpMethod("spline"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseInterpMethod(spline) error = %v", err)
	}
}
