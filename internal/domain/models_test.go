package domain

import (
	"testing"

	"gopkg.in/yaml.v3"

	"ikneed/pkg/kneed"
)

func TestParametersOptions(t *testing.T) {
	opts, err := DefaultParameters().Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if opts != kneed.DefaultOptions() {
		t.Errorf("Options() = %+v, want %+v", opts, kneed.DefaultOptions())
	}

	p := Parameters{S: 3, Curve: "convex", Direction: "decreasing", InterpMethod: "polynomial", PolynomialDegree: 4}
	opts, err = p.Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if opts.Curve != kneed.Convex || opts.Direction != kneed.Decreasing || opts.InterpMethod != kneed.Polynomial {
		t.Errorf("Options() = %+v", opts)
	}

	for _, bad := range []Parameters{
		{Curve: "flat", Direction: "increasing", InterpMethod: "interp1d"},
		{Curve: "concave", Direction: "sideways", InterpMethod: "interp1d"},
		{Curve: "concave", Direction: "increasing", InterpMethod: "spline"},
	} {
		if _, err := bad.Options(); err == nil {
			t.Errorf("Options(%s) expected error", bad)
		}
	}
}

func TestParametersUnmarshalYAML(t *testing.T) {
	var list []Parameters
	if err := yaml.Unmarshal([]byte("- S: 3\n- curve: convex\n  online: true\n"), &list); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := DefaultParameters()
	want.S = 3
	if list[0] != want {
		t.Errorf("list[0] = %+v, want %+v", list[0], want)
	}
	want = DefaultParameters()
	want.Curve, want.Online = "convex", true
	if list[1] != want {
		t.Errorf("list[1] = %+v, want %+v", list[1], want)
	}
}

func TestResponsePlot(t *testing.T) {
	knee := 2.0
	resp := &Response{X: []float64{1, 2}, Y: []float64{3, 4}, Knee: &knee, ShowAllKnees: true}
	plot := resp.Plot()
	if plot.Knee != &knee || !plot.ShowAllKnees || len(plot.X) != 2 {
		t.Errorf("Plot() = %+v", plot)
	}
}
