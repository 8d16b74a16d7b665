package domain

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"ikneed/pkg/kneed"
)

var (
	ErrParse         = errors.New("malformed numeric input")
	ErrInvalidConfig = errors.New("invalid config")
)

// Parameters is one set of KneeLocator tuning parameters as the user enters
// them.
type Parameters struct {
	S                float64 `yaml:"S" json:"S"`
	Curve            string  `yaml:"curve" json:"curve"`
	Direction        string  `yaml:"direction" json:"direction"`
	Online           bool    `yaml:"online" json:"online"`
	InterpMethod     string  `yaml:"interp_method" json:"interp_method"`
	PolynomialDegree int     `yaml:"polynomial_degree" json:"polynomial_degree"`
}

// DefaultParameters mirrors kneed.DefaultOptions.
func DefaultParameters() Parameters {
	opts := kneed.DefaultOptions()
	return Parameters{
		S:                opts.S,
		Curve:            opts.Curve.String(),
		Direction:        opts.Direction.String(),
		Online:           opts.Online,
		InterpMethod:     opts.InterpMethod.String(),
		PolynomialDegree: opts.PolynomialDegree,
	}
}

// UnmarshalYAML fills fields missing from the node with defaults, so sweep
// entries only need to name what they change.
func (p *Parameters) UnmarshalYAML(value *yaml.Node) error {
	type plain Parameters
	tmp := plain(DefaultParameters())
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*p = Parameters(tmp)
	return nil
}

// Options converts the parameters into locator options.
func (p Parameters) Options() (kneed.Options, error) {
	curve, err := kneed.ParseCurve(p.Curve)
	if err != nil {
		return kneed.Options{}, err
	}
	direction, err := kneed.ParseDirection(p.Direction)
	if err != nil {
		return kneed.Options{}, err
	}
	method, err := kneed.ParseInterpMethod(p.InterpMethod)
	if err != nil {
		return kneed.Options{}, err
	}
	return kneed.Options{
		S:                p.S,
		Curve:            curve,
		Direction:        direction,
		Online:           p.Online,
		InterpMethod:     method,
		PolynomialDegree: p.PolynomialDegree,
	}, nil
}

func (p Parameters) String() string {
	return fmt.Sprintf("S=%g curve=%s direction=%s online=%t interp_method=%s polynomial_degree=%d",
		p.S, p.Curve, p.Direction, p.Online, p.InterpMethod, p.PolynomialDegree)
}

// Config is the application configuration.
type Config struct {
	Parameters   Parameters   `yaml:"parameters"`
	Sweep        []Parameters `yaml:"sweep"`
	XFile        string       `yaml:"x_file"`
	YFile        string       `yaml:"y_file"`
	ChunkSize    int          `yaml:"chunk_size"`
	ShowAllKnees bool         `yaml:"show_all_knees"`
	Workers      int          `yaml:"workers"`
	LogLevel     string       `yaml:"log_level"`
	LogFile      string       `yaml:"log_file"`
	OutputTSV    string       `yaml:"output_tsv"`
	OutputPNG    string       `yaml:"output_png"`
	NormPNG      string       `yaml:"output_normalized_png"`
	Addr         string       `yaml:"addr"`
	Decimals     int          `yaml:"decimals"`
}

// Request carries everything one knee computation needs. X and Y hold the
// raw text the user typed.
type Request struct {
	X            string     `json:"x"`
	Y            string     `json:"y"`
	Parameters   Parameters `json:"parameters"`
	ChunkSize    int        `json:"chunk_size"`
	ShowAllKnees bool       `json:"show_all_knees"`
}

// DefaultRequest returns a request with default parameters and no data.
func DefaultRequest() Request {
	return Request{Parameters: DefaultParameters()}
}

// Response is the outcome of a Request. Knee and KneeY are nil when no knee
// was found.
type Response struct {
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
	DsY       []float64 `json:"ds_y"`
	Knee      *float64  `json:"knee"`
	KneeY     *float64  `json:"knee_y"`
	AllKnees  []float64 `json:"all_knees"`
	AllKneesY []float64 `json:"all_knees_y"`
	Record    Record    `json:"record"`

	ShowAllKnees bool `json:"show_all_knees"`
}

// Plot returns what the renderer draws for this response.
func (r *Response) Plot() Plot {
	return Plot{
		X:            r.X,
		Y:            r.Y,
		Knee:         r.Knee,
		KneeY:        r.KneeY,
		AllKnees:     r.AllKnees,
		AllKneesY:    r.AllKneesY,
		ShowAllKnees: r.ShowAllKnees,
	}
}

// Record is one row of the parameter run log.
type Record struct {
	RunID      string     `json:"run_id"`
	Knee       *float64   `json:"knee"`
	Parameters Parameters `json:"parameters"`
	X          string     `json:"x"`
	Y          string     `json:"y"`
	Err        string     `json:"error,omitempty"`
}

// Plot is the data behind the knee chart. Y is the smoothed series when the
// polynomial method was used.
type Plot struct {
	X, Y         []float64
	Knee, KneeY  *float64
	AllKnees     []float64
	AllKneesY    []float64
	ShowAllKnees bool
}
