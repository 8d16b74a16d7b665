package domain

import "io"

// SeriesParser turns user text into numbers.
type SeriesParser interface {
	ParseSeries(text string) ([]float64, error)
}

// SeriesReader reads a numeric series from a file
type SeriesReader interface {
	ReadSeries(filename string) (string, []float64, error)
}

// RecordWriter exports parameter runs
type RecordWriter interface {
	WriteRecords(w io.Writer, records []Record) error
}

// Renderer draws the knee chart
type Renderer interface {
	Render(w io.Writer, plot Plot) error
}

// ConfigReader reads the configuration from a file, the environment and args
type ConfigReader interface {
	ReadConfig(args []string) (*Config, error)
}
