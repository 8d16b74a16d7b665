package infrastructure

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ikneed/internal/domain"
)

// TextSeriesParser parses comma- or newline-separated numbers.
type TextSeriesParser struct{}

func NewTextSeriesParser() *TextSeriesParser {
	return &TextSeriesParser{}
}

func (TextSeriesParser) ParseSeries(text string) ([]float64, error) {
	return ParseSeries(text)
}

// ParseSeries splits text on commas and newlines and parses every field as a
// float. Blank fields are skipped; anything else that is not a number fails
// the whole parse.
func ParseSeries(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	values := make([]float64, 0, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d %q", domain.ErrParse, i+1, field)
		}
		values = append(values, v)
	}
	return values, nil
}

// FormatSeries joins values with commas, the inverse of ParseSeries.
func FormatSeries(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

type TXTSeriesReader struct {
	logger *zap.Logger
}

func NewTXTSeriesReader(logger *zap.Logger) *TXTSeriesReader {
	return &TXTSeriesReader{logger: logger}
}

// ReadSeries returns the file contents along with the parsed values.
func (r *TXTSeriesReader) ReadSeries(filename string) (string, []float64, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, err
	}

	text := string(data)
	values, err := ParseSeries(text)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", filename, err)
	}

	r.logger.Debug("Series read",
		zap.String("file", filename),
		zap.Int("values", len(values)))
	return text, values, nil
}
