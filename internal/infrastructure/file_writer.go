package infrastructure

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"ikneed/internal/domain"
)

type FmtFunc func(float64) string

// DownloadName is the file name offered for exported parameter runs.
const DownloadName = "kneed_parameters.tsv"

var recordHeader = []string{
	"knee", "S", "curve", "direction", "online",
	"interp_method", "polynomial_degree", "x", "y", "run_id", "error",
}

type TSVRecordWriter struct {
	logger    *zap.Logger
	formatter FmtFunc
}

func NewTSVRecordWriter(logger *zap.Logger, formatter FmtFunc) *TSVRecordWriter {
	if formatter == nil {
		formatter = func(v float64) string {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return &TSVRecordWriter{logger: logger, formatter: formatter}
}

// WriteRecords writes a header row and one tab separated row per record. A
// missing knee is an empty cell.
func (w *TSVRecordWriter) WriteRecords(out io.Writer, records []domain.Record) error {
	writer := csv.NewWriter(out)
	writer.Comma = '\t'

	if err := writer.Write(recordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		knee := ""
		if rec.Knee != nil {
			knee = w.formatter(*rec.Knee)
		}
		p := rec.Parameters
		row := []string{
			knee,
			w.formatter(p.S),
			p.Curve,
			p.Direction,
			strconv.FormatBool(p.Online),
			p.InterpMethod,
			strconv.Itoa(p.PolynomialDegree),
			rec.X,
			rec.Y,
			rec.RunID,
			rec.Err,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes the records to filename.
func (w *TSVRecordWriter) WriteFile(filename string, records []domain.Record) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.WriteRecords(file, records); err != nil {
		return err
	}

	w.logger.Debug("Records written",
		zap.String("file", filename),
		zap.Int("records", len(records)))
	return file.Close()
}

// DownloadLink embeds the exported records in an anchor with a base64 data
// URI.
func (w *TSVRecordWriter) DownloadLink(records []domain.Record) (string, error) {
	var buf bytes.Buffer
	if err := w.WriteRecords(&buf, records); err != nil {
		return "", err
	}
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf(`<a href="data:file/csv;base64,%s" download="%s">Download as .tsv</a>`, b64, DownloadName), nil
}
