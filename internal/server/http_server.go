package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ikneed/internal/domain"
	"ikneed/internal/infrastructure"
	"ikneed/pkg/kneed"
)

const maxBodyBytes = 10 << 20

// Exporter writes parameter runs as a table and as an embeddable link.
type Exporter interface {
	domain.RecordWriter
	DownloadLink(records []domain.Record) (string, error)
}

// Server is the HTTP front end. Every request carries its own data and
// parameters; nothing is kept between requests.
type Server struct {
	logger   *zap.Logger
	service  domain.KneeService
	exporter Exporter
	renderer domain.Renderer
	mux      *http.ServeMux
}

func NewServer(logger *zap.Logger, service domain.KneeService, exporter Exporter, renderer domain.Renderer) *Server {
	s := &Server{
		logger:   logger,
		service:  service,
		exporter: exporter,
		renderer: renderer,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/knee", s.handleKnee)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/plot", s.handlePlot)
	s.mux.HandleFunc("/api/defaults", s.handleDefaults)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type kneeResponse struct {
	*domain.Response
	DownloadLink string `json:"download_link"`
}

func (s *Server) handleKnee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.service.Explore(req)
	if err != nil {
		s.fail(w, err)
		return
	}
	link, err := s.exporter.DownloadLink([]domain.Record{resp.Record})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(kneeResponse{Response: resp, DownloadLink: link}); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

// handleExport accepts a single request or a list and answers with the TSV
// table of their runs. Failed runs appear with their error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	reqs, err := decodeRequests(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records := make([]domain.Record, 0, len(reqs))
	for _, req := range reqs {
		resp, err := s.service.Explore(req)
		if err != nil {
			records = append(records, domain.Record{
				Parameters: req.Parameters,
				X:          req.X,
				Y:          req.Y,
				Err:        err.Error(),
			})
			continue
		}
		records = append(records, resp.Record)
	}

	var buf bytes.Buffer
	if err := s.exporter.WriteRecords(&buf, records); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/tab-separated-values")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, infrastructure.DownloadName))
	w.Write(buf.Bytes())
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := s.service.Explore(req)
	if err != nil {
		s.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, resp.Plot()); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	x, y := kneed.DataGenerator{}.ConcaveIncreasing()
	req := domain.DefaultRequest()
	req.X = infrastructure.FormatSeries(x)
	req.Y = infrastructure.FormatSeries(y)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(req)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrParse), errors.Is(err, kneed.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, kneed.ErrNumericalFit):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	} else {
		s.logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

// decodeRequest reads a JSON request; omitted parameters keep their defaults.
func decodeRequest(w http.ResponseWriter, r *http.Request) (domain.Request, error) {
	req := domain.DefaultRequest()
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

func decodeRequests(w http.ResponseWriter, r *http.Request) ([]domain.Request, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		reqs := make([]domain.Request, len(raw))
		for i, item := range raw {
			reqs[i] = domain.DefaultRequest()
			if err := json.Unmarshal(item, &reqs[i]); err != nil {
				return nil, fmt.Errorf("invalid JSON in item %d: %w", i, err)
			}
		}
		return reqs, nil
	}

	req := domain.DefaultRequest()
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return []domain.Request{req}, nil
}
