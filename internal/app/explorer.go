package app

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ikneed/internal/domain"
	"ikneed/pkg/kneed"
)

// Explorer answers knee requests. It holds no per-request state, so one
// Explorer serves any number of concurrent callers.
type Explorer struct {
	logger  *zap.Logger
	parser  domain.SeriesParser
	workers int
}

func NewExplorer(logger *zap.Logger, parser domain.SeriesParser, workers int) *Explorer {
	return &Explorer{
		logger:  logger,
		parser:  parser,
		workers: max(1, workers),
	}
}

// Explore parses the request's series and locates the knee. The returned
// error wraps domain.ErrParse, kneed.ErrInvalidInput or kneed.ErrNumericalFit.
func (e *Explorer) Explore(req domain.Request) (*domain.Response, error) {
	x, err := e.parser.ParseSeries(req.X)
	if err != nil {
		return nil, fmt.Errorf("x: %w", err)
	}
	y, err := e.parser.ParseSeries(req.Y)
	if err != nil {
		return nil, fmt.Errorf("y: %w", err)
	}
	return e.locate(req, x, y)
}

func (e *Explorer) locate(req domain.Request, x, y []float64) (*domain.Response, error) {
	opts, err := req.Parameters.Options()
	if err != nil {
		return nil, err
	}

	resp := &domain.Response{
		X:            x,
		ShowAllKnees: req.ShowAllKnees,
		Record: domain.Record{
			RunID:      uuid.NewString(),
			Parameters: req.Parameters,
			X:          req.X,
			Y:          req.Y,
		},
	}

	if opts.Online {
		tracker, err := e.track(opts, x, y, req.ChunkSize)
		if err != nil {
			return nil, err
		}
		resp.DsY = tracker.Latest().DsY()
		resp.AllKnees, resp.AllKneesY = tracker.AllKnees(), tracker.AllKneesY()
		resp.Knee, resp.KneeY = optional(tracker.Knee()), optional(tracker.KneeY())
	} else {
		kl, err := kneed.New(x, y, opts)
		if err != nil {
			return nil, err
		}
		resp.DsY = kl.DsY()
		resp.AllKnees, resp.AllKneesY = kl.AllKnees(), kl.AllKneesY()
		resp.Knee, resp.KneeY = optional(kl.Knee()), optional(kl.KneeY())
	}

	// С полиномом рисуем сглаженную кривую
	resp.Y = y
	if opts.InterpMethod == kneed.Polynomial {
		resp.Y = resp.DsY
	}
	resp.Record.Knee = resp.Knee

	e.logger.Debug("Knee located",
		zap.String("run_id", resp.Record.RunID),
		zap.Stringer("parameters", req.Parameters),
		zap.Int("points", len(x)),
		zap.Float64s("all_knees", resp.AllKnees))
	return resp, nil
}

// track feeds the curve to a Tracker in chunks of chunkSize points, or all at
// once when chunkSize is zero.
func (e *Explorer) track(opts kneed.Options, x, y []float64, chunkSize int) (*kneed.Tracker, error) {
	tracker := kneed.NewTracker(opts)
	if len(x) == 0 || len(x) != len(y) {
		// Let the tracker report the bad curve.
		_, err := tracker.Append(x, y)
		return nil, err
	}
	if chunkSize <= 0 || chunkSize > len(x) {
		chunkSize = len(x)
	}
	for start := 0; start < len(x); start += chunkSize {
		end := min(start+chunkSize, len(x))
		if _, err := tracker.Append(x[start:end], y[start:end]); err != nil {
			return nil, err
		}
		if k, ok := tracker.Knee(); ok {
			e.logger.Debug("Online knee",
				zap.Int("points", tracker.Len()),
				zap.Float64("knee", k))
		}
	}
	return tracker, nil
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Sweep evaluates base with every parameter set in params on the worker
// pool. Responses come back in params order; a failed set yields a response
// whose record carries the error and no knee.
func (e *Explorer) Sweep(base domain.Request, params []domain.Parameters) []*domain.Response {
	responses := make([]*domain.Response, len(params))

	x, err := e.parser.ParseSeries(base.X)
	if err != nil {
		err = fmt.Errorf("x: %w", err)
	} else if y, yErr := e.parser.ParseSeries(base.Y); yErr != nil {
		err = fmt.Errorf("y: %w", yErr)
	} else {
		e.run(base, params, x, y, responses)
	}
	if err != nil {
		for i, p := range params {
			responses[i] = e.failed(base, p, err)
		}
	}

	e.logger.Info("Sweep completed",
		zap.Int("parameter_sets", len(params)),
		zap.Int("workers", e.workers))
	return responses
}

func (e *Explorer) run(base domain.Request, params []domain.Parameters, x, y []float64, responses []*domain.Response) {
	if len(params) == 0 {
		return
	}

	var wg sync.WaitGroup
	taskChan := make(chan domain.ProcessingTask, e.workers*2)
	resultChan := make(chan domain.ProcessingResult, len(params))

	// Запускаем воркеры
	for i := 0; i < min(e.workers, len(params)); i++ {
		wg.Add(1)
		go e.worker(i, x, y, taskChan, resultChan, &wg)
	}

	// Отправляем задачи
	go func() {
		for i, p := range params {
			req := base
			req.Parameters = p
			taskChan <- domain.ProcessingTask{Index: i, Request: req}
		}
		close(taskChan)
	}()

	// Собираем результаты
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		if result.Err != nil {
			responses[result.Index] = e.failed(base, params[result.Index], result.Err)
			continue
		}
		responses[result.Index] = result.Response
	}
}

func (e *Explorer) failed(base domain.Request, p domain.Parameters, err error) *domain.Response {
	e.logger.Warn("Parameter set failed",
		zap.Stringer("parameters", p),
		zap.Error(err))
	return &domain.Response{
		ShowAllKnees: base.ShowAllKnees,
		Record: domain.Record{
			RunID:      uuid.NewString(),
			Parameters: p,
			X:          base.X,
			Y:          base.Y,
			Err:        err.Error(),
		},
	}
}

func (e *Explorer) worker(id int, x, y []float64, tasks <-chan domain.ProcessingTask, results chan<- domain.ProcessingResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range tasks {
		e.logger.Debug("Processing parameter set",
			zap.Int("worker", id),
			zap.Int("index", task.Index))

		resp, err := e.locate(task.Request, x, y)
		results <- domain.ProcessingResult{Index: task.Index, Response: resp, Err: err}
	}
}
