package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ikneed/internal/app"
	"ikneed/internal/domain"
	"ikneed/internal/infrastructure"
	"ikneed/internal/server"
	"ikneed/pkg/kneed"
)

func main() {
	// Инициализация логгера
	logger := initLogger("info")
	defer logger.Sync()

	args := os.Args[1:]
	serve := len(args) > 0 && args[0] == "serve"
	if serve {
		args = args[1:]
	}

	// Чтение конфигурации
	configReader := infrastructure.NewYAMLConfigReader(logger)
	config, err := configReader.ReadConfig(args)
	if err != nil {
		logger.Fatal("Failed to read config", zap.Error(err))
	}

	// Обновляем уровень логирования
	if config.LogFile != "" {
		logger = initLogger(config.LogLevel, config.LogFile)
	} else {
		logger = initLogger(config.LogLevel)
	}

	// Инициализация компонентов
	fmtKnee := func(val float64) string {
		return strconv.FormatFloat(val, 'f', config.Decimals, 64)
	}
	writer := infrastructure.NewTSVRecordWriter(logger, fmtKnee)
	renderer := infrastructure.NewChartRenderer(logger, 0, 0)
	explorer := app.NewExplorer(logger, infrastructure.NewTextSeriesParser(), config.Workers)

	if serve {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.NewServer(logger, explorer, writer, renderer)
		if err := srv.Start(ctx, config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
		logger.Info("HTTP server stopped")
		return
	}

	// Чтение входных данных
	req := domain.Request{
		Parameters:   config.Parameters,
		ChunkSize:    config.ChunkSize,
		ShowAllKnees: config.ShowAllKnees,
	}
	x, y := kneed.DataGenerator{}.ConcaveIncreasing()
	req.X = infrastructure.FormatSeries(x)
	req.Y = infrastructure.FormatSeries(y)

	reader := infrastructure.NewTXTSeriesReader(logger)
	if config.XFile != "" {
		if req.X, x, err = reader.ReadSeries(config.XFile); err != nil {
			logger.Fatal("Failed to read x", zap.String("file", config.XFile), zap.Error(err))
		}
	}
	if config.YFile != "" {
		if req.Y, y, err = reader.ReadSeries(config.YFile); err != nil {
			logger.Fatal("Failed to read y", zap.String("file", config.YFile), zap.Error(err))
		}
	}

	logger.Info("Starting knee detection",
		zap.Int("points", len(x)),
		zap.Int("parameter_sets", 1+len(config.Sweep)),
		zap.Int("workers", config.Workers))

	// Обработка данных
	params := append([]domain.Parameters{config.Parameters}, config.Sweep...)
	responses := explorer.Sweep(req, params)

	records := make([]domain.Record, len(responses))
	for i, resp := range responses {
		records[i] = resp.Record
		if resp.Record.Err != "" {
			logger.Error("Parameter set failed",
				zap.Stringer("parameters", resp.Record.Parameters),
				zap.String("error", resp.Record.Err))
			continue
		}
		fields := []zap.Field{zap.Stringer("parameters", resp.Record.Parameters)}
		if resp.Knee != nil {
			fields = append(fields, zap.Float64("knee", *resp.Knee), zap.Float64("knee_y", *resp.KneeY))
		}
		if config.ShowAllKnees {
			fields = append(fields, zap.Float64s("all_knees", resp.AllKnees))
		}
		logger.Info("Knee point found using each of the parameter sets", fields...)
	}

	// Запись результатов
	if config.OutputTSV != "" {
		if err := writer.WriteFile(config.OutputTSV, records); err != nil {
			logger.Error("Failed to write records", zap.String("file", config.OutputTSV), zap.Error(err))
		} else {
			logger.Info("Successfully written records", zap.String("file", config.OutputTSV))
		}
	}

	base := responses[0]
	if config.OutputPNG != "" && base.Record.Err == "" {
		if err := writePNG(config.OutputPNG, func(f *os.File) error {
			return renderer.Render(f, base.Plot())
		}); err != nil {
			logger.Error("Failed to write plot", zap.String("file", config.OutputPNG), zap.Error(err))
		} else {
			logger.Info("Successfully written plot", zap.String("file", config.OutputPNG))
		}
	}

	if config.NormPNG != "" {
		opts, err := config.Parameters.Options()
		if err != nil {
			logger.Fatal("Invalid parameters", zap.Error(err))
		}
		kl, err := kneed.New(x, y, opts)
		if err != nil {
			logger.Error("Failed to locate knee for normalized plot", zap.Error(err))
		} else if err := writePNG(config.NormPNG, func(f *os.File) error {
			return renderer.RenderNormalized(f, kl)
		}); err != nil {
			logger.Error("Failed to write plot", zap.String("file", config.NormPNG), zap.Error(err))
		} else {
			logger.Info("Successfully written plot", zap.String("file", config.NormPNG))
		}
	}

	logger.Info("Knee detection completed")
}

func writePNG(filename string, render func(*os.File) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := render(file); err != nil {
		return err
	}
	return file.Close()
}

// initLogger initializes the logger with the specified level and log file name.
func initLogger(level string, logfileName ...string) *zap.Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	outputPath := []string{"stderr"}
	if len(logfileName) > 0 {
		outputPath = logfileName
	}

	config.OutputPaths = outputPath
	config.ErrorOutputPaths = outputPath
	config.EncoderConfig.TimeKey = "t"
	config.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
