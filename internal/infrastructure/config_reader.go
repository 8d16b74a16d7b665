package infrastructure

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ikneed/internal/domain"
)

// DefaultConfigPath is read when -config is not given. Its absence is not an
// error.
const DefaultConfigPath = "config.yaml"

// EnvPrefix prefixes every environment override, e.g. IKNEED_S.
const EnvPrefix = "IKNEED_"

type YAMLConfigReader struct {
	logger *zap.Logger
	lookup func(string) (string, bool)
}

func NewYAMLConfigReader(logger *zap.Logger) *YAMLConfigReader {
	return &YAMLConfigReader{logger: logger, lookup: os.LookupEnv}
}

// ReadConfig builds the configuration from, in increasing precedence:
// defaults, the YAML file, the .env file and environment, and args.
func (r *YAMLConfigReader) ReadConfig(args []string) (*domain.Config, error) {
	config := DefaultConfig()

	fset := flag.NewFlagSet("ikneed", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	configPath := fset.String("config", DefaultConfigPath, "Path to config file")
	envPath := fset.String("env", ".env", "Path to .env file")
	overrides := r.defineFlags(fset)
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	explicit := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := r.readYAML(*configPath, explicit["config"], config); err != nil {
		return nil, err
	}
	if err := r.applyEnv(*envPath, config); err != nil {
		return nil, err
	}

	// Применяем аргументы командной строки
	overrides(config, explicit)

	r.setDefaults(config)
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (r *YAMLConfigReader) readYAML(path string, required bool, config *domain.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			r.logger.Debug("No config file, using defaults", zap.String("path", path))
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnv overlays IKNEED_* variables. Values from the .env file are used
// only where the process environment does not set the variable.
func (r *YAMLConfigReader) applyEnv(envPath string, config *domain.Config) error {
	dotenv, err := godotenv.Read(envPath)
	if err != nil {
		r.logger.Debug("No .env file loaded", zap.String("path", envPath), zap.Error(err))
		dotenv = map[string]string{}
	}
	get := func(key string) (string, bool) {
		if v, ok := r.lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	p := &config.Parameters
	if v, ok := get("S"); ok {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sS: %v", EnvPrefix, err))
		} else {
			p.S = s
		}
	}
	if v, ok := get("ONLINE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sONLINE: %v", EnvPrefix, err))
		} else {
			p.Online = b
		}
	}
	str("CURVE", &p.Curve)
	str("DIRECTION", &p.Direction)
	str("INTERP_METHOD", &p.InterpMethod)
	num("POLYNOMIAL_DEGREE", &p.PolynomialDegree)
	str("X_FILE", &config.XFile)
	str("Y_FILE", &config.YFile)
	num("CHUNK_SIZE", &config.ChunkSize)
	num("WORKERS", &config.Workers)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FILE", &config.LogFile)
	str("OUTPUT_TSV", &config.OutputTSV)
	str("OUTPUT_PNG", &config.OutputPNG)
	str("OUTPUT_NORMALIZED_PNG", &config.NormPNG)
	str("ADDR", &config.Addr)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// defineFlags registers the overridable settings and returns a function that
// copies the explicitly set ones into the config.
func (r *YAMLConfigReader) defineFlags(fset *flag.FlagSet) func(*domain.Config, map[string]bool) {
	s := fset.Float64("S", 0, "Sensitivity")
	curve := fset.String("curve", "", "concave or convex")
	direction := fset.String("direction", "", "increasing or decreasing")
	online := fset.Bool("online", false, "Online knee detection")
	interpMethod := fset.String("interp-method", "", "interp1d or polynomial")
	degree := fset.Int("polynomial-degree", 0, "Polynomial degree")
	xFile := fset.String("x", "", "File with x values")
	yFile := fset.String("y", "", "File with y values")
	chunk := fset.Int("chunk-size", 0, "Points per online append")
	allKnees := fset.Bool("all-knees", false, "Show all knees/elbows")
	workers := fset.Int("workers", 0, "Number of workers")
	logLevel := fset.String("log-level", "", "Log level")
	logFile := fset.String("log-file", "", "Log file")
	outTSV := fset.String("tsv", "", "Output TSV file")
	outPNG := fset.String("png", "", "Output PNG file")
	normPNG := fset.String("norm-png", "", "Output PNG of the normalized and difference curves")
	addr := fset.String("addr", "", "HTTP listen address")

	return func(config *domain.Config, set map[string]bool) {
		p := &config.Parameters
		if set["S"] {
			p.S = *s
		}
		if set["curve"] {
			p.Curve = *curve
		}
		if set["direction"] {
			p.Direction = *direction
		}
		if set["online"] {
			p.Online = *online
		}
		if set["interp-method"] {
			p.InterpMethod = *interpMethod
		}
		if set["polynomial-degree"] {
			p.PolynomialDegree = *degree
		}
		if set["x"] {
			config.XFile = *xFile
		}
		if set["y"] {
			config.YFile = *yFile
		}
		if set["chunk-size"] {
			config.ChunkSize = *chunk
		}
		if set["all-knees"] {
			config.ShowAllKnees = *allKnees
		}
		if set["workers"] {
			config.Workers = *workers
		}
		if set["log-level"] {
			config.LogLevel = *logLevel
		}
		if set["log-file"] {
			config.LogFile = *logFile
		}
		if set["tsv"] {
			config.OutputTSV = *outTSV
		}
		if set["png"] {
			config.OutputPNG = *outPNG
		}
		if set["norm-png"] {
			config.NormPNG = *normPNG
		}
		if set["addr"] {
			config.Addr = *addr
		}
	}
}

// DefaultConfig returns the configuration used before any file is read.
func DefaultConfig() *domain.Config {
	return &domain.Config{
		Parameters: domain.DefaultParameters(),
		LogLevel:   "info",
		OutputTSV:  DownloadName,
		OutputPNG:  "knee.png",
		Addr:       ":8501",
		Decimals:   -1,
	}
}

func (r *YAMLConfigReader) setDefaults(config *domain.Config) {
	if config.Workers == 0 {
		config.Workers = max(1, runtime.NumCPU()-1)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
}

func validateConfig(config *domain.Config) error {
	sets := append([]domain.Parameters{config.Parameters}, config.Sweep...)
	for _, p := range sets {
		opts, err := p.Options()
		if err == nil {
			err = opts.Validate()
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, p, err)
		}
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("%w: chunk_size must be >= 0", domain.ErrInvalidConfig)
	}
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", domain.ErrInvalidConfig, config.LogLevel)
	}
	return nil
}
