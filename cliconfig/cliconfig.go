// Package cliconfig resolves the command-line surface (spec.md §6) into a
// validated Options value. Flags win; where a flag was left at its zero
// value, an environment variable overlay grounded in config.LoadEnvVar's
// convention (CALLGRAPH_* env vars, with a "_FILE" suffix fallback for
// values that should not be passed on a command line directly) fills the
// gap.
package cliconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/traceflow/callgraph/schema"
)

const (
	envLogLevel     = `CALLGRAPH_LOG_LEVEL`
	envConcurrency  = `CALLGRAPH_CONCURRENCY`
	envTruncatePath = `CALLGRAPH_TRUNCATE_PATTERNS`
	envMetricsAddr  = `CALLGRAPH_METRICS_ADDR`

	DefaultFormat = "dot"
	DefaultLogLvl = "ERROR"

	// MaxConcurrency is the spec §6 upper bound on -C/--concurrency.
	MaxConcurrency = 4096
)

var (
	ErrMissingLogPath     = errors.New("cliconfig: a log path argument is required")
	ErrInvalidConcurrency = errors.New("cliconfig: concurrency must be 0 (auto) or between 1 and 4096")
	ErrInvalidFormat      = errors.New("cliconfig: unsupported output format")
	ErrEmptyEnvFile       = errors.New("cliconfig: environment secret file is empty")
)

// Options is the fully resolved configuration for one scan-and-render run.
type Options struct {
	LogPath          string
	Concurrency      int
	IndexOverrides   map[schema.FieldKind]int
	SessionFields    []schema.FieldKind
	TruncatePatterns string
	Format           string
	Output           string
	MetricsAddr      string
	LogLevel         string
}

// SupportedFormats lists the output formats graphsink knows how to render.
var SupportedFormats = map[string]bool{
	"dot": true,
}

// Validate checks Options for internal consistency, independent of where
// each field's value came from. Concurrency == 0 means "unspecified";
// scan.Resolve is responsible for turning that into an actual thread
// count (logical CPU count, or 1 below the 4 MiB input threshold).
func (o *Options) Validate() error {
	if o.LogPath == "" {
		return ErrMissingLogPath
	}
	if o.Concurrency < 0 || o.Concurrency > MaxConcurrency {
		return ErrInvalidConcurrency
	}
	if !SupportedFormats[o.Format] {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, o.Format)
	}
	return nil
}

// ApplyEnvOverlay fills any field Options left at its zero value from the
// CALLGRAPH_* environment, mirroring config.LoadEnvVar's "try NAME, then
// NAME_FILE" lookup order.
func ApplyEnvOverlay(o *Options) error {
	if o.LogLevel == "" {
		if v, err := loadEnv(envLogLevel); err == nil {
			o.LogLevel = v
		}
	}
	if o.Concurrency == 0 {
		if v, err := loadEnv(envConcurrency); err == nil {
			n, cerr := strconv.Atoi(strings.TrimSpace(v))
			if cerr != nil {
				return fmt.Errorf("cliconfig: %s: %w", envConcurrency, cerr)
			}
			o.Concurrency = n
		}
	}
	if o.TruncatePatterns == "" {
		if v, err := loadEnv(envTruncatePath); err == nil {
			o.TruncatePatterns = v
		}
	}
	if o.MetricsAddr == "" {
		if v, err := loadEnv(envMetricsAddr); err == nil {
			o.MetricsAddr = v
		}
	}
	if o.LogLevel == "" {
		o.LogLevel = DefaultLogLvl
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	return nil
}

var errNoEnvArg = errors.New("cliconfig: no env arg")

func loadEnv(name string) (string, error) {
	if s, ok := os.LookupEnv(name); ok {
		return s, nil
	}
	if fp, ok := os.LookupEnv(name + "_FILE"); ok {
		return loadEnvFile(fp)
	}
	return "", errNoEnvArg
}

func loadEnvFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	s.Scan()
	if err := s.Err(); err != nil {
		return "", err
	}
	line := s.Text()
	if line == "" {
		return "", ErrEmptyEnvFile
	}
	return line, nil
}
