// Package gwlog is the pipeline's diagnostic logger: a small level-gated
// logger that serialises every line as RFC 5424 structured syslog, the
// same wire format gravwell's own ingest/log.Logger writes. The CLI logs
// schema-inference warnings through it and hands it to the scan workers,
// which log truncation warnings through it. The graph builder takes no
// logger, and fatal errors are returned to the command rather than logged
// here.
package gwlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

// Level gates which calls actually produce output.
type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.Debug
	case INFO:
		return rfc5424.Info
	case WARN:
		return rfc5424.Warning
	case ERROR:
		return rfc5424.Error
	case FATAL:
		return rfc5424.Crit
	default:
		return rfc5424.Info
	}
}

func (l Level) String() string {
	switch l {
	case OFF:
		return "OFF"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// LevelFromString parses a config/flag value into a Level.
func LevelFromString(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return OFF, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL", "CRITICAL":
		return FATAL, nil
	default:
		return OFF, fmt.Errorf("gwlog: invalid log level %q", s)
	}
}

const defaultCallDepth = 3

// ErrNotOpen is returned by any method call on a closed or never-opened
// Logger.
var ErrNotOpen = errors.New("gwlog: logger is not open")

// Logger serialises diagnostic lines to one or more writers as RFC 5424
// structured syslog.
type Logger struct {
	mu       sync.Mutex
	wtrs     []io.WriteCloser
	lvl      Level
	hostname string
	appname  string
	open     bool
}

// New builds a Logger at INFO level writing to wtr.
func New(wtr io.WriteCloser) *Logger {
	l := &Logger{wtrs: []io.WriteCloser{wtr}, lvl: INFO, open: true}
	l.hostname, _ = os.Hostname()
	if len(os.Args) > 0 {
		l.appname = strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	}
	return l
}

// NewStderr builds a Logger writing to os.Stderr, the default for the CLI.
func NewStderr() *Logger {
	return New(nopCloser{os.Stderr})
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// SetLevel changes the minimum level that is emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	l.lvl = lvl
	l.mu.Unlock()
}

// Close closes every writer the logger owns.
func (l *Logger) Close() (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
	for _, w := range l.wtrs {
		if cerr := w.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

func (l *Logger) output(lvl Level, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return ErrNotOpen
	}
	if lvl < l.lvl || l.lvl == OFF {
		return nil
	}
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: time.Now(),
		Hostname:  l.hostname,
		AppName:   l.appname,
		MessageID: CallLoc(defaultCallDepth),
		Message:   []byte(msg),
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	for _, w := range l.wtrs {
		if _, werr := w.Write(b); werr != nil {
			err = werr
		}
		io.WriteString(w, "\n")
	}
	return err
}

// Debugf logs at DEBUG.
func (l *Logger) Debugf(f string, args ...interface{}) error { return l.output(DEBUG, fmt.Sprintf(f, args...)) }

// Infof logs at INFO.
func (l *Logger) Infof(f string, args ...interface{}) error { return l.output(INFO, fmt.Sprintf(f, args...)) }

// Warnf logs at WARN — used for every §7 non-fatal diagnostic (duplicate
// column matches, truncated over-length requests, truncated field lists).
func (l *Logger) Warnf(f string, args ...interface{}) error { return l.output(WARN, fmt.Sprintf(f, args...)) }

// Errorf logs at ERROR.
func (l *Logger) Errorf(f string, args ...interface{}) error { return l.output(ERROR, fmt.Sprintf(f, args...)) }

// Fatalf logs at FATAL and exits the process with a non-zero status, the
// §7 contract for configuration/IO/schema/regex failures.
func (l *Logger) Fatalf(f string, args ...interface{}) {
	l.output(FATAL, fmt.Sprintf(f, args...))
	os.Exit(1)
}

// CallLoc renders "pkg/file.go:line" for the caller callDepth frames up
// the stack, the source-location tag §7 requires on every error.
func CallLoc(callDepth int) string {
	if _, file, line, ok := runtime.Caller(callDepth); ok {
		dir, base := filepath.Split(file)
		return fmt.Sprintf("%s:%d", filepath.Join(filepath.Base(dir), base), line)
	}
	return ""
}
