package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateMissingLogPath(t *testing.T) {
	o := Options{Concurrency: 1, Format: "dot"}
	if err := o.Validate(); err != ErrMissingLogPath {
		t.Fatalf("Validate() = %v, want ErrMissingLogPath", err)
	}
}

func TestValidateZeroConcurrencyMeansAuto(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: 0, Format: "dot"}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil (0 means auto-detect)", err)
	}
}

func TestValidateNegativeConcurrencyIsInvalid(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: -1, Format: "dot"}
	if err := o.Validate(); err != ErrInvalidConcurrency {
		t.Fatalf("Validate() = %v, want ErrInvalidConcurrency", err)
	}
}

func TestValidateConcurrencyAboveMaxIsInvalid(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: MaxConcurrency + 1, Format: "dot"}
	if err := o.Validate(); err != ErrInvalidConcurrency {
		t.Fatalf("Validate() = %v, want ErrInvalidConcurrency", err)
	}
}

func TestValidateConcurrencyAtMaxIsValid(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: MaxConcurrency, Format: "dot"}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateUnsupportedFormat(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: 1, Format: "graphml"}
	if err := o.Validate(); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestValidateOK(t *testing.T) {
	o := Options{LogPath: "x.log", Concurrency: 4, Format: "dot"}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestApplyEnvOverlayFillsZeroValues(t *testing.T) {
	os.Setenv(envConcurrency, "8")
	os.Setenv(envTruncatePath, "/etc/callgraph/truncate.conf")
	defer os.Unsetenv(envConcurrency)
	defer os.Unsetenv(envTruncatePath)

	o := Options{LogPath: "x.log"}
	if err := ApplyEnvOverlay(&o); err != nil {
		t.Fatalf("ApplyEnvOverlay: %v", err)
	}
	if o.Concurrency != 8 {
		t.Fatalf("Concurrency = %d, want 8", o.Concurrency)
	}
	if o.TruncatePatterns != "/etc/callgraph/truncate.conf" {
		t.Fatalf("TruncatePatterns = %q", o.TruncatePatterns)
	}
	if o.Format != DefaultFormat {
		t.Fatalf("Format = %q, want default %q", o.Format, DefaultFormat)
	}
	if o.LogLevel != DefaultLogLvl {
		t.Fatalf("LogLevel = %q, want default %q", o.LogLevel, DefaultLogLvl)
	}
}

func TestApplyEnvOverlayDoesNotOverrideExplicitValue(t *testing.T) {
	os.Setenv(envConcurrency, "8")
	defer os.Unsetenv(envConcurrency)

	o := Options{LogPath: "x.log", Concurrency: 2}
	if err := ApplyEnvOverlay(&o); err != nil {
		t.Fatalf("ApplyEnvOverlay: %v", err)
	}
	if o.Concurrency != 2 {
		t.Fatalf("Concurrency = %d, want explicit value 2 preserved", o.Concurrency)
	}
}

func TestLoadEnvFileFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	if err := os.WriteFile(path, []byte("hello\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	os.Setenv(envLogLevel+"_FILE", path)
	defer os.Unsetenv(envLogLevel + "_FILE")

	o := Options{LogPath: "x.log"}
	if err := ApplyEnvOverlay(&o); err != nil {
		t.Fatalf("ApplyEnvOverlay: %v", err)
	}
	if o.LogLevel != "hello" {
		t.Fatalf("LogLevel = %q, want %q", o.LogLevel, "hello")
	}
}
