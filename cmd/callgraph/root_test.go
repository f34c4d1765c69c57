package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliFixture = `2024-01-01T00:00:00.000Z 10.0.0.1 "Mozilla/5.0" "GET http://svc.example/a HTTP/1.1"
2024-01-01T00:00:01.000Z 10.0.0.1 "Mozilla/5.0" "GET http://svc.example/b HTTP/1.1"
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	if err := os.WriteFile(path, []byte(cliFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRootCmdRendersDotToOutputFile(t *testing.T) {
	logPath := writeFixture(t)
	outPath := filepath.Join(t.TempDir(), "out.dot")

	cmd := newRootCmd()
	cmd.SetArgs([]string{logPath, "-o", outPath})
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v (stderr: %s)", err, stderr.String())
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if !strings.Contains(string(b), "digraph callgraph") {
		t.Fatalf("expected dot output, got %q", b)
	}
}

func TestRootCmdEmptyInputExitsZeroWithEmptyGraph(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	outPath := filepath.Join(dir, "out.dot")

	cmd := newRootCmd()
	cmd.SetArgs([]string{logPath, "-o", outPath})
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v (stderr: %s)", err, stderr.String())
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if !strings.Contains(string(b), "digraph callgraph") {
		t.Fatalf("expected an empty dot graph, got %q", b)
	}
}

func TestRootCmdRejectsMissingLogFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"/nonexistent/access.log"})
	cmd.SetOut(bytes.NewBuffer(nil))
	cmd.SetErr(bytes.NewBuffer(nil))

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for missing log file")
	}
}

func TestRootCmdRequiresExactlyOneArg(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(bytes.NewBuffer(nil))
	cmd.SetErr(bytes.NewBuffer(nil))

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error when no log path is given")
	}
}

func TestRootCmdRejectsUnsupportedFormat(t *testing.T) {
	logPath := writeFixture(t)
	cmd := newRootCmd()
	cmd.SetArgs([]string{logPath, "-f", "graphml"})
	cmd.SetOut(bytes.NewBuffer(nil))
	cmd.SetErr(bytes.NewBuffer(nil))

	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unsupported output format")
	}
}
