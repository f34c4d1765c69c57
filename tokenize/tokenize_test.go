package tokenize

import (
	"reflect"
	"testing"
)

func fieldStrings(fs []FieldView) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f.Data)
	}
	return out
}

func TestTokeniseStandaloneFields(t *testing.T) {
	line := []byte("10.0.0.1 GET /index.html 200\n")
	fields, next, complete, truncated := Tokenise(line, 0, NallFieldsMax)
	if truncated {
		t.Fatalf("unexpected truncation")
	}
	if !complete {
		t.Fatalf("expected complete line")
	}
	if next != len(line) {
		t.Fatalf("next = %d, want %d", next, len(line))
	}
	want := []string{"10.0.0.1", "GET", "/index.html", "200"}
	if got := fieldStrings(fields); !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
}

func TestTokeniseQuotedField(t *testing.T) {
	line := []byte(`10.0.0.1 "GET /index.html HTTP/1.1" 200` + "\n")
	fields, _, complete, _ := Tokenise(line, 0, NallFieldsMax)
	if !complete {
		t.Fatalf("expected complete line")
	}
	want := []string{"10.0.0.1", "GET /index.html HTTP/1.1", "200"}
	if got := fieldStrings(fields); !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
}

func TestTokeniseEmbeddedNewlineAbortsQuotedField(t *testing.T) {
	line := []byte("a \"b\nc\" d\n")
	fields, next, complete, _ := Tokenise(line, 0, NallFieldsMax)
	if !complete {
		t.Fatalf("expected complete (aborted) line")
	}
	want := []string{"a", "b"}
	if got := fieldStrings(fields); !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	if next != len("a \"b\n") {
		t.Fatalf("next = %d, want %d", next, len("a \"b\n"))
	}
}

func TestTokeniseEndOfBufferWithoutNewline(t *testing.T) {
	line := []byte("a b c")
	fields, next, complete, _ := Tokenise(line, 0, NallFieldsMax)
	if complete {
		t.Fatalf("expected incomplete line at EOF")
	}
	if next != len(line) {
		t.Fatalf("next = %d, want %d", next, len(line))
	}
	if len(fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(fields))
	}
}

func TestTokeniseTruncatesExcessFields(t *testing.T) {
	line := []byte("a b c d\n")
	fields, _, _, truncated := Tokenise(line, 0, 2)
	if !truncated {
		t.Fatalf("expected truncation flag")
	}
	if len(fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fields))
	}
}

func TestSkipToNextLine(t *testing.T) {
	buf := []byte("first\nsecond\nthird")
	if got := SkipToNextLine(buf, 0); got != 6 {
		t.Fatalf("skip from 0 = %d, want 6", got)
	}
	if got := SkipToNextLine(buf, 6); got != 13 {
		t.Fatalf("skip from 6 = %d, want 13", got)
	}
	if got := SkipToNextLine(buf, 13); got != len(buf) {
		t.Fatalf("skip past all newlines = %d, want %d", got, len(buf))
	}
}
