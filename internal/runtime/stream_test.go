package runtime

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestStdinStreamClosesOnEOF(t *testing.T) {
	s := newStdinStream(strings.NewReader("payload"))

	select {
	case <-s.done:
		t.Fatal("done closed before any read")
	default:
	}

	data, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q, want payload", data)
	}
	if s.Bytes() != 7 {
		t.Fatalf("Bytes = %d, want 7", s.Bytes())
	}

	select {
	case <-s.done:
	default:
		t.Fatal("done not closed after EOF")
	}

	// A second EOF must not close done twice.
	if _, err := s.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("err = %v, want EOF", err)
	}
}

func TestNewStdinStreamReusesStream(t *testing.T) {
	s := newStdinStream(strings.NewReader("x"))
	if got := newStdinStream(s); got != s {
		t.Fatal("wrapped an existing stream again")
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &countingWriter{w: &buf}
	io.WriteString(w, "abc")
	io.WriteString(w, "de")
	if w.n != 5 || buf.String() != "abcde" {
		t.Fatalf("n = %d, buf = %q", w.n, buf.String())
	}
}

func TestTailBuffer(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		writes []string
		want   string
	}{
		{"under limit", 10, []string{"abc"}, "abc"},
		{"exact limit", 3, []string{"abc"}, "abc"},
		{"keeps tail", 4, []string{"npm ", "ERR!"}, "ERR!"},
		{"across writes", 5, []string{"aaaa", "bbbb"}, "abbbb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &tailBuffer{max: tt.max}
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write(%q) = %d, %v", w, n, err)
				}
			}
			if got := b.String(); got != tt.want {
				t.Fatalf("String = %q, want %q", got, tt.want)
			}
		})
	}
}
