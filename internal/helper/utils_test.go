package helper

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewBuildID(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a, err := NewBuildID(now)
	if err != nil {
		t.Fatalf("NewBuildID: %v", err)
	}
	b, err := NewBuildID(now)
	if err != nil {
		t.Fatalf("NewBuildID: %v", err)
	}
	if !regexp.MustCompile(`^20240102T030405-[0-9a-f]{8}$`).MatchString(a) {
		t.Errorf("unexpected format %q", a)
	}
	if a == b {
		t.Errorf("build IDs collide: %q", a)
	}
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrint(&buf, map[string]int{"chunks": 3})
	if got := buf.String(); got != "{\n  \"chunks\": 3\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 6, "trunc…"},
		{"ünïcödé", 4, "ünï…"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
	if got := Truncate(strings.Repeat("a", 3), 1); got != "a" {
		t.Errorf("n=1: got %q", got)
	}
}
