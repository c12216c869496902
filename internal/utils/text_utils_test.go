package utils

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFoldForMatching(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Free Money", want: "free money"},
		{name: "strips diacritics", in: "Frée Mönéy", want: "free money"},
		{name: "trims whitespace", in: "  casino  ", want: "casino"},
		{name: "plain ascii unchanged", in: "hello there", want: "hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tp.FoldForMatching(tt.in); got != tt.want {
				t.Errorf("FoldForMatching(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Sarah@Example.COM "); got != "sarah@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	long := strings.Repeat("a", 100)
	got := tp.TruncateText(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Errorf("truncated text = %q", got)
	}
	if !strings.Contains(got, "truncated") {
		t.Error("truncation marker missing")
	}

	if got := tp.TruncateText("short", 10); got != "short" {
		t.Errorf("short text modified: %q", got)
	}
	if got := tp.TruncateText(long, 0); got != long {
		t.Error("zero max size should disable truncation")
	}
}
