package utils

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestHeaderValue(t *testing.T) {
	ts := NewTextSanitizer(zap.NewNop())

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain value untouched", "Out of office", "Out of office"},
		{"folded header flattened", "a long\r\n subject line", "a long subject line"},
		{"bare linefeed removed", "first\nsecond", "first second"},
		{"bare carriage return removed", "first\rsecond", "first second"},
		{"injection attempt collapsed", "hi\r\nBcc: victim@example.com", "hi Bcc: victim@example.com"},
		{"surrounding space trimmed", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ts.HeaderValue(tt.value); got != tt.want {
				t.Errorf("HeaderValue(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	ts := NewTextSanitizer(zap.NewNop())

	valid := "héllo wörld"
	if got := ts.SanitizeUTF8(valid); got != valid {
		t.Errorf("SanitizeUTF8 altered valid input: %q", got)
	}

	invalid := "ok\xff\xfebad"
	got := ts.SanitizeUTF8(invalid)
	if !strings.Contains(got, "ok") || !strings.Contains(got, "bad") {
		t.Errorf("SanitizeUTF8(%q) = %q, lost valid runes", invalid, got)
	}
	if strings.ContainsRune(got, '�') {
		t.Errorf("SanitizeUTF8(%q) = %q, kept replacement rune", invalid, got)
	}
}

func TestTruncate(t *testing.T) {
	ts := NewTextSanitizer(zap.NewNop())

	if got := ts.Truncate("short", 100); got != "short" {
		t.Errorf("Truncate left = %q, want unchanged", got)
	}
	if got := ts.Truncate("abcdefgh", 4); got != "abcd..." {
		t.Errorf("Truncate = %q, want abcd...", got)
	}

	// A multi-byte rune straddling the cut must be dropped whole.
	got := ts.Truncate("aé", 2)
	if !strings.HasPrefix(got, "a") || strings.Contains(strings.TrimSuffix(got, "..."), "\xc3") {
		t.Errorf("Truncate split a rune: %q", got)
	}
}

func TestCleanHeader(t *testing.T) {
	ts := NewTextSanitizer(zap.NewNop())

	got := ts.CleanHeader("  subject\r\n with folding  ", 0)
	if got != "subject with folding" {
		t.Errorf("CleanHeader = %q", got)
	}
}
