package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextSanitizer cleans decoded header values before they are logged or
// written into an outgoing message.
type TextSanitizer struct {
	logger *zap.Logger
}

// NewTextSanitizer creates a new TextSanitizer
func NewTextSanitizer(logger *zap.Logger) *TextSanitizer {
	return &TextSanitizer{
		logger: logger,
	}
}

// HeaderValue flattens a value onto a single line so it cannot smuggle
// extra header fields into a rendered message. Folding whitespace and
// bare CR or LF become single spaces.
func (ts *TextSanitizer) HeaderValue(value string) string {
	if !strings.ContainsAny(value, "\r\n") {
		return strings.TrimSpace(value)
	}

	replaced := strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(value)
	flattened := strings.Join(strings.Fields(replaced), " ")

	ts.logger.Debug("Header value flattened",
		zap.Int("original_size", len(value)),
		zap.Int("flattened_size", len(flattened)))

	return flattened
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (ts *TextSanitizer) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Drop invalid UTF-8 sequences instead of carrying replacement runes
	// into outgoing headers.
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	ts.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// Truncate safely truncates text to the specified maximum byte size and
// ensures the result is still valid UTF-8. Used to clamp attacker-sized
// subjects before they reach the logs.
func (ts *TextSanitizer) Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated + "..."
}

// CleanHeader flattens, sanitizes and clamps a header value in one
// operation.
func (ts *TextSanitizer) CleanHeader(value string, maxSize int) string {
	return ts.Truncate(ts.SanitizeUTF8(ts.HeaderValue(value)), maxSize)
}
