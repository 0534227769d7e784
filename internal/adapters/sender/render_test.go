package sender

import (
	"bytes"
	"io"
	"net/mail"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

var renderDate = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func testSanitizer() *utils.TextSanitizer {
	return utils.NewTextSanitizer(zap.NewNop())
}

func testReply() *core.OutboundReply {
	return core.NewComposer("Automatic reply", "I am away.\nBack on Monday.").
		Compose("alice@example.com", "orig-id@example.com")
}

func TestRenderMessage(t *testing.T) {
	raw := renderMessage(testReply(), "me@example.com", "<gen-id@example.com>", renderDate, testSanitizer())

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("rendered message does not parse: %v", err)
	}

	wantHeaders := map[string]string{
		"From":                     "me@example.com",
		"To":                       "alice@example.com",
		"Subject":                  "Automatic reply",
		"Message-Id":               "<gen-id@example.com>",
		"In-Reply-To":              "<orig-id@example.com>",
		"References":               "<orig-id@example.com>",
		"Auto-Submitted":           "auto-replied",
		"Precedence":               "bulk",
		"X-Auto-Response-Suppress": "All",
		"Mime-Version":             "1.0",
	}
	for key, want := range wantHeaders {
		if got := msg.Header.Get(key); got != want {
			t.Errorf("header %s = %q, want %q", key, got, want)
		}
	}

	date, err := msg.Header.Date()
	if err != nil {
		t.Fatalf("Date header does not parse: %v", err)
	}
	if !date.Equal(renderDate) {
		t.Errorf("Date = %v, want %v", date, renderDate)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if got := string(body); got != "I am away.\r\nBack on Monday.\r\n" {
		t.Errorf("body = %q, want CRLF line endings", got)
	}
}

func TestRenderMessageWithoutThreading(t *testing.T) {
	reply := core.NewComposer("Automatic reply", "away").Compose("alice@example.com", "")
	raw := renderMessage(reply, "me@example.com", "<gen@example.com>", renderDate, testSanitizer())

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("rendered message does not parse: %v", err)
	}
	if got := msg.Header.Get("In-Reply-To"); got != "" {
		t.Errorf("In-Reply-To = %q, want absent", got)
	}
	if got := msg.Header.Get("References"); got != "" {
		t.Errorf("References = %q, want absent", got)
	}
}

func TestRenderMessageFlattensHostileValues(t *testing.T) {
	reply := testReply()
	reply.Subject = "hello\r\nBcc: victim@example.com"
	reply.InReplyTo = "id\r\nX-Smuggled: yes"
	reply.References = reply.InReplyTo

	raw := renderMessage(reply, "me@example.com", "<gen@example.com>", renderDate, testSanitizer())
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("rendered message does not parse: %v", err)
	}
	if got := msg.Header.Get("Bcc"); got != "" {
		t.Errorf("Bcc = %q, injected header made it into the message", got)
	}
	if got := msg.Header.Get("X-Smuggled"); got != "" {
		t.Errorf("X-Smuggled = %q, injected header made it into the message", got)
	}
}

func TestRenderMessageEncodesUnicodeSubject(t *testing.T) {
	reply := testReply()
	reply.Subject = "Grüße aus dem Urlaub"

	raw := renderMessage(reply, "me@example.com", "<gen@example.com>", renderDate, testSanitizer())
	headerEnd := bytes.Index(raw, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		t.Fatal("no header/body separator")
	}
	header := string(raw[:headerEnd])

	if !strings.Contains(header, "=?utf-8?q?") {
		t.Errorf("unicode subject not encoded-word encoded:\n%s", header)
	}
	if strings.Contains(header, "Grüße") {
		t.Errorf("raw unicode left in header block:\n%s", header)
	}
}

func TestNewMessageID(t *testing.T) {
	first := newMessageID("example.com")
	second := newMessageID("example.com")

	for _, id := range []string{first, second} {
		if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@example.com>") {
			t.Errorf("message id %q not of form <uuid@domain>", id)
		}
	}
	if first == second {
		t.Error("consecutive message ids collide")
	}
}
