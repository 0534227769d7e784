package sender

import (
	"bytes"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// newMessageID returns a globally unique Message-ID under domain,
// angle brackets included.
func newMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// renderMessage assembles the wire form of reply. The delivery instant
// and Message-ID are stamped here, not in the composer, so composing
// stays deterministic. Every header value passes through the sanitizer;
// nothing echoed from the inbound message may break out of its field.
func renderMessage(reply *core.OutboundReply, from, messageID string, date time.Time, sanitizer *utils.TextSanitizer) []byte {
	var buf bytes.Buffer
	writeField := func(key, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
	}

	writeField("Date", date.Format(time.RFC1123Z))
	writeField("From", sanitizer.HeaderValue(from))
	writeField("To", sanitizer.HeaderValue(reply.To))
	writeField("Subject", mime.QEncoding.Encode("utf-8", sanitizer.HeaderValue(reply.Subject)))
	writeField("Message-ID", messageID)
	if reply.InReplyTo != "" {
		writeField("In-Reply-To", "<"+sanitizer.HeaderValue(reply.InReplyTo)+">")
	}
	if reply.References != "" {
		writeField("References", "<"+sanitizer.HeaderValue(reply.References)+">")
	}

	keys := make([]string, 0, len(reply.Headers))
	for key := range reply.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range reply.Headers[key] {
			writeField(key, sanitizer.HeaderValue(value))
		}
	}

	writeField("MIME-Version", "1.0")
	writeField("Content-Type", `text/plain; charset="utf-8"`)
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(reply.Body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\r\n") {
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
