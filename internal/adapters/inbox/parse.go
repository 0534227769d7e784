package inbox

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// Header values longer than this are clamped before entering the
// snapshot; RFC 5322 callers never produce more on one logical line.
const maxHeaderLen = 998

// parseHeader reduces a raw RFC 5322 header block to the responder's
// message snapshot. Unparseable blocks are an error so the message is
// skipped rather than answered on half-read headers.
func parseHeader(raw []byte, sanitizer *utils.TextSanitizer) (*core.InboundMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if mr == nil {
		return nil, fmt.Errorf("failed to parse message header: %w", err)
	}
	defer mr.Close()

	header := core.Header{}
	fields := mr.Header.Fields()
	for fields.Next() {
		header.Add(fields.Key(), fields.Value())
	}

	msg := &core.InboundMessage{Header: header}

	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.Sender = core.CanonicalAddress(addrs[0].Address)
		msg.DisplayName = sanitizer.SanitizeUTF8(addrs[0].Name)
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = sanitizer.CleanHeader(subject, maxHeaderLen)
	}
	if id, err := mr.Header.MessageID(); err == nil && id != "" {
		msg.MessageID = sanitizer.HeaderValue(id)
	}
	return msg, nil
}

// fillFromEnvelope backfills snapshot fields the header block did not
// yield from the server-parsed envelope.
func fillFromEnvelope(msg *core.InboundMessage, env *imap.Envelope, sanitizer *utils.TextSanitizer) {
	if env == nil {
		return
	}
	if msg.Sender == "" && len(env.From) > 0 {
		msg.Sender = core.CanonicalAddress(env.From[0].Addr())
		msg.DisplayName = sanitizer.SanitizeUTF8(env.From[0].Name)
	}
	if msg.Subject == "" && env.Subject != "" {
		msg.Subject = sanitizer.CleanHeader(env.Subject, maxHeaderLen)
	}
	if msg.MessageID == "" && env.MessageID != "" {
		msg.MessageID = sanitizer.HeaderValue(strings.Trim(env.MessageID, "<>"))
	}
}
