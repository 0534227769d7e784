package core

import (
	"net/mail"
	"net/textproto"
	"strings"
)

// MessageID identifies a message within a single inbox session. The core
// treats it as opaque; adapters map it to whatever handle the mailbox
// protocol uses.
type MessageID string

// Header field names the responder reads and writes.
const (
	HeaderAutoSubmitted        = "Auto-Submitted"
	HeaderPrecedence           = "Precedence"
	HeaderAutoResponseSuppress = "X-Auto-Response-Suppress"
)

// Header is a case-insensitive view over a message's header fields,
// stored under canonical MIME keys.
type Header map[string][]string

// Get returns the first value recorded for key, or "" when the field is
// absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	values := h[textproto.CanonicalMIMEHeaderKey(key)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Add appends a value under the canonical form of key.
func (h Header) Add(key, value string) {
	ck := textproto.CanonicalMIMEHeaderKey(key)
	h[ck] = append(h[ck], value)
}

// InboundMessage is a read-only snapshot of a fetched message, reduced to
// the fields the responder decides on.
type InboundMessage struct {
	// Sender is the canonical address from the From header.
	Sender string

	// DisplayName is the From header's display name, "" when absent.
	DisplayName string

	// Subject is the decoded Subject header.
	Subject string

	// MessageID is the inbound Message-ID without angle brackets, used to
	// thread the reply. "" when the message carries none.
	MessageID string

	// Header holds the raw header fields the filter inspects.
	Header Header
}

// OutboundReply is a fully decided reply awaiting delivery. Everything
// except the delivery timestamp and the outgoing Message-ID is fixed
// here; the transport stamps those at send time.
type OutboundReply struct {
	To         string
	Subject    string
	Body       string
	InReplyTo  string
	References string

	// Headers carries the loop-prevention markers every reply must wear.
	Headers Header
}

// CanonicalAddress reduces an address header value to its lowercase
// addr-spec form, the form used as the ledger key. Values that do not
// parse as an address are lowercased and stripped of angle brackets so
// the ledger still gets a stable key.
func CanonicalAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.Trim(raw, "<> "))
}
