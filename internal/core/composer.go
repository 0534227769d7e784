package core

// Marker values stamped on every outbound reply so compliant
// auto-responders, including another instance of this one, discard it
// instead of answering back.
const (
	autoSubmittedReply   = "auto-replied"
	precedenceBulk       = "bulk"
	suppressAllResponses = "All"
)

// Composer builds outbound replies from the fixed template configured at
// startup. Compose is deterministic; the transport adds the per-send
// Date and Message-ID.
type Composer struct {
	subject string
	body    string
}

// NewComposer returns a composer for the given subject and body template.
func NewComposer(subject, body string) *Composer {
	return &Composer{subject: subject, body: body}
}

// Compose builds the reply addressed to sender. A non-empty messageID is
// threaded back through In-Reply-To and References; when it is empty both
// fields stay empty rather than carrying an invented identifier.
func (c *Composer) Compose(sender, messageID string) *OutboundReply {
	reply := &OutboundReply{
		To:      sender,
		Subject: c.subject,
		Body:    c.body,
		Headers: Header{},
	}
	reply.Headers.Add(HeaderAutoSubmitted, autoSubmittedReply)
	reply.Headers.Add(HeaderPrecedence, precedenceBulk)
	reply.Headers.Add(HeaderAutoResponseSuppress, suppressAllResponses)

	if messageID != "" {
		reply.InReplyTo = messageID
		reply.References = messageID
	}
	return reply
}
