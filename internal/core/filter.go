package core

import "strings"

// Rejection reasons reported by Filter.RejectReason.
const (
	RejectNoSender       = "no sender address"
	RejectSelfAddressed  = "self-addressed"
	RejectExemptDomain   = "exempt domain"
	RejectKeyword        = "sender keyword"
	RejectAutoSubmitted  = "auto-submitted"
	RejectBulkPrecedence = "bulk precedence"
)

// Filter decides which inbound messages deserve an automatic reply and
// which are noise or loop risks. It is a pure function over the message
// snapshot; the same message always gets the same verdict.
type Filter struct {
	self     string
	keywords []string
	exempt   []string
}

// NewFilter builds the filter for the monitored address. Keywords are
// matched case-insensitively as substrings of the sender address; exempt
// domains are matched against the sender's domain exactly. Blank entries
// are dropped and an empty list disables the corresponding rule.
func NewFilter(selfAddress string, keywords, exemptDomains []string) *Filter {
	return &Filter{
		self:     CanonicalAddress(selfAddress),
		keywords: lowerTrimmed(keywords),
		exempt:   lowerTrimmed(exemptDomains),
	}
}

func lowerTrimmed(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

// ShouldConsider reports whether msg should proceed to the cooldown
// check.
func (f *Filter) ShouldConsider(msg *InboundMessage) bool {
	return f.RejectReason(msg) == ""
}

// RejectReason returns the first rejection rule msg trips, or "" when the
// message is acceptable. Absent headers never reject; the rules are
// independent, so order only affects which reason is reported.
func (f *Filter) RejectReason(msg *InboundMessage) string {
	if msg == nil || msg.Sender == "" {
		return RejectNoSender
	}

	sender := strings.ToLower(msg.Sender)
	if sender == f.self {
		return RejectSelfAddressed
	}

	if parts := strings.Split(sender, "@"); len(parts) == 2 {
		for _, domain := range f.exempt {
			if parts[1] == domain {
				return RejectExemptDomain
			}
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(sender, kw) {
			return RejectKeyword
		}
	}

	if v := strings.TrimSpace(msg.Header.Get(HeaderAutoSubmitted)); v != "" && !strings.EqualFold(v, "no") {
		return RejectAutoSubmitted
	}

	switch strings.ToLower(strings.TrimSpace(msg.Header.Get(HeaderPrecedence))) {
	case "bulk", "list", "junk":
		return RejectBulkPrecedence
	}

	return ""
}
