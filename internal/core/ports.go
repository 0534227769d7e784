package core

import (
	"context"
	"time"
)

// InboxReader opens authenticated sessions against the monitored mailbox.
type InboxReader interface {
	Connect(ctx context.Context) (InboxSession, error)
}

// InboxSession is one live connection to the mailbox. Sessions are not
// safe for concurrent use; the responder drives one at a time.
type InboxSession interface {
	// ListUnseen returns the identifiers of messages not yet marked seen,
	// oldest first.
	ListUnseen(ctx context.Context) ([]MessageID, error)

	// Fetch retrieves the headers of one listed message. Depending on the
	// mailbox configuration the fetch may mark the message seen on the
	// server.
	Fetch(ctx context.Context, id MessageID) (*InboundMessage, error)

	// MarkSeen flags the message so later cycles stop listing it. Called
	// once the responder has finished with a message; not called for
	// transient failures, which are meant to be retried.
	MarkSeen(ctx context.Context, id MessageID) error

	Close() error
}

// MessageSender delivers outbound replies over an encrypted transport.
type MessageSender interface {
	Send(ctx context.Context, reply *OutboundReply) error
}

// ReplyLedger is the durable record of when each sender was last
// answered, keyed by canonical address. It is what keeps the cooldown
// intact across restarts.
type ReplyLedger interface {
	// MayReply reports whether no reply to sender was recorded within the
	// cooldown window. Storage errors surface to the caller, which must
	// treat them as "do not reply".
	MayReply(ctx context.Context, sender string) (bool, error)

	// RecordReply upserts the last-reply instant for sender. Called only
	// after a confirmed successful send.
	RecordReply(ctx context.Context, sender string, at time.Time) error

	Close() error
}
