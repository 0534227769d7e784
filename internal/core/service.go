package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Responder drives one polling cycle against the mailbox: list the unseen
// messages, decide each one through the filter and the ledger, send the
// replies that survive both, and record each send.
type Responder struct {
	inbox    InboxReader
	sender   MessageSender
	ledger   ReplyLedger
	filter   *Filter
	composer *Composer
	logger   *zap.Logger

	// Clock supplies the instants recorded in the ledger. Overridden in
	// tests.
	Clock func() time.Time
}

// NewResponder creates a responder wired to the given ports.
func NewResponder(
	inbox InboxReader,
	sender MessageSender,
	ledger ReplyLedger,
	filter *Filter,
	composer *Composer,
	logger *zap.Logger,
) *Responder {
	return &Responder{
		inbox:    inbox,
		sender:   sender,
		ledger:   ledger,
		filter:   filter,
		composer: composer,
		logger:   logger,
		Clock:    time.Now,
	}
}

// CycleStats summarizes one completed cycle.
type CycleStats struct {
	Listed  int
	Replied int
	Skipped int
	Failed  int
}

// RunCycle performs one full pass over the mailbox: connect, list unseen,
// process every listed message, disconnect. Per-message failures are
// logged and skipped so one bad message cannot starve the rest; only
// failures that invalidate the whole pass (connect, list) are returned.
func (r *Responder) RunCycle(ctx context.Context) error {
	start := r.Clock()

	session, err := r.inbox.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to open inbox session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.logger.Warn("Failed to close inbox session", zap.Error(cerr))
		}
	}()

	ids, err := session.ListUnseen(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unseen messages: %w", err)
	}
	if len(ids) == 0 {
		r.logger.Debug("No unseen messages")
		return nil
	}

	stats := CycleStats{Listed: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle interrupted with %d messages pending: %w",
				stats.Listed-stats.Replied-stats.Skipped-stats.Failed, err)
		}
		r.processMessage(ctx, session, id, &stats)
	}

	r.logger.Info("Cycle complete",
		zap.Int("listed", stats.Listed),
		zap.Int("replied", stats.Replied),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", r.Clock().Sub(start)))
	return nil
}

// processMessage runs the fetch, decide, reply, record sequence for one
// message identifier. All failures are contained here.
func (r *Responder) processMessage(ctx context.Context, session InboxSession, id MessageID, stats *CycleStats) {
	msg, err := session.Fetch(ctx, id)
	if err != nil {
		stats.Failed++
		r.logger.Error("Failed to fetch message, skipping",
			zap.String("id", string(id)),
			zap.Error(err))
		return
	}

	if reason := r.filter.RejectReason(msg); reason != "" {
		stats.Skipped++
		r.logger.Debug("Message rejected by filter",
			zap.String("id", string(id)),
			zap.String("sender", msg.Sender),
			zap.String("reason", reason))
		r.markHandled(ctx, session, id)
		return
	}

	allowed, err := r.ledger.MayReply(ctx, msg.Sender)
	if err != nil {
		// Fail closed: an unreadable ledger must never turn into a reply.
		stats.Failed++
		r.logger.Error("Ledger unavailable, not replying",
			zap.String("sender", msg.Sender),
			zap.Error(err))
		return
	}
	if !allowed {
		stats.Skipped++
		r.logger.Info("Sender within cooldown, skipping",
			zap.String("sender", msg.Sender))
		r.markHandled(ctx, session, id)
		return
	}

	reply := r.composer.Compose(msg.Sender, msg.MessageID)
	if err := r.sender.Send(ctx, reply); err != nil {
		// No ledger update on failure; the sender stays eligible.
		stats.Failed++
		r.logger.Error("Failed to send reply",
			zap.String("sender", msg.Sender),
			zap.Error(err))
		return
	}

	sentAt := r.Clock()
	if err := r.ledger.RecordReply(ctx, msg.Sender, sentAt); err != nil {
		// The reply already left; surface the record gap loudly but still
		// retire the message so it is not answered a second time.
		stats.Failed++
		r.logger.Error("Reply sent but ledger update failed",
			zap.String("sender", msg.Sender),
			zap.Time("sent_at", sentAt),
			zap.Error(err))
		r.markHandled(ctx, session, id)
		return
	}

	stats.Replied++
	r.logger.Info("Sent automatic reply",
		zap.String("sender", msg.Sender),
		zap.Bool("threaded", reply.InReplyTo != ""))
	r.markHandled(ctx, session, id)
}

// markHandled retires a message the responder is done with. Failures are
// only logged; the worst outcome is seeing the message again next cycle,
// where the ledger keeps a second reply from going out.
func (r *Responder) markHandled(ctx context.Context, session InboxSession, id MessageID) {
	if err := session.MarkSeen(ctx, id); err != nil {
		r.logger.Warn("Failed to mark message seen",
			zap.String("id", string(id)),
			zap.Error(err))
	}
}
