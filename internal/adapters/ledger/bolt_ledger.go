package ledger

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var replyBucket = []byte("reply_log")

// BoltLedger persists reply records in a bbolt file. It needs no cgo and
// no external service, which suits small containerized deployments.
type BoltLedger struct {
	db          *bolt.DB
	logger      *zap.Logger
	cooldown    time.Duration
	retention   time.Duration
	stopCleanup chan struct{}
}

// NewBoltLedger opens or creates the database file at path. The open
// times out after one second so a stale lock from a dead process fails
// fast instead of hanging startup.
func NewBoltLedger(path string, logger *zap.Logger, cooldown, retention, cleanupFreq time.Duration) (*BoltLedger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(replyBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reply bucket: %w", err)
	}

	l := &BoltLedger{
		db:          db,
		logger:      logger,
		cooldown:    cooldown,
		retention:   retention,
		stopCleanup: make(chan struct{}),
	}
	if retention > 0 {
		go l.cleanupStaleRecords(cleanupFreq)
	}
	return l, nil
}

// MayReply reports whether sender has no recorded reply within the
// cooldown window.
func (l *BoltLedger) MayReply(ctx context.Context, sender string) (bool, error) {
	var allowed bool
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(replyBucket).Get([]byte(sender))
		if raw == nil {
			allowed = true
			return nil
		}
		last, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return fmt.Errorf("corrupt reply record for %s: %w", sender, err)
		}
		allowed = time.Since(last) >= l.cooldown
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// RecordReply upserts the last-reply instant for sender.
func (l *BoltLedger) RecordReply(ctx context.Context, sender string, at time.Time) error {
	value := []byte(at.UTC().Format(time.RFC3339Nano))
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(replyBucket).Put([]byte(sender), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write reply record: %w", err)
	}

	l.logger.Debug("Recorded reply",
		zap.String("sender", sender),
		zap.Time("at", at))
	return nil
}

// Close stops the cleanup sweep and closes the database file.
func (l *BoltLedger) Close() error {
	close(l.stopCleanup)
	return l.db.Close()
}

func (l *BoltLedger) cleanupStaleRecords(frequency time.Duration) {
	ticker := time.NewTicker(frequency)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := l.removeStale(time.Now().Add(-l.retention))
			if err != nil {
				l.logger.Error("Failed to clean up stale reply records", zap.Error(err))
				continue
			}
			if removed > 0 {
				l.logger.Debug("Cleaned up stale reply records",
					zap.Int("removed", removed))
			}
		case <-l.stopCleanup:
			return
		}
	}
}

// removeStale drops every record older than horizon. Unparseable values
// are dropped too; a record that cannot be read can never satisfy a
// cooldown check.
func (l *BoltLedger) removeStale(horizon time.Time) (int, error) {
	removed := 0
	err := l.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(replyBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			last, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil || last.Before(horizon) {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}
