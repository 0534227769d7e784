package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryLedger keeps reply records in process memory. State is lost on
// restart, so it is only suitable for tests and throwaway runs.
type MemoryLedger struct {
	records     map[string]time.Time
	mu          sync.RWMutex
	logger      *zap.Logger
	cooldown    time.Duration
	retention   time.Duration
	stopCleanup chan struct{}
}

// NewMemoryLedger creates an in-memory ledger. A positive retention
// starts a background sweep that drops records older than that horizon.
func NewMemoryLedger(logger *zap.Logger, cooldown, retention, cleanupFreq time.Duration) *MemoryLedger {
	l := &MemoryLedger{
		records:     make(map[string]time.Time),
		logger:      logger,
		cooldown:    cooldown,
		retention:   retention,
		stopCleanup: make(chan struct{}),
	}
	if retention > 0 {
		go l.cleanupStaleRecords(cleanupFreq)
	}
	return l
}

// MayReply reports whether sender has no recorded reply within the
// cooldown window.
func (l *MemoryLedger) MayReply(ctx context.Context, sender string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	last, ok := l.records[sender]
	if !ok {
		return true, nil
	}
	return time.Since(last) >= l.cooldown, nil
}

// RecordReply stores the last-reply instant for sender.
func (l *MemoryLedger) RecordReply(ctx context.Context, sender string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[sender] = at
	return nil
}

// Close stops the cleanup sweep.
func (l *MemoryLedger) Close() error {
	close(l.stopCleanup)
	return nil
}

func (l *MemoryLedger) cleanupStaleRecords(frequency time.Duration) {
	ticker := time.NewTicker(frequency)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := l.removeStale(time.Now().Add(-l.retention)); removed > 0 {
				l.logger.Debug("Cleaned up stale reply records",
					zap.Int("removed", removed))
			}
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *MemoryLedger) removeStale(horizon time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for sender, last := range l.records {
		if last.Before(horizon) {
			delete(l.records, sender)
			removed++
		}
	}
	return removed
}
