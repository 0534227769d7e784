package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteLedger persists reply records in a local SQLite database, the
// default backend for single-host deployments.
type SQLiteLedger struct {
	db          *sql.DB
	logger      *zap.Logger
	cooldown    time.Duration
	retention   time.Duration
	stopCleanup chan struct{}
}

// NewSQLiteLedger opens or creates the database at dbPath and prepares
// the reply_log table. A positive retention starts a background sweep
// that deletes records older than that horizon.
func NewSQLiteLedger(dbPath string, logger *zap.Logger, cooldown, retention, cleanupFreq time.Duration) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_log (
			sender TEXT PRIMARY KEY,
			last_reply_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reply_log table: %w", err)
	}

	l := &SQLiteLedger{
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
// cooldown window. The window is measured against the cooldown configured
// now, not the one in force when the record was written.
func (l *SQLiteLedger) MayReply(ctx context.Context, sender string) (bool, error) {
	var last time.Time
	err := l.db.QueryRowContext(ctx,
		"SELECT last_reply_at FROM reply_log WHERE sender = ?",
		sender,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read reply record: %w", err)
	}
	return time.Since(last) >= l.cooldown, nil
}

// RecordReply upserts the last-reply instant for sender.
func (l *SQLiteLedger) RecordReply(ctx context.Context, sender string, at time.Time) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO reply_log (sender, last_reply_at) VALUES (?, ?)",
		sender, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write reply record: %w", err)
	}

	l.logger.Debug("Recorded reply",
		zap.String("sender", sender),
		zap.Time("at", at))
	return nil
}

// Close stops the cleanup sweep and closes the database.
func (l *SQLiteLedger) Close() error {
	close(l.stopCleanup)
	return l.db.Close()
}

func (l *SQLiteLedger) cleanupStaleRecords(frequency time.Duration) {
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
					zap.Int64("removed", removed))
			}
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *SQLiteLedger) removeStale(horizon time.Time) (int64, error) {
	result, err := l.db.Exec(
		"DELETE FROM reply_log WHERE last_reply_at < ?", horizon.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
