package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLLedger persists reply records in MySQL, for deployments where
// several hosts share one cooldown state.
type MySQLLedger struct {
	db          *sql.DB
	logger      *zap.Logger
	cooldown    time.Duration
	retention   time.Duration
	stopCleanup chan struct{}
}

// NewMySQLLedger connects using dsn and prepares the reply_log table.
// ParseTime is forced on so DATETIME columns scan into time.Time
// regardless of what the DSN says.
func NewMySQLLedger(dsn string, logger *zap.Logger, cooldown, retention, cleanupFreq time.Duration) (*MySQLLedger, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reply_log (
			sender VARCHAR(320) PRIMARY KEY,
			last_reply_at DATETIME(6) NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create reply_log table: %w", err)
	}

	l := &MySQLLedger{
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
func (l *MySQLLedger) MayReply(ctx context.Context, sender string) (bool, error) {
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
func (l *MySQLLedger) RecordReply(ctx context.Context, sender string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO reply_log (sender, last_reply_at) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE last_reply_at = VALUES(last_reply_at)
	`, sender, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to write reply record: %w", err)
	}

	l.logger.Debug("Recorded reply",
		zap.String("sender", sender),
		zap.Time("at", at))
	return nil
}

// Close stops the cleanup sweep and closes the database.
func (l *MySQLLedger) Close() error {
	close(l.stopCleanup)
	return l.db.Close()
}

func (l *MySQLLedger) cleanupStaleRecords(frequency time.Duration) {
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

func (l *MySQLLedger) removeStale(horizon time.Time) (int64, error) {
	result, err := l.db.Exec(
		"DELETE FROM reply_log WHERE last_reply_at < ?", horizon.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
