package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/adapters/ledger"
	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
)

// LedgerFactory creates reply ledgers based on configuration
type LedgerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLedgerFactory creates a new ledger factory
func NewLedgerFactory(cfg *config.Config, logger *zap.Logger) *LedgerFactory {
	return &LedgerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReplyLedger creates a reply ledger based on the configuration
func (f *LedgerFactory) CreateReplyLedger() (core.ReplyLedger, error) {
	lc, err := f.cfg.GetLedger()
	if err != nil {
		return nil, err
	}

	switch lc.Type {
	case "memory":
		f.logger.Warn("Using in-memory ledger; cooldown state will not survive restarts")
		return ledger.NewMemoryLedger(f.logger, lc.Cooldown, lc.Retention, lc.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(lc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return ledger.NewSQLiteLedger(lc.SQLitePath, f.logger, lc.Cooldown, lc.Retention, lc.CleanupFrequency)
	case "bolt":
		if err := os.MkdirAll(filepath.Dir(lc.BoltPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bolt directory: %w", err)
		}
		return ledger.NewBoltLedger(lc.BoltPath, f.logger, lc.Cooldown, lc.Retention, lc.CleanupFrequency)
	case "mysql":
		return ledger.NewMySQLLedger(lc.MySQLDSN, f.logger, lc.Cooldown, lc.Retention, lc.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", lc.Type)
	}
}
