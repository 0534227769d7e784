package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/adapters/inbox"
	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// InboxFactory creates inbox readers based on configuration
type InboxFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	sanitizer *utils.TextSanitizer
}

// NewInboxFactory creates a new inbox factory
func NewInboxFactory(cfg *config.Config, logger *zap.Logger, sanitizer *utils.TextSanitizer) *InboxFactory {
	return &InboxFactory{
		cfg:       cfg,
		logger:    logger,
		sanitizer: sanitizer,
	}
}

// CreateInboxReader creates the IMAP inbox reader
func (f *InboxFactory) CreateInboxReader() (core.InboxReader, error) {
	ic, err := f.cfg.GetIMAP()
	if err != nil {
		return nil, err
	}

	return inbox.NewClient(inbox.Options{
		Host:      ic.Host,
		Port:      ic.Port,
		Username:  ic.Username,
		Password:  ic.Password,
		Mailbox:   ic.Mailbox,
		UseTLS:    ic.UseTLS,
		MarkSeen:  ic.MarkSeen,
		IOTimeout: ic.IOTimeout,
	}, f.logger, f.sanitizer), nil
}
