package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/adapters/sender"
	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// SenderFactory creates message senders based on configuration
type SenderFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	sanitizer *utils.TextSanitizer
}

// NewSenderFactory creates a new sender factory
func NewSenderFactory(cfg *config.Config, logger *zap.Logger, sanitizer *utils.TextSanitizer) *SenderFactory {
	return &SenderFactory{
		cfg:       cfg,
		logger:    logger,
		sanitizer: sanitizer,
	}
}

// CreateMessageSender creates the SMTP submission client
func (f *SenderFactory) CreateMessageSender() (core.MessageSender, error) {
	sc, err := f.cfg.GetSMTP()
	if err != nil {
		return nil, err
	}

	return sender.NewClient(sender.Options{
		Host:        sc.Host,
		Port:        sc.Port,
		Username:    sc.Username,
		Password:    sc.Password,
		From:        f.cfg.GetAccount().Address,
		HelloDomain: sc.HelloDomain,
		UseTLS:      sc.UseTLS,
		IOTimeout:   sc.IOTimeout,
	}, f.logger, f.sanitizer), nil
}
