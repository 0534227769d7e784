package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/factory"
	"github.com/mikey/imap-autoresponder/internal/logging"
	"github.com/mikey/imap-autoresponder/internal/loop"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text sanitizer
	if err := container.Provide(utils.NewTextSanitizer); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLedgerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewInboxFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSenderFactory); err != nil {
		return nil, err
	}

	// Register reply ledger
	if err := container.Provide(func(f *factory.LedgerFactory) (core.ReplyLedger, error) {
		return f.CreateReplyLedger()
	}); err != nil {
		return nil, err
	}

	// Register inbox reader
	if err := container.Provide(func(f *factory.InboxFactory) (core.InboxReader, error) {
		return f.CreateInboxReader()
	}); err != nil {
		return nil, err
	}

	// Register message sender
	if err := container.Provide(func(f *factory.SenderFactory) (core.MessageSender, error) {
		return f.CreateMessageSender()
	}); err != nil {
		return nil, err
	}

	// Register message filter
	if err := container.Provide(func(cfg *config.Config) *core.Filter {
		fc := cfg.GetFilter()
		return core.NewFilter(cfg.GetAccount().Address, fc.Keywords, fc.ExemptDomains)
	}); err != nil {
		return nil, err
	}

	// Register reply composer
	if err := container.Provide(func(cfg *config.Config) *core.Composer {
		reply := cfg.GetReply()
		return core.NewComposer(reply.Subject, reply.Body)
	}); err != nil {
		return nil, err
	}

	// Register responder service
	if err := container.Provide(core.NewResponder); err != nil {
		return nil, err
	}

	// Register poll loop
	if err := container.Provide(func(responder *core.Responder, cfg *config.Config, logger *zap.Logger) (*loop.Runner, error) {
		poll, err := cfg.GetPoll()
		if err != nil {
			return nil, err
		}
		return loop.NewRunner(responder, poll.Interval, poll.CycleTimeout, logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
