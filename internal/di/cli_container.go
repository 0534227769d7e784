package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/factory"
	"github.com/mikey/imap-autoresponder/internal/logging"
	"github.com/mikey/imap-autoresponder/internal/utils"
)

// CLIFlags contains all command line flags for the check tool
type CLIFlags struct {
	// Filter flags
	Self     string
	Keywords string
	Exempt   string

	// Ledger flags
	WithLedger bool
	LedgerType string
	SQLitePath string
	BoltPath   string
	MySQLDSN   string
	Cooldown   string

	// Output flags
	ShowReply bool

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Filter flags
	flag.StringVar(&flags.Self, "self", "", "Monitored mailbox address (the responder's own)")
	flag.StringVar(&flags.Keywords, "keywords", "noreply", "Comma-separated sender keywords to reject")
	flag.StringVar(&flags.Exempt, "exempt", "", "Comma-separated sender domains never replied to")

	// Ledger flags
	flag.BoolVar(&flags.WithLedger, "with-ledger", false, "Consult the cooldown ledger for accepted senders")
	flag.StringVar(&flags.LedgerType, "ledger-type", "sqlite", "Ledger backend (memory, sqlite, mysql, bolt)")
	flag.StringVar(&flags.SQLitePath, "sqlite-path", "/data/autoresponder.db", "Path to the SQLite ledger")
	flag.StringVar(&flags.BoltPath, "bolt-path", "/data/autoresponder.bolt", "Path to the bolt ledger")
	flag.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "MySQL DSN for the ledger")
	flag.StringVar(&flags.Cooldown, "cooldown", "24h", "Cooldown window")

	// Output flags
	flag.BoolVar(&flags.ShowReply, "show-reply", false, "Print the reply that would be composed")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input message file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the check tool
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file",
				zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register text sanitizer
	if err := container.Provide(utils.NewTextSanitizer); err != nil {
		return nil, err
	}

	// Register ledger factory; the ledger itself is opened only when the
	// check asks for it
	if err := container.Provide(factory.NewLedgerFactory); err != nil {
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

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("account.address", flags.Self)

	v.Set("filter.keywords", splitList(flags.Keywords))
	v.Set("filter.exempt_domains", splitList(flags.Exempt))

	v.Set("ledger.type", flags.LedgerType)
	v.Set("ledger.sqlite_path", flags.SQLitePath)
	v.Set("ledger.bolt_path", flags.BoltPath)
	if flags.MySQLDSN != "" {
		v.Set("ledger.mysql_dsn", flags.MySQLDSN)
	}
	v.Set("ledger.cooldown", flags.Cooldown)
	// The check never writes, so the sweep stays off
	v.Set("ledger.retention", "0")

	return config.NewFromViper(v)
}

// splitList splits a comma-separated flag value, dropping blank entries.
func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
