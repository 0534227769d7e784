package config

import (
	"fmt"
	"strings"
	"time"
)

// AccountConfig identifies the monitored mailbox account
type AccountConfig struct {
	Address  string
	Password string
}

// IMAPConfig represents the configuration for reading the mailbox
type IMAPConfig struct {
	Host      string
	Port      int
	UseTLS    bool
	Username  string
	Password  string
	Mailbox   string
	MarkSeen  bool
	IOTimeout time.Duration
}

// SMTPConfig represents the configuration for submitting replies
type SMTPConfig struct {
	Host        string
	Port        int
	UseTLS      bool
	Username    string
	Password    string
	HelloDomain string
	IOTimeout   time.Duration
}

// ReplyConfig holds the fixed reply template
type ReplyConfig struct {
	Subject string
	Body    string
}

// FilterConfig holds the sender rejection rules
type FilterConfig struct {
	Keywords      []string
	ExemptDomains []string
}

// LedgerConfig represents the configuration for the cooldown ledger
type LedgerConfig struct {
	Type       string
	SQLitePath string
	BoltPath   string
	MySQLDSN   string
	Cooldown   time.Duration

	// Retention is how long records are kept before the cleanup sweep
	// drops them. Zero keeps them forever. A positive value below the
	// cooldown is raised to the cooldown so the sweep can never erase a
	// live window.
	Retention        time.Duration
	CleanupFrequency time.Duration
}

// PollConfig represents the polling cadence
type PollConfig struct {
	Interval     time.Duration
	CycleTimeout time.Duration
}

// GetAccount returns the account configuration
func (c *Config) GetAccount() AccountConfig {
	return AccountConfig{
		Address:  c.GetString("account.address"),
		Password: c.GetString("account.password"),
	}
}

// GetIMAP returns the IMAP configuration. Username and password fall
// back to the account credentials when unset.
func (c *Config) GetIMAP() (IMAPConfig, error) {
	timeout, err := c.GetDuration("imap.io_timeout")
	if err != nil {
		return IMAPConfig{}, err
	}

	cfg := IMAPConfig{
		Host:      c.GetString("imap.host"),
		Port:      c.GetInt("imap.port"),
		UseTLS:    c.GetBool("imap.tls"),
		Username:  c.GetString("imap.username"),
		Password:  c.GetString("imap.password"),
		Mailbox:   c.GetString("imap.mailbox"),
		MarkSeen:  c.GetBool("imap.mark_seen"),
		IOTimeout: timeout,
	}
	if cfg.Username == "" {
		cfg.Username = c.GetString("account.address")
	}
	if cfg.Password == "" {
		cfg.Password = c.GetString("account.password")
	}
	return cfg, nil
}

// GetSMTP returns the SMTP configuration. Username and password fall
// back to the account credentials when unset.
func (c *Config) GetSMTP() (SMTPConfig, error) {
	timeout, err := c.GetDuration("smtp.io_timeout")
	if err != nil {
		return SMTPConfig{}, err
	}

	cfg := SMTPConfig{
		Host:        c.GetString("smtp.host"),
		Port:        c.GetInt("smtp.port"),
		UseTLS:      c.GetBool("smtp.tls"),
		Username:    c.GetString("smtp.username"),
		Password:    c.GetString("smtp.password"),
		HelloDomain: c.GetString("smtp.hello_domain"),
		IOTimeout:   timeout,
	}
	if cfg.Username == "" {
		cfg.Username = c.GetString("account.address")
	}
	if cfg.Password == "" {
		cfg.Password = c.GetString("account.password")
	}
	return cfg, nil
}

// GetReply returns the reply template configuration
func (c *Config) GetReply() ReplyConfig {
	return ReplyConfig{
		Subject: c.GetString("reply.subject"),
		Body:    c.GetString("reply.body"),
	}
}

// GetFilter returns the filter configuration
func (c *Config) GetFilter() FilterConfig {
	return FilterConfig{
		Keywords:      c.GetStringSlice("filter.keywords"),
		ExemptDomains: c.GetStringSlice("filter.exempt_domains"),
	}
}

// GetLedger returns the ledger configuration with the retention floor
// applied.
func (c *Config) GetLedger() (LedgerConfig, error) {
	cooldown, err := c.GetDuration("ledger.cooldown")
	if err != nil {
		return LedgerConfig{}, err
	}
	retention, err := c.GetDuration("ledger.retention")
	if err != nil {
		return LedgerConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("ledger.cleanup_frequency")
	if err != nil {
		return LedgerConfig{}, err
	}

	if retention > 0 && retention < cooldown {
		retention = cooldown
	}

	return LedgerConfig{
		Type:             c.GetString("ledger.type"),
		SQLitePath:       c.GetString("ledger.sqlite_path"),
		BoltPath:         c.GetString("ledger.bolt_path"),
		MySQLDSN:         c.GetString("ledger.mysql_dsn"),
		Cooldown:         cooldown,
		Retention:        retention,
		CleanupFrequency: cleanupFreq,
	}, nil
}

// GetPoll returns the polling configuration
func (c *Config) GetPoll() (PollConfig, error) {
	interval, err := c.GetDuration("poll.interval")
	if err != nil {
		return PollConfig{}, err
	}
	cycleTimeout, err := c.GetDuration("poll.cycle_timeout")
	if err != nil {
		return PollConfig{}, err
	}
	return PollConfig{
		Interval:     interval,
		CycleTimeout: cycleTimeout,
	}, nil
}

// Validate reports configuration the daemon must refuse to start with.
func (c *Config) Validate() error {
	var problems []string

	for _, key := range []string{"account.address", "account.password", "imap.host", "smtp.host"} {
		if c.GetString(key) == "" {
			problems = append(problems, fmt.Sprintf("%s is required", key))
		}
	}

	switch c.GetString("ledger.type") {
	case "memory", "sqlite", "mysql", "bolt":
	default:
		problems = append(problems, fmt.Sprintf("unknown ledger.type %q", c.GetString("ledger.type")))
	}

	if ledger, err := c.GetLedger(); err != nil {
		problems = append(problems, err.Error())
	} else if ledger.Cooldown <= 0 {
		problems = append(problems, "ledger.cooldown must be positive")
	}

	if poll, err := c.GetPoll(); err != nil {
		problems = append(problems, err.Error())
	} else {
		if poll.Interval <= 0 {
			problems = append(problems, "poll.interval must be positive")
		}
		if poll.CycleTimeout <= 0 {
			problems = append(problems, "poll.cycle_timeout must be positive")
		}
	}

	if _, err := c.GetIMAP(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.GetSMTP(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
