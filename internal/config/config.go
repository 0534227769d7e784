package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/imap-autoresponder/")
	v.AddConfigPath("$HOME/.imap-autoresponder")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("AUTORESPONDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Account defaults; address and password have none and must be set
	v.SetDefault("account.address", "")
	v.SetDefault("account.password", "")

	// IMAP defaults
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.mark_seen", true)
	v.SetDefault("imap.io_timeout", "5m")

	// SMTP defaults
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.tls", true)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.hello_domain", "")
	v.SetDefault("smtp.io_timeout", "30s")

	// Reply defaults
	v.SetDefault("reply.subject", "Automatic reply")
	v.SetDefault("reply.body", "Thank you for your message. I will reply as soon as possible.")

	// Filter defaults
	v.SetDefault("filter.keywords", []string{"noreply"})
	v.SetDefault("filter.exempt_domains", []string{})

	// Ledger defaults
	v.SetDefault("ledger.type", "sqlite")
	v.SetDefault("ledger.cooldown", "24h")
	v.SetDefault("ledger.retention", "0")
	v.SetDefault("ledger.cleanup_frequency", "1h")
	v.SetDefault("ledger.sqlite_path", "/data/autoresponder.db")
	v.SetDefault("ledger.bolt_path", "/data/autoresponder.bolt")
	v.SetDefault("ledger.mysql_dsn", "user:password@tcp(localhost:3306)/autoresponder")

	// Poll defaults
	v.SetDefault("poll.interval", "60s")
	v.SetDefault("poll.cycle_timeout", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
