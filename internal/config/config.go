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
	v.AddConfigPath("/etc/newsletter-sieve/")
	v.AddConfigPath("$HOME/.newsletter-sieve")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("NEWSLETTER_SIEVE")
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
	// Mailbox defaults
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.since_days", 1)
	v.SetDefault("imap.fetch_limit", 100)

	// Filter defaults
	v.SetDefault("filter.workers", 4)
	v.SetDefault("filter.max_body_size", 65536)
	v.SetDefault("filter.whitelisted_domains", []string{})

	// Reputation store defaults
	v.SetDefault("reputation.type", "memory")
	v.SetDefault("reputation.sqlite_path", "/data/domain_reputation.db")
	v.SetDefault("reputation.mysql_dsn", "user:password@tcp(localhost:3306)/newsletter_sieve")

	// Schedule defaults
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.hour", 20)
	v.SetDefault("schedule.minute", 0)

	// Export defaults
	v.SetDefault("export.enabled", true)
	v.SetDefault("export.dir", ".")

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

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
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
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
