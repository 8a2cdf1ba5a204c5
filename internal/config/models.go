package config

// IMAPConfig represents the configuration for the mailbox source
type IMAPConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	TLS       bool
	Mailbox   string
	SinceDays int
	Limit     int
}

// FilterConfig represents the configuration for the filter service
type FilterConfig struct {
	Workers            int
	MaxBodySize        int
	WhitelistedDomains []string
}

// ReputationConfig represents the configuration for the domain
// reputation store
type ReputationConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// ScheduleConfig represents the daily run schedule
type ScheduleConfig struct {
	Enabled bool
	Hour    int
	Minute  int
}

// ExportConfig represents decision log export settings
type ExportConfig struct {
	Enabled bool
	Dir     string
}

// GetIMAP returns the mailbox source configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:      c.GetString("imap.host"),
		Port:      c.GetString("imap.port"),
		Username:  c.GetString("imap.username"),
		Password:  c.GetString("imap.password"),
		TLS:       c.GetBool("imap.tls"),
		Mailbox:   c.GetString("imap.mailbox"),
		SinceDays: c.GetInt("imap.since_days"),
		Limit:     c.GetInt("imap.fetch_limit"),
	}
}

// GetFilter returns the filter service configuration
func (c *Config) GetFilter() FilterConfig {
	return FilterConfig{
		Workers:            c.GetInt("filter.workers"),
		MaxBodySize:        c.GetInt("filter.max_body_size"),
		WhitelistedDomains: c.GetStringSlice("filter.whitelisted_domains"),
	}
}

// GetReputation returns the reputation store configuration
func (c *Config) GetReputation() ReputationConfig {
	return ReputationConfig{
		Type:       c.GetString("reputation.type"),
		SQLitePath: c.GetString("reputation.sqlite_path"),
		MySQLDSN:   c.GetString("reputation.mysql_dsn"),
	}
}

// GetSchedule returns the run schedule configuration
func (c *Config) GetSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled: c.GetBool("schedule.enabled"),
		Hour:    c.GetInt("schedule.hour"),
		Minute:  c.GetInt("schedule.minute"),
	}
}

// GetExport returns the decision log export configuration
func (c *Config) GetExport() ExportConfig {
	return ExportConfig{
		Enabled: c.GetBool("export.enabled"),
		Dir:     c.GetString("export.dir"),
	}
}
