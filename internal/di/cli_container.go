package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/newsletter-sieve/internal/config"
	"github.com/mikey/newsletter-sieve/internal/core"
	"github.com/mikey/newsletter-sieve/internal/extractor"
	"github.com/mikey/newsletter-sieve/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	InputFile  string
	ConfigFile string

	// Filter flags
	Workers           int
	MaxBodySize       int
	WhitelistedDomains string

	// Output flags
	ExportPath string
	Verbose    bool
	JSONLog    bool
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.IntVar(&flags.Workers, "workers", 4, "Number of classification workers")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 65536, "Maximum cleaned body size in bytes")
	flag.StringVar(&flags.WhitelistedDomains, "whitelist", "", "Comma-separated list of always-keep sender domains")

	flag.StringVar(&flags.ExportPath, "export", "", "Write the decision log to this file")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection
// container for the CLI application
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
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register pattern tables (built-ins; the CLI has no store)
	if err := container.Provide(core.DefaultPatternTables); err != nil {
		return nil, err
	}

	// Register extractor
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Extractor {
		return extractor.New(logger, cfg.GetFilter().MaxBodySize)
	}); err != nil {
		return nil, err
	}

	// Register filter service
	if err := container.Provide(func(
		ex core.Extractor,
		tables core.PatternTables,
		cfg *config.Config,
		logger *zap.Logger,
	) *core.FilterService {
		filterCfg := cfg.GetFilter()
		return core.NewFilterService(
			ex,
			tables,
			logger,
			filterCfg.Workers,
			filterCfg.WhitelistedDomains,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("filter.workers", flags.Workers)
	v.Set("filter.max_body_size", flags.MaxBodySize)

	if flags.WhitelistedDomains != "" {
		domains := strings.Split(flags.WhitelistedDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("filter.whitelisted_domains", domains)
	} else {
		v.Set("filter.whitelisted_domains", []string{})
	}

	return config.NewFromViper(v)
}
