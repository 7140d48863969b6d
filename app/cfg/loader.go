package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/postwatch.db" description:"Path to the SQLite database file"`

	// Source API configuration
	SourceAPIKey  string `long:"source-api-key" env:"SOURCE_API_KEY" description:"API key for the content source API (required)" required:"true"`
	SourceBaseURL string `long:"source-base-url" env:"SOURCE_BASE_URL" default:"https://api.twitterapi.io" description:"Base URL of the content source API"`
	SourceTimeout int    `long:"source-timeout" env:"SOURCE_TIMEOUT" default:"30" description:"Source API request timeout in seconds"`

	// Monitoring configuration
	CheckInterval    int  `long:"check-interval" env:"CHECK_INTERVAL_SECONDS" default:"300" description:"Interval between monitoring cycles in seconds"`
	MaxPostsPerCheck int  `long:"max-posts-per-check" env:"MAX_POSTS_PER_CHECK" default:"20" description:"Maximum number of recent posts fetched per account"`
	MaxConcurrent    int  `long:"max-concurrent" env:"MAX_CONCURRENT_ACCOUNTS" default:"10" description:"Maximum number of accounts processed concurrently"`
	FetchMinInterval int  `long:"fetch-min-interval" env:"FETCH_MIN_INTERVAL" default:"1" description:"Minimum seconds between source API calls (shared across all accounts)"`
	SendDelay        int  `long:"send-delay" env:"SEND_DELAY" default:"1" description:"Delay in seconds between consecutive webhook deliveries"`
	StartOnBoot      bool `long:"start-on-boot" env:"START_ON_BOOT" description:"Start the monitoring loop immediately on startup"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SeedFile     string `long:"seed-file" env:"SEED_FILE" description:"Optional YAML file with channels and accounts to register on startup"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for mutating endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"PostWatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		SourceAPIKey:     raw.SourceAPIKey,
		SourceBaseURL:    raw.SourceBaseURL,
		SourceTimeout:    raw.SourceTimeout,
		CheckInterval:    raw.CheckInterval,
		MaxPostsPerCheck: raw.MaxPostsPerCheck,
		MaxConcurrent:    raw.MaxConcurrent,
		FetchMinInterval: raw.FetchMinInterval,
		SendDelay:        raw.SendDelay,
		StartOnBoot:      raw.StartOnBoot,
		Port:             raw.Port,
		SeedFile:         raw.SeedFile,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the global configuration. Tests only.
func SetForTesting(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
