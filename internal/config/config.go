package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "pivotlink.yml"

	envPlatformURL        = "PIVOTLINK_PLATFORM_URL"
	envPlatformKind       = "PIVOTLINK_PLATFORM_KIND"
	envClientID           = "PIVOTLINK_CLIENT_ID"
	envViewerURL          = "PIVOTLINK_VIEWER_URL"
	envResetCredentials   = "PIVOTLINK_RESET_CREDENTIALS"
	envInterval           = "PIVOTLINK_INTERVAL"
	envListenAddr         = "PIVOTLINK_LISTEN_ADDR"
	envInsecureSkipVerify = "PIVOTLINK_INSECURE_SKIP_VERIFY"
	envSlackBotToken      = "PIVOTLINK_SLACK_BOT_TOKEN"
	envSlackChannel       = "PIVOTLINK_SLACK_CHANNEL"
)

// Platform kinds. Appliance talks APIv2 with a static token, portal talks
// APIv3 with OAuth client credentials.
const (
	KindAppliance = "appliance"
	KindPortal    = "portal"
)

// Config contains the fully merged settings for a sync run.
type Config struct {
	PlatformURL      string
	PlatformKind     string
	ClientID         string // required for portal
	ViewerURL        string
	ResetCredentials bool

	Interval           time.Duration
	ListenAddr         string
	InsecureSkipVerify bool

	SlackBotToken string // optional; enables the Slack notifier
	SlackChannel  string
}

// Loader merges configuration coming from the yaml file and environment
// variables. Environment wins.
type Loader struct {
	ConfigPath string
}

// fileConfig is the yaml shape of the config file.
type fileConfig struct {
	PlatformURL        string `yaml:"platform_url"`
	PlatformKind       string `yaml:"platform_kind"`
	ClientID           string `yaml:"client_id"`
	ViewerURL          string `yaml:"viewer_url"`
	ResetCredentials   bool   `yaml:"reset_credentials"`
	Interval           string `yaml:"interval"`
	ListenAddr         string `yaml:"listen_addr"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	SlackChannel       string `yaml:"slack_channel"`
}

// DefaultConfig returns the baseline configuration before file and env
// merging.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		ListenAddr: "localhost:9464",
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load() (Config, error) {
	cfg := DefaultConfig()

	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// A missing default config file is fine; env must carry everything.
		if l.ConfigPath != "" && l.ConfigPath != DefaultConfigPath {
			return Config{}, fmt.Errorf("config file %s not found", l.ConfigPath)
		}
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := applyFile(&cfg, file); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, file fileConfig) error {
	if file.PlatformURL != "" {
		cfg.PlatformURL = strings.TrimRight(file.PlatformURL, "/")
	}
	if file.PlatformKind != "" {
		cfg.PlatformKind = file.PlatformKind
	}
	if file.ClientID != "" {
		cfg.ClientID = file.ClientID
	}
	if file.ViewerURL != "" {
		cfg.ViewerURL = strings.TrimRight(file.ViewerURL, "/")
	}
	if file.Interval != "" {
		interval, err := time.ParseDuration(file.Interval)
		if err != nil {
			return fmt.Errorf("bad interval %q: %w", file.Interval, err)
		}
		cfg.Interval = interval
	}
	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.SlackChannel != "" {
		cfg.SlackChannel = file.SlackChannel
	}
	cfg.ResetCredentials = cfg.ResetCredentials || file.ResetCredentials
	cfg.InsecureSkipVerify = cfg.InsecureSkipVerify || file.InsecureSkipVerify
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envPlatformURL); v != "" {
		cfg.PlatformURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(envPlatformKind); v != "" {
		cfg.PlatformKind = v
	}
	if v := os.Getenv(envClientID); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv(envViewerURL); v != "" {
		cfg.ViewerURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(envInterval); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", envInterval, v, err)
		}
		cfg.Interval = interval
	}
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envResetCredentials); v != "" {
		reset, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", envResetCredentials, v, err)
		}
		cfg.ResetCredentials = reset
	}
	if v := os.Getenv(envInsecureSkipVerify); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", envInsecureSkipVerify, v, err)
		}
		cfg.InsecureSkipVerify = skip
	}
	if v := os.Getenv(envSlackBotToken); v != "" {
		cfg.SlackBotToken = v
	}
	if v := os.Getenv(envSlackChannel); v != "" {
		cfg.SlackChannel = v
	}
	return nil
}

func (c Config) validate() error {
	if c.PlatformURL == "" {
		return errors.New("platform_url is required")
	}
	switch c.PlatformKind {
	case KindAppliance:
	case KindPortal:
		if c.ClientID == "" {
			return errors.New("client_id is required for the portal platform kind")
		}
	case "":
		return errors.New("platform_kind is required (appliance or portal)")
	default:
		return fmt.Errorf("unknown platform_kind %q (want appliance or portal)", c.PlatformKind)
	}
	if c.ViewerURL == "" {
		return errors.New("viewer_url is required")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.SlackBotToken != "" && c.SlackChannel == "" {
		return errors.New("slack_channel is required when a Slack bot token is set")
	}
	return nil
}
