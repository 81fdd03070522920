package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultSleepSeconds = 2
	DefaultSplit        = 10
	DefaultPageSize     = 200
	DefaultMaxRetries   = 3
	DefaultTokenEnv     = "SLACK_API_TOKEN"

	// MaxPageSize is the largest limit Slack accepts on its list methods.
	MaxPageSize = 1000
)

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

type AuditConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

type Config struct {
	Channel         string      `mapstructure:"channel"`
	IncludeBots     bool        `mapstructure:"bots"`
	IncludeApps     bool        `mapstructure:"apps"`
	SleepSeconds    int         `mapstructure:"sleep"`
	Split           int         `mapstructure:"split"`
	Verbose         bool        `mapstructure:"verbose"`
	PageSize        int         `mapstructure:"page-size"`
	MaxRetries      int         `mapstructure:"max-retries"`
	DryRun          bool        `mapstructure:"dry-run"`
	ContinueOnError bool        `mapstructure:"continue-on-error"`
	Token           string      `mapstructure:"token"`
	TokenEnv        string      `mapstructure:"token-env"`
	TokenFile       string      `mapstructure:"token-file"`
	Audit           AuditConfig `mapstructure:"audit"`
}

// Delay is the spacing enforced between consecutive Slack API calls.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.SleepSeconds) * time.Second
}

// RegisterFlags declares the invite flags on fs. Defaults here mirror the
// viper defaults so that an unset flag never shadows the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("channel", "c", "", "Channel name to add members to (required)")
	fs.BoolP("bots", "b", false, "Include bots in the invite list")
	fs.BoolP("apps", "a", false, "Include app users in the invite list")
	fs.Int("sleep", DefaultSleepSeconds, "Seconds to wait between Slack API calls")
	fs.IntP("split", "s", DefaultSplit, "Number of chunks to split more than 999 invites into")
	fs.BoolP("verbose", "v", false, "Write diagnostic logs to stderr")
	fs.Int("page-size", DefaultPageSize, "Items requested per paginated call")
	fs.Int("max-retries", DefaultMaxRetries, "Retries when Slack answers with HTTP 429")
	fs.Bool("dry-run", false, "Compute the invite plan without inviting anyone")
	fs.Bool("continue-on-error", false, "Keep inviting remaining chunks after a chunk fails")
	fs.StringP("token", "k", "", "Slack OAuth access token")
	fs.String("token-env", DefaultTokenEnv, "Environment variable holding the Slack OAuth token")
	fs.StringP("token-file", "f", "", "File holding the Slack OAuth token")
}

// RegisterPersistentFlags declares the flags shared by every subcommand.
func RegisterPersistentFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default ./bulkinviter.yaml or ./config/bulkinviter.yaml)")
	fs.String("audit-db", "", "Postgres connection string for the run audit trail")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sleep", DefaultSleepSeconds)
	v.SetDefault("split", DefaultSplit)
	v.SetDefault("page-size", DefaultPageSize)
	v.SetDefault("max-retries", DefaultMaxRetries)
	v.SetDefault("token-env", DefaultTokenEnv)
}

// Load merges defaults, an optional YAML config file and the parsed flags.
// It does not validate; callers that need an invite run call Validate.
func Load(fs afero.Fs, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	if f := flags.Lookup("audit-db"); f != nil {
		if err := v.BindPFlag("audit.database_url", f); err != nil {
			return nil, errors.Wrap(err, "bind audit-db flag")
		}
	}

	explicit := v.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("bulkinviter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.Channel = NormalizeChannel(cfg.Channel)
	cfg.TokenEnv = strings.TrimSpace(cfg.TokenEnv)
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = DefaultTokenEnv
	}

	return &cfg, nil
}

// NormalizeChannel trims whitespace and a leading '#'.
func NormalizeChannel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "#")
}

// Validate checks the settings an invite run depends on.
func (c *Config) Validate() error {
	switch {
	case c.Channel == "":
		return errors.Wrap(ErrInvalidConfig, "channel is required")
	case c.SleepSeconds < 0:
		return errors.Wrapf(ErrInvalidConfig, "sleep must not be negative, got %d", c.SleepSeconds)
	case c.Split < 1:
		return errors.Wrapf(ErrInvalidConfig, "split must be at least 1, got %d", c.Split)
	case c.PageSize < 1 || c.PageSize > MaxPageSize:
		return errors.Wrapf(ErrInvalidConfig, "page-size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	case c.MaxRetries < 0:
		return errors.Wrapf(ErrInvalidConfig, "max-retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}
