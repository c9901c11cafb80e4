// ABOUTME: Application configuration
// ABOUTME: Layers defaults, config file, .env and environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/voicelink-go/internal/gemini"
)

// EnvPrefix prefixes every environment override, e.g. VOICELINK_VOICE
const EnvPrefix = "VOICELINK"

const defaultInstruction = "You are a warm, quick-witted voice companion. Keep replies short and conversational, and always finish the sentence you start."

// Config holds all application settings
type Config struct {
	APIKey            string `mapstructure:"api_key"`
	Model             string `mapstructure:"model" validate:"required"`
	Voice             string `mapstructure:"voice" validate:"required"`
	SummaryModel      string `mapstructure:"summary_model" validate:"required"`
	SystemInstruction string `mapstructure:"system_instruction"`

	// Relay, when set, routes the session through a voicelink relay
	// instead of talking to Gemini directly
	Relay       string `mapstructure:"relay"`
	RelaySecure bool   `mapstructure:"relay_secure"`
	Discover    bool   `mapstructure:"discover"`

	SettingsPath  string `mapstructure:"settings_path" validate:"required"`
	MemoryPath    string `mapstructure:"memory_path"`
	RecordingsDir string `mapstructure:"recordings_dir" validate:"required"`

	LogFile     string `mapstructure:"log_file"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	ProbeAddr   string `mapstructure:"probe_addr" validate:"required"`

	MaxRetries int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("model", gemini.DefaultLiveModel)
	v.SetDefault("voice", gemini.DefaultVoice)
	v.SetDefault("summary_model", gemini.DefaultSummaryModel)
	v.SetDefault("system_instruction", defaultInstruction)

	v.SetDefault("relay", "")
	v.SetDefault("relay_secure", false)
	v.SetDefault("discover", false)

	v.SetDefault("settings_path", "voicelink-settings.json")
	v.SetDefault("memory_path", "voicelink-memory.txt")
	v.SetDefault("recordings_dir", "recordings")

	v.SetDefault("log_file", "voicelink.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("probe_addr", "generativelanguage.googleapis.com:443")

	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", 2*time.Second)
}

// Load reads configuration. path names an explicit config file; when empty
// voicelink.yaml is looked up in the working directory and
// ~/.config/voicelink, and a missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables only")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", EnvPrefix+"_API_KEY", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("voicelink")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/voicelink")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug().Str("path", used).Msg("loaded config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. A missing API key is not an error
// here; the session reports it to the user.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UseRelay reports whether sessions go through a relay
func (c *Config) UseRelay() bool {
	return c.Relay != "" || c.Discover
}
