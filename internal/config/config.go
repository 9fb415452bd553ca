package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	JWTSecret  string        `mapstructure:"jwt_secret"`

	Room      RoomConfig      `mapstructure:"room"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
}

type RoomConfig struct {
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"`
	AbandonTimeout  time.Duration `mapstructure:"abandon_timeout"`
	LobbyTimeout    time.Duration `mapstructure:"lobby_timeout"`
	DrainDelay      time.Duration `mapstructure:"drain_delay"`
	MaxSpectators   int           `mapstructure:"max_spectators"`
	InboxSize       int           `mapstructure:"inbox_size"`
}

type RateLimitConfig struct {
	Moves    int           `mapstructure:"moves"`
	Interval time.Duration `mapstructure:"interval"`
}

type StoreConfig struct {
	Driver   string        `mapstructure:"driver"`
	DSN      string        `mapstructure:"dsn"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LogLevel string        `mapstructure:"log_level"`
}

type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotated log file when Path is set.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, then GAMBIT_* environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

// LoadAndWatch is Load plus a file watch: onChange gets every successfully
// re-read config.
func LoadAndWatch(onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" || onChange == nil {
		return cfg, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("config reload failed")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Str("op", e.Op.String()).Msg("config reloaded")
		onChange(&next)
	})
	v.WatchConfig()
	return cfg, nil
}

func load() (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("GAMBIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
		v.SetConfigFile("")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("jwt_secret", "change-me")

	v.SetDefault("room.disconnect_grace", "30s")
	v.SetDefault("room.abandon_timeout", "2m")
	v.SetDefault("room.lobby_timeout", "10m")
	v.SetDefault("room.drain_delay", "5s")
	v.SetDefault("room.max_spectators", 16)
	v.SetDefault("room.inbox_size", 64)

	v.SetDefault("rate_limit.moves", 10)
	v.SetDefault("rate_limit.interval", "1s")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "./data/gambit.db")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.ttl", "24h")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("store.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 7)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.compress", true)
}
