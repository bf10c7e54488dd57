package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultLogLevel        = "INFO"
	defaultHistoryPageSize = 20
	defaultRoomPageSize    = 10
	defaultCacheTTL        = time.Hour
	defaultCacheWarmCount  = 100
	defaultIdleTTL         = 30 * time.Minute
	defaultSweepSpec       = "@every 1m"
)

// Config is the global configuration object, filled from a TOML file (or a
// directory of TOML files) and PMCHAT_* environment variables.
type Config struct {
	LogLevel          string            `mapstructure:"log_level"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	CacheConfig       CacheConfig       `mapstructure:"cache"`
	ChatConfig        ChatConfig        `mapstructure:"chat"`
}

// PersistenceConfig selects the durable store backend. Type is one of
// "sqlite", "postgres" (gorm) or "buntdb" (embedded message log behind the
// same interface, rooms and memberships then still live in gorm).
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`

	// MessageLog optionally routes only the message log to a separate
	// backend ("buntdb") while rooms/memberships stay relational.
	MessageLog    string `mapstructure:"message_log"`
	MessageLogDSN string `mapstructure:"message_log_dsn"`
}

// CacheConfig configures the redis read accelerator in front of the goods
// message log. An empty Addr disables the cache tier entirely, which is
// always safe: every read falls through to the durable store.
type CacheConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	WarmCount int           `mapstructure:"warm_count"`
}

// ChatConfig holds the engine tunables.
type ChatConfig struct {
	HistoryPageSize int `mapstructure:"history_page_size"`
	RoomPageSize    int `mapstructure:"room_page_size"`

	// Idle websocket subscribers are swept out of the hub registry after
	// IdleTTL, on the SweepSpec cron schedule.
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	SweepSpec string        `mapstructure:"sweep_spec"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("log-level", "", "log level (TRACE/DEBUG/INFO/WARN/ERROR)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.Replace(name, "-", "_", -1))
}

// ReadConfiguration reads and parses the configuration located at
// configPath, which can either point to a single TOML file or to a
// directory, in which case all *.toml files in it are concatenated.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("log_level", defaultLogLevel)
	if err := viper.BindPFlags(flagSet); err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("PMCHAT")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		if err := viper.ReadConfig(bytes.NewBuffer(contents)); err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}
	applyDefaults(&cfg)

	globals.AppLogger.Debug("config", "cfg", cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.CacheConfig.TTL <= 0 {
		cfg.CacheConfig.TTL = defaultCacheTTL
	}
	if cfg.CacheConfig.WarmCount <= 0 {
		cfg.CacheConfig.WarmCount = defaultCacheWarmCount
	}
	if cfg.CacheConfig.KeyPrefix == "" {
		cfg.CacheConfig.KeyPrefix = "pmchat:"
	}
	if cfg.ChatConfig.HistoryPageSize <= 0 {
		cfg.ChatConfig.HistoryPageSize = defaultHistoryPageSize
	}
	if cfg.ChatConfig.RoomPageSize <= 0 {
		cfg.ChatConfig.RoomPageSize = defaultRoomPageSize
	}
	if cfg.ChatConfig.IdleTTL <= 0 {
		cfg.ChatConfig.IdleTTL = defaultIdleTTL
	}
	if cfg.ChatConfig.SweepSpec == "" {
		cfg.ChatConfig.SweepSpec = defaultSweepSpec
	}
}
