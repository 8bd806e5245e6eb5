package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel         = LogLevelInfo
	DefaultEnvPrefix        = "POWERHINTD"
	DefaultInterfaceVersion = 5
	DefaultListen           = "unix:///run/powerhintd.sock"
	DefaultHintCatalog      = "/etc/powerhintd/hints.toml"
	DefaultPropertiesFile   = "/var/lib/powerhintd/properties.toml"
	DefaultMetricsDBPath    = "/var/lib/powerhintd/metrics.db"

	configName = "powerhintd"
	configDir  = "/etc"
)

type Config struct {
	LogLevel         string            `mapstructure:"log_level"`
	InterfaceVersion int               `mapstructure:"interface_version"`
	Listen           string            `mapstructure:"listen"`
	HintCatalog      string            `mapstructure:"hint_catalog"`
	PropertiesFile   string            `mapstructure:"properties_file"`
	PIDDir           string            `mapstructure:"pid_dir"`
	Metrics          MetricsConfig     `mapstructure:"metrics"`
	GPU              GPUConfig         `mapstructure:"gpu"`
	Interaction      InteractionConfig `mapstructure:"interaction"`
	Device           DeviceConfig      `mapstructure:"device"`
}

type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
}

type GPUConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Index   int  `mapstructure:"index"`
}

// InteractionConfig bounds the window recorded for INTERACTION boosts, in ms.
type InteractionConfig struct {
	MinDurationMs int `mapstructure:"min_duration_ms"`
	MaxDurationMs int `mapstructure:"max_duration_ms"`
}

// DeviceConfig lists per-device mode overrides.
type DeviceConfig struct {
	HandledModes     []string `mapstructure:"handled_modes"`
	SupportedModes   []string `mapstructure:"supported_modes"`
	UnsupportedModes []string `mapstructure:"unsupported_modes"`
}

// RegisterFlags adds the daemon's command line flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")
	fs.Int("interface-version", DefaultInterfaceVersion, "Interface version reported to clients")
	fs.String("listen", DefaultListen, "Listen address (unix:///path or host:port)")
	fs.String("hint-catalog", DefaultHintCatalog, "Path to the hint catalog")
	fs.String("properties-file", DefaultPropertiesFile, "Path to the persisted properties file")
	fs.Bool("metrics", false, "Record dispatch events to the metrics database")
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":         "log_level",
	"interface-version": "interface_version",
	"listen":            "listen",
	"hint-catalog":      "hint_catalog",
	"properties-file":   "properties_file",
	"metrics":           "metrics.enabled",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("interface_version", DefaultInterfaceVersion)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("hint_catalog", DefaultHintCatalog)
	v.SetDefault("properties_file", DefaultPropertiesFile)
	v.SetDefault("pid_dir", os.TempDir())
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.db_path", DefaultMetricsDBPath)
	v.SetDefault("metrics.batch_size", 32)
	v.SetDefault("metrics.batch_timeout", 10)
	v.SetDefault("gpu.enabled", false)
	v.SetDefault("gpu.index", 0)
	v.SetDefault("interaction.min_duration_ms", 1500)
	v.SetDefault("interaction.max_duration_ms", 5650)
}

// Load reads configuration from defaults, the config file, the environment
// and fs (which may be nil), in increasing order of precedence.
func Load(fs *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" && fs.Changed("config") {
			o.configPath = path
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errFactory.Wrap(errors.ErrBindFlags, err)
				}
			}
		}
	}

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.InterfaceVersion < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "interface_version must not be negative")
	}
	if c.Listen == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "listen address is empty")
	}
	if c.Metrics.Enabled && c.Metrics.DBPath == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, "metrics.db_path is empty")
	}
	// max_duration_ms = 0 leaves interaction windows unbounded.
	if c.Interaction.MinDurationMs < 0 || c.Interaction.MaxDurationMs < 0 ||
		(c.Interaction.MaxDurationMs > 0 && c.Interaction.MaxDurationMs < c.Interaction.MinDurationMs) {
		return errFactory.WithData(errors.ErrInvalidConfig, "interaction duration bounds are inverted")
	}
	if c.Metrics.Enabled && c.Metrics.BatchSize <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "metrics.batch_size must be positive")
	}

	return nil
}
