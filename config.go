package veloscout

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	BufferMeters float64        `yaml:"buffer_meters" mapstructure:"buffer_meters"`
	Overpass     OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Stages       StagesConfig   `yaml:"stages" mapstructure:"stages"`
	Cache        CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Regions      RegionsConfig  `yaml:"regions" mapstructure:"regions"`
	OSRM         OSRMConfig     `yaml:"osrm" mapstructure:"osrm"`
	Safety       SafetyConfig   `yaml:"safety" mapstructure:"safety"`
	Log          LogConfig      `yaml:"log" mapstructure:"log"`
}

// StagesConfig tunes the staged download strategy.
type StagesConfig struct {
	LengthKm     float64       `yaml:"length_km" mapstructure:"length_km"`
	Delay        time.Duration `yaml:"delay" mapstructure:"delay"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	BufferMeters float64       `yaml:"buffer_meters" mapstructure:"buffer_meters"`
}

// CacheConfig configures the on-disk dataset cache.
type CacheConfig struct {
	Dir    string        `yaml:"dir" mapstructure:"dir"`
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

// RegionsConfig configures the region catalog source.
type RegionsConfig struct {
	IndexURL    string        `yaml:"index_url" mapstructure:"index_url"`
	IndexMaxAge time.Duration `yaml:"index_max_age" mapstructure:"index_max_age"`
}

// SafetyConfig tunes the road safety analysis.
type SafetyConfig struct {
	MinScore     float64 `yaml:"min_score" mapstructure:"min_score"`
	CriteriaFile string  `yaml:"criteria_file" mapstructure:"criteria_file"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadConfig reads configuration from an optional YAML file and the
// VELOSCOUT_* environment, falling back to built-in defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("veloscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/veloscout")
	}

	v.SetEnvPrefix("VELOSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("buffer_meters", 1000.0)
	v.SetDefault("overpass.endpoint", DefaultOverpassEndpoint)
	v.SetDefault("overpass.timeout", DefaultOverpassTimeout)
	v.SetDefault("stages.length_km", DefaultStageKm)
	v.SetDefault("stages.delay", DefaultStageDelay)
	v.SetDefault("stages.max_retries", DefaultStageRetries)
	v.SetDefault("cache.dir", "datasets")
	v.SetDefault("cache.max_age", 30*24*time.Hour)
	v.SetDefault("regions.index_url", DefaultGeofabrikIndexURL)
	v.SetDefault("regions.index_max_age", 7*24*time.Hour)
	v.SetDefault("osrm.endpoint", DefaultOSRMEndpoint)
	v.SetDefault("osrm.timeout", DefaultOSRMTimeout)
	v.SetDefault("safety.min_score", 0.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "Can't read configuration file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "Can't unmarshal configuration")
	}
	return cfg, nil
}

// InitLogger builds the global zap logger from the log configuration.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrap(err, "Can't parse log level")
	}
	zapCfg.Level.SetLevel(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return errors.Wrap(err, "Can't build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
