// Package config loads taskd settings from defaults, an optional config file
// and TASKD_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKD_SERVER_ADDR.
const EnvPrefix = "TASKD"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// ServerConfig controls the TCP listener and the per-connection read.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required,hostname_port"`
	BufferSize  int           `mapstructure:"buffer_size" validate:"gte=64,lte=1048576"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DatabaseConfig enables the Postgres event journal when URL is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// KafkaConfig enables publishing task events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" validate:"omitempty,dive,hostname_port"`
	Topic   string   `mapstructure:"topic" validate:"required_with=Brokers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:7878")
	v.SetDefault("server.buffer_size", 1024)
	v.SetDefault("server.read_timeout", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.url", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "task-events")
}

// Load reads configuration. configFile may be empty; when set, the file must
// exist and its format is inferred from the extension.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct-level constraints and reports every failing field.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
