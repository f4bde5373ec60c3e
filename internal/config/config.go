package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	defaultIntervalSeconds = 30
	defaultPageSize        = 1000
	defaultRequestTimeout  = 120
	defaultMaxConnections  = 10
)

// Config is the full application configuration, loaded once at process start.
type Config struct {
	ID         string     `mapstructure:"id" validate:"required"`
	Interval   int        `mapstructure:"interval" validate:"gt=0"`
	LogLevel   string     `mapstructure:"log_level"`
	Postgres   Postgres   `mapstructure:"postgres" validate:"required"`
	ServiceNow ServiceNow `mapstructure:"servicenow" validate:"required"`
	SyncRule   SyncRule   `mapstructure:"sync"`
}

type Postgres struct {
	Address        string `mapstructure:"address" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,gt=0"`
	Username       string `mapstructure:"username" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	DBName         string `mapstructure:"db_name" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connection" validate:"gt=0"`
}

type ServiceNow struct {
	Instance       string `mapstructure:"instance" validate:"required,url"`
	Username       string `mapstructure:"username" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	PageSize       int    `mapstructure:"page_size" validate:"gt=0"`
	RequestTimeout int    `mapstructure:"request_timeout" validate:"gt=0"`
}

// SyncRule narrows the mirrored table set with glob patterns.
// Empty TablesToMirror means every registered table is mirrored.
type SyncRule struct {
	TablesToMirror []string `mapstructure:"tables_to_mirror"`
	TablesToSkip   []string `mapstructure:"tables_to_skip"`
}

func NewConfig() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ServiceNow.Instance = strings.TrimRight(cfg.ServiceNow.Instance, "/")

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("interval", defaultIntervalSeconds)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("postgres.ssl_mode", "disable")
	viper.SetDefault("postgres.max_connection", defaultMaxConnections)
	viper.SetDefault("servicenow.page_size", defaultPageSize)
	viper.SetDefault("servicenow.request_timeout", defaultRequestTimeout)
}
