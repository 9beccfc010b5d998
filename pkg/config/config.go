package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Storage StorageConfig
	Reports ReportsConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// StorageConfig locates the delimited text tables holding the catalog.
type StorageConfig struct {
	DataDir  string
	Autosave bool
}

// ReportsConfig configures where exported reports are written.
type ReportsConfig struct {
	StorageDir string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig enables the Prometheus textfile dump written on exit.
type MetricsConfig struct {
	Textfile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")

	cfg.Storage = StorageConfig{
		DataDir:  v.GetString("DATA_DIR"),
		Autosave: v.GetBool("AUTOSAVE"),
	}

	cfg.Reports = ReportsConfig{StorageDir: v.GetString("REPORTS_STORAGE_DIR")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Textfile: strings.TrimSpace(v.GetString("METRICS_TEXTFILE"))}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("AUTOSAVE", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("METRICS_TEXTFILE", "")
}
