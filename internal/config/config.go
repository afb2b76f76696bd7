package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	DataSource    string   `mapstructure:"DATA_SOURCE"`
	SyntheticSeed int64    `mapstructure:"SYNTHETIC_SEED"`
	ResultDir     string   `mapstructure:"RESULT_DIR"`
	ModelDir      string   `mapstructure:"MODEL_DIR"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DATA_SOURCE", "auto")
	v.SetDefault("SYNTHETIC_SEED", 0)
	v.SetDefault("RESULT_DIR", "./result")
	v.SetDefault("MODEL_DIR", "./models")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DATA_SOURCE")
	v.BindEnv("SYNTHETIC_SEED")
	v.BindEnv("RESULT_DIR")
	v.BindEnv("MODEL_DIR")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. DATA_SOURCE=live
// requires a DATABASE_URL; "auto" probes the database and falls back to the
// synthetic source, so a missing URL is allowed there.
func (c *Config) Validate() error {
	switch c.DataSource {
	case "auto", "synthetic":
	case "live":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE is \"live\"")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be \"auto\", \"live\", or \"synthetic\", got %q", c.DataSource)
	}
	if c.ResultDir == "" {
		return fmt.Errorf("RESULT_DIR must not be empty")
	}
	if c.ModelDir == "" {
		return fmt.Errorf("MODEL_DIR must not be empty")
	}
	return nil
}
