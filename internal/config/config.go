package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings, loaded from environment variables or an
// optional app.env file.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	// How long an issued passcode pair stays verifiable.
	PasscodeTTL time.Duration `mapstructure:"PASSCODE_TTL"`
	// Advisory GPS corroboration threshold in meters.
	ProximityThresholdM float64 `mapstructure:"PROXIMITY_THRESHOLD_M"`

	// Evidence photo storage.
	AWSRegion      string `mapstructure:"AWS_REGION"`
	EvidenceBucket string `mapstructure:"EVIDENCE_BUCKET"`

	// Operational email alerts.
	AlertFromEmail string `mapstructure:"ALERT_FROM_EMAIL"`
	AlertToEmail   string `mapstructure:"ALERT_TO_EMAIL"`
}

// LoadConfig reads configuration from app.env in the given path (if present)
// and from the environment. Environment variables win.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PASSCODE_TTL", "2h")
	viper.SetDefault("PROXIMITY_THRESHOLD_M", 100.0)

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; everything can come from the environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
