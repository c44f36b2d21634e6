package warehouse

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	DbPath string `mapstructure:"db_path" validate:"required"`
	Schema string `mapstructure:"schema"`
}

func LoadConfig(profilePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(profilePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse warehouse config: %w", err)
	}
	return &cfg, nil
}
