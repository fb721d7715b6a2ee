package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	AuthAddr string `mapstructure:"AUTH"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("AUTH", "AUTH_ADDR")

	if err := v.ReadInConfig(); err != nil {
		if v.GetString("AUTH") == "" {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	if cfg.AuthAddr == "" {
		return nil, fmt.Errorf("auth service address is not set")
	}

	return &cfg, nil
}
