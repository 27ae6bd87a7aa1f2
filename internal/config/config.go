// Package config loads application settings from an optional YAML
// file with environment-variable overrides. The API key is never read
// from here; the keys package owns the credential chain.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Model      string `yaml:"model" env:"GEMIMG_MODEL" env-default:"gemini-2.0-flash-exp-image-generation"`
	TimeoutSec int    `yaml:"timeout_sec" env:"GEMIMG_TIMEOUT_SEC" env-default:"120"`
	LogLevel   string `yaml:"log_level" env:"GEMIMG_LOG_LEVEL" env-default:"info"`
}

// Load reads path when it exists, falling back to environment and
// defaults when path is empty or missing.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				desc, _ := cleanenv.GetDescription(cfg, nil)
				return nil, fmt.Errorf("config: %w; %s", err, desc)
			}
			return cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
