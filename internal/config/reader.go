package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Reader interface {
	Read() (*Config, error)
}

// EnvReader reads the process environment, after loading DotEnv if it exists.
type EnvReader struct {
	DotEnv string
}

func NewEnvReader() EnvReader {
	return EnvReader{DotEnv: ".env"}
}

func (r EnvReader) Read() (*Config, error) {
	if r.DotEnv != "" {
		// a missing file is fine; existing variables win over the file
		_ = godotenv.Load(r.DotEnv)
	}
	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return cfg, nil
}
