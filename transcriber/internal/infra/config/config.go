package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	MaxParallel       int           `yaml:"max_parallel"`
	DefaultLanguage   string        `yaml:"default_language"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`

	Engine Engine `yaml:"engine"`
}

type Engine struct {
	// Kind is "command" or "mock".
	Kind    string   `yaml:"kind"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`

	MockSegments int           `yaml:"mock_segments"`
	MockMaxDelay time.Duration `yaml:"mock_max_delay"`
}

func MustLoad(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("config: cannot unmarshal yaml: %v", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":50051"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "ko"
	}

	switch cfg.Engine.Kind {
	case "":
		cfg.Engine.Kind = "command"
		fallthrough
	case "command":
		if cfg.Engine.Command == "" {
			log.Fatalf("config: engine.command is empty")
		}
	case "mock":
	default:
		log.Fatalf("config: unknown engine.kind %q", cfg.Engine.Kind)
	}

	return &cfg
}
