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

	MediaDir      string `yaml:"media_dir"`
	TranscriptDir string `yaml:"transcript_dir"`
	LogDir        string `yaml:"log_dir"`

	MaxUploadBytesMb int64 `yaml:"max_upload_mb"`

	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	MaxDownloadMb   int64         `yaml:"max_download_mb"`

	AllowedIPs []string `yaml:"allowed_ips"`
	CORS       CORS     `yaml:"cors"`

	Replication Replication `yaml:"replication"`
	JobStore    JobStore    `yaml:"job_store"`

	Redis Redis `yaml:"redis"`
	MinIO MinIO `yaml:"minio"`
	NATS  NATS  `yaml:"nats"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

type Replication struct {
	QueueCapacity int `yaml:"queue_capacity"`
	Workers       int `yaml:"workers"`
	MaxRetries    int `yaml:"max_retries"`
}

type JobStore struct {
	// Backend is "redis" or "sqlite".
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MinIO struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
}

type NATS struct {
	URL           string        `yaml:"url"`
	QueueName     string        `yaml:"queue_name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	Stream        string        `yaml:"stream"`
	Subject       string        `yaml:"subject"`
	MaxAge        time.Duration `yaml:"max_age"`
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
		log.Fatalf("config: addr is empty")
	}
	if cfg.MediaDir == "" {
		log.Fatalf("config: media_dir is empty")
	}
	if cfg.TranscriptDir == "" {
		log.Fatalf("config: transcript_dir is empty")
	}
	if cfg.LogDir == "" {
		log.Fatalf("config: log_dir is empty")
	}
	if cfg.NATS.Subject == "" {
		log.Fatalf("config: nats.subject is empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytesMb <= 0 {
		cfg.MaxUploadBytesMb = 2048
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Minute
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "TRANSCRIPTION"
	}
	if cfg.JobStore.Backend == "" {
		cfg.JobStore.Backend = "redis"
	}

	return &cfg
}
