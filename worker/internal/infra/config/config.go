package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	WorkerID        int           `yaml:"worker_id"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	LogDir          string        `yaml:"log_dir"`

	TranscriptDir string `yaml:"transcript_dir"`

	PoolSize          int           `yaml:"pool_size"`
	Language          string        `yaml:"language"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout"`
	StoreTimeout      time.Duration `yaml:"store_timeout"`

	Replication Replication `yaml:"replication"`
	Transcriber Transcriber `yaml:"transcriber"`
	JobStore    JobStore    `yaml:"job_store"`

	Redis Redis `yaml:"redis"`
	MinIO MinIO `yaml:"minio"`
	NATS  NATS  `yaml:"nats"`
}

type Replication struct {
	QueueCapacity int `yaml:"queue_capacity"`
	Workers       int `yaml:"workers"`
	MaxRetries    int `yaml:"max_retries"`
}

type Transcriber struct {
	Addr          string        `yaml:"addr"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
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
	Durable       string        `yaml:"durable"`
	AckWait       time.Duration `yaml:"ack_wait"`
	MaxDeliver    int           `yaml:"max_deliver"`
	FetchWait     time.Duration `yaml:"fetch_wait"`
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

	if cfg.TranscriptDir == "" {
		log.Fatalf("config: transcript_dir is empty")
	}
	if cfg.LogDir == "" {
		log.Fatalf("config: log_dir is empty")
	}
	if cfg.NATS.Subject == "" {
		log.Fatalf("config: nats.subject is empty")
	}
	if cfg.Transcriber.Addr == "" {
		log.Fatalf("config: transcriber.addr is empty")
	}
	if cfg.TranscribeTimeout <= 0 {
		log.Fatalf("config: transcribe_timeout must be positive, got %s", cfg.TranscribeTimeout)
	}

	if cfg.NATS.AckWait == 0 {
		cfg.NATS.AckWait = cfg.TranscribeTimeout + time.Minute
	}
	if cfg.NATS.AckWait <= cfg.TranscribeTimeout {
		log.Fatalf("config: nats.ack_wait (%s) must exceed transcribe_timeout (%s)",
			cfg.NATS.AckWait, cfg.TranscribeTimeout)
	}

	if cfg.WorkerID <= 0 {
		cfg.WorkerID = 1
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "TRANSCRIPTION"
	}
	if cfg.NATS.Durable == "" {
		cfg.NATS.Durable = "transcription-workers"
	}
	if cfg.NATS.MaxDeliver == 0 {
		cfg.NATS.MaxDeliver = 5
	}
	if cfg.Transcriber.HealthTimeout <= 0 {
		cfg.Transcriber.HealthTimeout = 5 * time.Second
	}
	if cfg.JobStore.Backend == "" {
		cfg.JobStore.Backend = "redis"
	}

	return &cfg
}
