// Package config loads pipeline settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds manifest, probe and sink settings.
// Load from env; call LoadEnvFile(".env") before Load() to use a .env file.
type Config struct {
	// ManifestURLs are the playlist manifests to ingest.
	ManifestURLs []string

	// Paths
	StorePath      string // parsed entry store (JSON)
	PlayablePath   string // entries that passed the initial probe pass (JSON)
	ArrangePath    string // grouped mapping before repair (JSON)
	CheckpointPath string // repaired mapping / checkpoint (JSON)
	DBPath         string // SQLite sink

	// Probing
	ProbeTimeout     time.Duration
	ProbeConcurrency int
	HostConcurrency  int     // per-host in-flight cap
	HostRate         float64 // per-host requests per second; 0 = unlimited

	// Repair
	BatchSize   int           // groups per checkpoint flush
	RunDeadline time.Duration // 0 = none

	// Sink retries
	SinkAttempts int
	SinkBackoff  time.Duration

	// Fetching
	FetchTimeout time.Duration

	// MetricsAddr, when non-empty, serves Prometheus metrics in run mode
	// (e.g. ":9090").
	MetricsAddr string
}

// Load reads config from environment with defaults suitable for a nightly
// batch run.
func Load() *Config {
	c := &Config{
		ManifestURLs:     splitList(os.Getenv("CHANNELPICK_MANIFEST_URLS")),
		StorePath:        getEnv("CHANNELPICK_STORE_PATH", "./channels.json"),
		PlayablePath:     getEnv("CHANNELPICK_PLAYABLE_PATH", "./playable_channels.json"),
		ArrangePath:      getEnv("CHANNELPICK_ARRANGE_PATH", "./channels_arrange.json"),
		CheckpointPath:   getEnv("CHANNELPICK_CHECKPOINT_PATH", "./channels_final.json"),
		DBPath:           getEnv("CHANNELPICK_DB_PATH", "./channels.db"),
		ProbeTimeout:     getEnvDuration("CHANNELPICK_PROBE_TIMEOUT", 10*time.Second),
		ProbeConcurrency: getEnvInt("CHANNELPICK_PROBE_CONCURRENCY", 10),
		HostConcurrency:  getEnvInt("CHANNELPICK_HOST_CONCURRENCY", 4),
		HostRate:         getEnvFloat("CHANNELPICK_HOST_RATE", 0),
		BatchSize:        getEnvInt("CHANNELPICK_BATCH_SIZE", 10),
		RunDeadline:      getEnvDuration("CHANNELPICK_RUN_DEADLINE", 0),
		SinkAttempts:     getEnvInt("CHANNELPICK_SINK_ATTEMPTS", 3),
		SinkBackoff:      getEnvDuration("CHANNELPICK_SINK_BACKOFF", time.Second),
		FetchTimeout:     getEnvDuration("CHANNELPICK_FETCH_TIMEOUT", 30*time.Second),
		MetricsAddr:      os.Getenv("CHANNELPICK_METRICS_ADDR"),
	}
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = 10
	}
	if c.HostConcurrency <= 0 {
		c.HostConcurrency = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	return c
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
