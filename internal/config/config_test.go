package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.ProbeTimeout != 10*time.Second {
		t.Errorf("ProbeTimeout = %v", c.ProbeTimeout)
	}
	if c.ProbeConcurrency != 10 {
		t.Errorf("ProbeConcurrency = %d", c.ProbeConcurrency)
	}
	if c.HostConcurrency != 4 {
		t.Errorf("HostConcurrency = %d", c.HostConcurrency)
	}
	if c.BatchSize != 10 {
		t.Errorf("BatchSize = %d", c.BatchSize)
	}
	if c.RunDeadline != 0 {
		t.Errorf("RunDeadline = %v", c.RunDeadline)
	}
	if len(c.ManifestURLs) != 0 {
		t.Errorf("ManifestURLs = %v", c.ManifestURLs)
	}
	if c.CheckpointPath != "./channels_final.json" {
		t.Errorf("CheckpointPath = %q", c.CheckpointPath)
	}
}

func TestLoad_manifestURLs(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANNELPICK_MANIFEST_URLS", "http://a/get.php, http://b/get.php ,")
	c := Load()
	if len(c.ManifestURLs) != 2 {
		t.Fatalf("ManifestURLs = %v", c.ManifestURLs)
	}
	if c.ManifestURLs[0] != "http://a/get.php" || c.ManifestURLs[1] != "http://b/get.php" {
		t.Errorf("ManifestURLs = %v", c.ManifestURLs)
	}
}

func TestLoad_overrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANNELPICK_PROBE_TIMEOUT", "3s")
	os.Setenv("CHANNELPICK_PROBE_CONCURRENCY", "25")
	os.Setenv("CHANNELPICK_HOST_RATE", "2.5")
	os.Setenv("CHANNELPICK_RUN_DEADLINE", "5m")
	c := Load()
	if c.ProbeTimeout != 3*time.Second {
		t.Errorf("ProbeTimeout = %v", c.ProbeTimeout)
	}
	if c.ProbeConcurrency != 25 {
		t.Errorf("ProbeConcurrency = %d", c.ProbeConcurrency)
	}
	if c.HostRate != 2.5 {
		t.Errorf("HostRate = %v", c.HostRate)
	}
	if c.RunDeadline != 5*time.Minute {
		t.Errorf("RunDeadline = %v", c.RunDeadline)
	}
}

func TestLoad_invalidValuesFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHANNELPICK_PROBE_TIMEOUT", "soon")
	os.Setenv("CHANNELPICK_BATCH_SIZE", "-3")
	c := Load()
	if c.ProbeTimeout != 10*time.Second {
		t.Errorf("ProbeTimeout = %v", c.ProbeTimeout)
	}
	if c.BatchSize != 10 {
		t.Errorf("BatchSize = %d; negative values should fall back", c.BatchSize)
	}
}
