package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" {
		t.Fatalf("unexpected addr: %q", c.Addr)
	}
	if c.RateLimitPerSec != 50 || c.RateLimitBurst != 100 {
		t.Fatalf("unexpected rate limits: %d/%d", c.RateLimitPerSec, c.RateLimitBurst)
	}
	if c.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected body limit: %d", c.MaxBodyBytes)
	}
	if c.ReadTimeout != 15*time.Second || c.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts: %v/%v", c.ReadTimeout, c.ShutdownTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENMASSE_ADDR", ":9090")
	t.Setenv("ENMASSE_PG_DSN", "postgres://localhost/enmasse")
	t.Setenv("ENMASSE_RATE_LIMIT_PER_SEC", "5")
	t.Setenv("ENMASSE_READ_TIMEOUT", "30s")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":9090" {
		t.Fatalf("unexpected addr: %q", c.Addr)
	}
	if c.PGDSN != "postgres://localhost/enmasse" {
		t.Fatalf("unexpected dsn: %q", c.PGDSN)
	}
	if c.RateLimitPerSec != 5 {
		t.Fatalf("unexpected rate limit: %d", c.RateLimitPerSec)
	}
	if c.ReadTimeout != 30*time.Second {
		t.Fatalf("unexpected read timeout: %v", c.ReadTimeout)
	}
}
