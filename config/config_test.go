package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	if cfg.Server.StoreDriver != "postgres" || cfg.Redis.Driver != "redis" {
		t.Errorf("drivers %q/%q", cfg.Server.StoreDriver, cfg.Redis.Driver)
	}
	if cfg.Redis.CacheTTL != time.Hour {
		t.Errorf("cache ttl %s", cfg.Redis.CacheTTL)
	}
	if cfg.Postgres.LockTimeout != 5*time.Second {
		t.Errorf("lock timeout %s", cfg.Postgres.LockTimeout)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("request timeout %s", cfg.Server.RequestTimeout)
	}
	if cfg.Kafka.Enabled || cfg.Elastic.Enabled || cfg.Reconcile.Interval != 0 {
		t.Error("optional integrations should be off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PRODUCT_CACHE_TTL", "90s")
	t.Setenv("POSTGRES_LOCK_TIMEOUT", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RECONCILE_INTERVAL", "10m")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	cfg := LoadEnv()

	if cfg.Server.StoreDriver != "memory" {
		t.Errorf("store driver %q", cfg.Server.StoreDriver)
	}
	if cfg.Redis.CacheTTL != 90*time.Second {
		t.Errorf("cache ttl %s", cfg.Redis.CacheTTL)
	}
	if cfg.Postgres.LockTimeout != 2*time.Second {
		t.Errorf("lock timeout %s", cfg.Postgres.LockTimeout)
	}
	if !cfg.Kafka.Enabled || !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("kafka %+v", cfg.Kafka)
	}
	if cfg.Reconcile.Interval != 10*time.Minute {
		t.Errorf("reconcile interval %s", cfg.Reconcile.Interval)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("request timeout %s", cfg.Server.RequestTimeout)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("invalid int should fall back, got %d", cfg.Redis.DB)
	}
}
