package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{"DATABASE_URL": "postgres://x", "APP_URL": "https://parts.example.com"}),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if cfg.Port != "8080" || cfg.Storage.Provider != "local" || cfg.SystemLogStore != "postgres" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Email.Port != 587 || !cfg.Email.StartTLS {
		t.Fatalf("unexpected email defaults: %+v", cfg.Email)
	}
	missing := cfg.MissingRequired()
	if len(missing) != 1 || missing[0] != "AUTH_SECRET" {
		t.Fatalf("expected only AUTH_SECRET missing, got %v", missing)
	}
}

func TestParseRate(t *testing.T) {
	limit, period, err := ParseRate("5-15m")
	if err != nil || limit != 5 || period != 15*time.Minute {
		t.Fatalf("got %d %v %v", limit, period, err)
	}
	for _, bad := range []string{"", "5", "x-1m", "5-forever", "0-1m"} {
		if _, _, err := ParseRate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
