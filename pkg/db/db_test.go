package db

import (
	"strings"
	"testing"

	"commandmail/pkg/config"
)

func TestDSN_PrefersURL(t *testing.T) {
	cfg := config.DBConfig{URL: "postgres://a:b@db:5432/x", Host: "ignored"}
	if got := DSN(cfg); got != cfg.URL {
		t.Errorf("DSN() = %q, want %q", got, cfg.URL)
	}
}

func TestDSN_FromFields(t *testing.T) {
	cfg := config.DBConfig{Host: "db", Port: 5433, User: "mail", Password: "p@ss", Name: "inbox"}
	got := DSN(cfg)
	for _, want := range []string{"postgres://", "db:5433", "/inbox", "sslmode=disable", "mail:"} {
		if !strings.Contains(got, want) {
			t.Errorf("DSN() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "p@ss@") {
		t.Errorf("DSN() = %q, password must be escaped", got)
	}
}

func TestCommandOf(t *testing.T) {
	tests := map[string]string{
		"SELECT id FROM emails": "SELECT",
		"  update emails set x": "UPDATE",
		"":                      "unknown",
	}
	for sql, want := range tests {
		if got := commandOf(sql); got != want {
			t.Errorf("commandOf(%q) = %q, want %q", sql, got, want)
		}
	}
}
