package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/joestump/group-blocks/internal/block"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	v := newViper(t, `
db:
  driver: sqlite3
  dsn: file:test.db
`)
	cfg, err := fromViper(v)
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.SessionLifetime != 720*time.Hour {
		t.Errorf("SessionLifetime = %v, want 720h", cfg.SessionLifetime)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.DefaultLocale != "en-US" {
		t.Errorf("DefaultLocale = %q, want en-US", cfg.DefaultLocale)
	}
	if len(cfg.Blocks) != 2 || cfg.Blocks[0] != block.Food || cfg.Blocks[1] != block.Menu {
		t.Errorf("Blocks = %+v, want food and menu", cfg.Blocks)
	}
	if err := cfg.RequireOIDC(); err == nil {
		t.Error("RequireOIDC() = nil, want error when issuer is unset")
	}
}

func TestFromViper_Blocks(t *testing.T) {
	v := newViper(t, `
db:
  driver: sqlite3
  dsn: file:test.db
blocks:
  - bundle: event
    label: Add Event
`)
	cfg, err := fromViper(v)
	if err != nil {
		t.Fatalf("fromViper: %v", err)
	}
	want := block.ContentType{Bundle: "event", Label: "Add Event"}
	if len(cfg.Blocks) != 1 || cfg.Blocks[0] != want {
		t.Errorf("Blocks = %+v, want [%+v]", cfg.Blocks, want)
	}
}

func TestFromViper_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing driver", "db:\n  dsn: x\n", "GB_DB_DRIVER"},
		{"missing dsn", "db:\n  driver: sqlite3\n", "GB_DB_DSN"},
		{"bad lifetime", "db:\n  driver: sqlite3\n  dsn: x\nsession:\n  lifetime: forever\n", "GB_SESSION_LIFETIME"},
		{"bad block", "db:\n  driver: sqlite3\n  dsn: x\nblocks:\n  - bundle: Bad\n    label: x\n", "invalid blocks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromViper(newViper(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRequireOIDC(t *testing.T) {
	cfg := &Config{}
	cfg.OIDC.Issuer = "https://issuer"
	cfg.OIDC.ClientID = "id"
	cfg.OIDC.ClientSecret = "secret"
	if err := cfg.RequireOIDC(); err == nil || !strings.Contains(err.Error(), "REDIRECT_URL") {
		t.Errorf("err = %v, want redirect url error", err)
	}
	cfg.OIDC.RedirectURL = "https://app/auth/callback"
	if err := cfg.RequireOIDC(); err != nil {
		t.Errorf("RequireOIDC: %v", err)
	}
}
