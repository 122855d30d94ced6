package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the minimum environment a successful Load needs.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("VAULT_CHANNEL_ID", "-1001234567890")
	t.Setenv("OWNER_ID", "42")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + defaults + normalization ---

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("GIN_MODE", "weird")    // will normalize to "release"
	t.Setenv("BATCH_SIZE", "nope")   // parse failure -> default 4
	t.Setenv("RETENTION_WINDOW", "30m")
	t.Setenv("ON_EXHAUSTED", "RESET") // case-insensitive

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Token != "123:abc" || cfg.VaultChannelID != -1001234567890 || cfg.OwnerID != 42 {
		t.Fatalf("required fields mangled: %+v", cfg)
	}
	if cfg.StartingBalance != 40 || cfg.ReferralReward != 10 || cfg.CostPerItem != 1 {
		t.Fatalf("economy defaults wrong: %+v", cfg)
	}
	if cfg.BatchSize != 4 {
		t.Fatalf("BatchSize = %d, want default 4", cfg.BatchSize)
	}
	if cfg.Retention != 30*time.Minute {
		t.Fatalf("Retention = %v, want 30m", cfg.Retention)
	}
	if cfg.OnExhausted != "reset" {
		t.Fatalf("OnExhausted = %q, want reset", cfg.OnExhausted)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.DBPath != "vault.db" || cfg.Port != "8080" {
		t.Fatalf("app defaults wrong: db=%q port=%q", cfg.DBPath, cfg.Port)
	}
}

// --- validation failures ---

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing token",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": " "},
			wantErr: "TELEGRAM_BOT_TOKEN",
		},
		{
			name:    "missing vault channel",
			env:     map[string]string{"VAULT_CHANNEL_ID": "0"},
			wantErr: "VAULT_CHANNEL_ID",
		},
		{
			name:    "missing owner",
			env:     map[string]string{"OWNER_ID": "0"},
			wantErr: "OWNER_ID",
		},
		{
			name:    "bad exhaust policy",
			env:     map[string]string{"ON_EXHAUSTED": "loop"},
			wantErr: "ON_EXHAUSTED",
		},
		{
			name:    "zero batch",
			env:     map[string]string{"BATCH_SIZE": "0"},
			wantErr: "BATCH_SIZE",
		},
		{
			name:    "free media",
			env:     map[string]string{"COST_PER_ITEM": "0"},
			wantErr: "COST_PER_ITEM",
		},
		{
			name:    "negative retention",
			env:     map[string]string{"RETENTION_WINDOW": "-1h"},
			wantErr: "RETENTION_WINDOW",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

// --- FORCE_JOIN_CHANNELS parsing ---

func TestParseChannels(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := parseChannels("   ")
		if err != nil || got != nil {
			t.Fatalf("got %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("public and private", func(t *testing.T) {
		got, err := parseChannels("@updates|Updates, -1001234|VIP|https://t.me/+abc")
		if err != nil {
			t.Fatalf("parseChannels: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("parsed %d channels, want 2", len(got))
		}
		pub, priv := got[0], got[1]
		if pub.Username != "updates" || pub.Name != "Updates" || pub.ChatID != 0 {
			t.Fatalf("public channel wrong: %+v", pub)
		}
		if pub.JoinURL() != "https://t.me/updates" {
			t.Fatalf("public JoinURL = %q", pub.JoinURL())
		}
		if priv.ChatID != -1001234 || priv.InviteURL != "https://t.me/+abc" {
			t.Fatalf("private channel wrong: %+v", priv)
		}
		if priv.JoinURL() != "https://t.me/+abc" {
			t.Fatalf("private JoinURL = %q", priv.JoinURL())
		}
	})

	t.Run("default display names", func(t *testing.T) {
		got, err := parseChannels("@updates")
		if err != nil {
			t.Fatalf("parseChannels: %v", err)
		}
		if got[0].Name != "@updates" {
			t.Fatalf("default name = %q, want @updates", got[0].Name)
		}
	})

	t.Run("private channel requires invite URL", func(t *testing.T) {
		if _, err := parseChannels("-1001234|VIP"); err == nil {
			t.Fatalf("expected error for private channel without invite URL")
		}
	})

	t.Run("bad channel ref", func(t *testing.T) {
		if _, err := parseChannels("updates|Updates"); err == nil {
			t.Fatalf("expected error for ref without @ or numeric ID")
		}
	})
}
