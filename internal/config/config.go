// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the Telegram
// credentials and channel wiring, the coin economy knobs, the ops HTTP
// server settings, logging, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Channel identifies a force-join channel, addressed either by @username
// (public) or by numeric chat ID (private, with a static invite URL).
type Channel struct {
	ChatID    int64  // private channels
	Username  string // public channels, without the leading '@'
	Name      string // display name for the join button
	InviteURL string // explicit invite link; derived for public channels
}

// JoinURL returns the link a user should follow to join the channel.
func (c Channel) JoinURL() string {
	if c.InviteURL != "" {
		return c.InviteURL
	}
	return "https://t.me/" + c.Username
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	Token          string    // bot token
	VaultChannelID int64     // private channel holding the media
	LogChannelID   int64     // optional audit channel (0 disables)
	OwnerID        int64     // always-privileged account
	ForceJoin      []Channel // channels required before use

	// Links shown in keyboards
	DeveloperURL    string
	SupportURL      string
	TermsURL        string
	WelcomeImageURL string

	// Economy
	StartingBalance int64         // coins granted to a fresh account
	ReferralReward  int64         // coins per successful referral
	CostPerItem     int64         // coins per delivered item
	BatchSize       int           // items per media request
	Retention       time.Duration // how long delivered copies survive
	OnExhausted     string        // stop|reset

	// Abuse control
	RateRPS        float64 // per-user dispense tokens per second
	RateBurst      int     // per-user dispense bucket size
	BroadcastRPS   float64 // broadcast fan-out tokens per second
	BroadcastBurst int     // broadcast bucket size

	// Ops HTTP server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	GinMode           string // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool

	// App
	DBPath string // SQLite path

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	forceJoin, err := parseChannels(getenv("FORCE_JOIN_CHANNELS", ""))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		// Telegram
		Token:          getenv("TELEGRAM_BOT_TOKEN", ""),
		VaultChannelID: getint64("VAULT_CHANNEL_ID", 0),
		LogChannelID:   getint64("LOG_CHANNEL_ID", 0),
		OwnerID:        getint64("OWNER_ID", 0),
		ForceJoin:      forceJoin,

		// Links
		DeveloperURL:    getenv("DEVELOPER_URL", ""),
		SupportURL:      getenv("SUPPORT_URL", ""),
		TermsURL:        getenv("TERMS_URL", ""),
		WelcomeImageURL: getenv("WELCOME_IMAGE_URL", ""),

		// Economy
		StartingBalance: getint64("STARTING_BALANCE", 40),
		ReferralReward:  getint64("REFERRAL_REWARD", 10),
		CostPerItem:     getint64("COST_PER_ITEM", 1),
		BatchSize:       getint("BATCH_SIZE", 4),
		Retention:       getdur("RETENTION_WINDOW", time.Hour),
		OnExhausted:     strings.ToLower(getenv("ON_EXHAUSTED", "stop")),

		// Abuse control
		RateRPS:        getfloat("RATE_RPS", 0.5),
		RateBurst:      getint("RATE_BURST", 2),
		BroadcastRPS:   getfloat("BROADCAST_RPS", 20.0),
		BroadcastBurst: getint("BROADCAST_BURST", 5),

		// Ops HTTP server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "vault.db"),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-vault-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	if strings.TrimSpace(cfg.Token) == "" {
		return cfg, errors.New("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if cfg.VaultChannelID == 0 {
		return cfg, errors.New("VAULT_CHANNEL_ID must be set")
	}
	if cfg.OwnerID == 0 {
		return cfg, errors.New("OWNER_ID must be set")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.StartingBalance < 0 {
		return cfg, errors.New("STARTING_BALANCE must be >= 0")
	}
	if cfg.ReferralReward < 0 {
		return cfg, errors.New("REFERRAL_REWARD must be >= 0")
	}
	if cfg.CostPerItem < 1 {
		return cfg, errors.New("COST_PER_ITEM must be >= 1")
	}
	if cfg.BatchSize < 1 {
		return cfg, errors.New("BATCH_SIZE must be >= 1")
	}
	if cfg.Retention <= 0 {
		return cfg, errors.New("RETENTION_WINDOW must be > 0")
	}
	switch cfg.OnExhausted {
	case "stop", "reset":
	default:
		return cfg, errors.New("ON_EXHAUSTED must be stop or reset")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.BroadcastRPS <= 0 {
		return cfg, errors.New("BROADCAST_RPS must be > 0")
	}
	if cfg.BroadcastBurst < 1 {
		return cfg, errors.New("BROADCAST_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// parseChannels parses FORCE_JOIN_CHANNELS. The value is a comma-separated
// list of entries of the form
//
//	@username|Display Name
//	-1001234567890|Display Name|https://t.me/+invitehash
//
// Public channels are addressed by @username; private ones need the numeric
// chat ID and a static invite link.
func parseChannels(s string) ([]Channel, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []Channel
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		ref := strings.TrimSpace(parts[0])

		var ch Channel
		if strings.HasPrefix(ref, "@") {
			ch.Username = strings.TrimPrefix(ref, "@")
		} else {
			id, err := strconv.ParseInt(ref, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("FORCE_JOIN_CHANNELS: invalid channel ref %q", ref)
			}
			ch.ChatID = id
		}
		if len(parts) > 1 {
			ch.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			ch.InviteURL = strings.TrimSpace(parts[2])
		}
		if ch.ChatID != 0 && ch.InviteURL == "" {
			return nil, fmt.Errorf("FORCE_JOIN_CHANNELS: private channel %d needs an invite URL", ch.ChatID)
		}
		if ch.Name == "" {
			if ch.Username != "" {
				ch.Name = "@" + ch.Username
			} else {
				ch.Name = "Private Channel"
			}
		}
		out = append(out, ch)
	}
	return out, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
