package core

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

type globalConfigValues struct {
	Host        string
	Port        int
	Timeout     int
	LogLevel    string
	TTL         int
	ReviewDays  int
	MaxDeclines int
}

func genGlobalConfigValues(t *rapid.T) globalConfigValues {
	return globalConfigValues{
		Host:        rapid.StringMatching(`[a-z]{1,10}\.example\.com`).Draw(t, "host"),
		Port:        rapid.IntRange(1024, 65535).Draw(t, "port"),
		Timeout:     rapid.IntRange(1, 300).Draw(t, "timeout"),
		LogLevel:    rapid.SampledFrom([]string{"trace", "debug", "info", "warn", "error"}).Draw(t, "logLevel"),
		TTL:         rapid.IntRange(1, 720).Draw(t, "ttl"),
		ReviewDays:  rapid.IntRange(0, 30).Draw(t, "reviewDays"),
		MaxDeclines: rapid.IntRange(0, 10).Draw(t, "maxDeclines"),
	}
}

// Feature: configuration, Property 1: values written to .taskdesk.yaml are
// read back unchanged and always validate.
func TestConfigRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		vals := genGlobalConfigValues(rt)
		dir := t.TempDir()
		writeFile(t, dir, ".taskdesk.yaml", fmt.Sprintf(`backend_url: "http://%s:%d"
request_timeout_seconds: %d
log_level: %s
server:
  token_ttl_hours: %d
notifications:
  alerts:
    review_days: %d
    max_declines: %d
`, vals.Host, vals.Port, vals.Timeout, vals.LogLevel, vals.TTL, vals.ReviewDays, vals.MaxDeclines))

		cm := NewConfigurationManager(dir)
		cfg, err := cm.LoadGlobalConfig()
		if err != nil {
			rt.Fatalf("loading config: %v", err)
		}
		if want := fmt.Sprintf("http://%s:%d", vals.Host, vals.Port); cfg.BackendURL != want {
			rt.Fatalf("BackendURL = %q, want %q", cfg.BackendURL, want)
		}
		if cfg.RequestTimeout != vals.Timeout || cfg.LogLevel != vals.LogLevel || cfg.Server.TokenTTLHours != vals.TTL {
			rt.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.Notifications.Alerts.ReviewDays != vals.ReviewDays || cfg.Notifications.Alerts.MaxDeclines != vals.MaxDeclines {
			rt.Fatalf("unexpected alerts: %+v", cfg.Notifications.Alerts)
		}
		if err := cm.ValidateConfig(cfg); err != nil {
			rt.Fatalf("generated config should validate: %v", err)
		}
	})
}

// Feature: configuration, Property 2: a negative threshold never validates.
func TestConfigNegativeThresholdProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := DefaultGlobalConfig()
		n := rapid.IntRange(-100, -1).Draw(rt, "n")
		if rapid.Bool().Draw(rt, "reviewDays") {
			cfg.Notifications.Alerts.ReviewDays = n
		} else {
			cfg.Notifications.Alerts.MaxDeclines = n
		}
		if err := NewConfigurationManager("").ValidateConfig(cfg); err == nil {
			rt.Fatalf("threshold %d should not validate", n)
		}
	})
}
