package adminauth

import (
	"strings"
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ADMINAUTH_TOKEN_SECRET", strings.Repeat("x", 40))
	t.Setenv("ADMINAUTH_TOKEN_ISSUER", "stratum")
	t.Setenv("ADMINAUTH_ACCESS_TTL", "10m")
	t.Setenv("ADMINAUTH_MFA_CHALLENGE_ATTEMPTS", "3")
	t.Setenv("ADMINAUTH_AUDIT_ENABLED", "false")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Token.Issuer != "stratum" {
		t.Errorf("issuer = %q", cfg.Token.Issuer)
	}
	if cfg.Token.AccessTTL != 10*time.Minute {
		t.Errorf("access ttl = %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.Audience != "admin-api" {
		t.Errorf("audience default lost: %q", cfg.Token.Audience)
	}
	if cfg.MFA.ChallengeMaxAttempts != 3 {
		t.Errorf("challenge attempts = %d", cfg.MFA.ChallengeMaxAttempts)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should be disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Token.Secret = []byte(strings.Repeat("k", 32))
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Token.Secret = []byte("short") }},
		{"empty issuer", func(c *Config) { c.Token.Issuer = "" }},
		{"access ttl not below refresh", func(c *Config) { c.Token.AccessTTL = c.Token.RefreshTTL }},
		{"negative refresh ttl", func(c *Config) { c.Token.RefreshTTL = -time.Hour }},
		{"wrong digit count", func(c *Config) { c.MFA.Digits = 8 }},
		{"zero period", func(c *Config) { c.MFA.Period = 0 }},
		{"short backup codes", func(c *Config) { c.MFA.BackupCodeLength = 4 }},
		{"zero challenge attempts", func(c *Config) { c.MFA.ChallengeMaxAttempts = 0 }},
		{"zero audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
