package adminauth

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every tunable of the core, grouped by area. Construct it
// with [DefaultConfig] or [ConfigFromEnv] and treat it as immutable once the
// Engine is built.
type Config struct {
	Token    TokenConfig
	Password PasswordConfig
	MFA      MFAConfig
	Audit    AuditConfig
}

// TokenConfig configures the token service.
type TokenConfig struct {
	// Secret signs both token kinds. Minimum 32 bytes.
	Secret   []byte `env:"ADMINAUTH_TOKEN_SECRET"`
	Issuer   string `env:"ADMINAUTH_TOKEN_ISSUER" envDefault:"adminauth"`
	Audience string `env:"ADMINAUTH_TOKEN_AUDIENCE" envDefault:"admin-api"`
	// AccessTTL is also the revocation window: a role revoked mid-lifetime
	// stays usable on outstanding access tokens until they expire. Shorten
	// this rather than adding a revocation store.
	AccessTTL  time.Duration `env:"ADMINAUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"ADMINAUTH_REFRESH_TTL" envDefault:"168h"`
	Leeway     time.Duration `env:"ADMINAUTH_TOKEN_LEEWAY" envDefault:"0"`
}

// PasswordConfig configures credential hashing.
type PasswordConfig struct {
	Cost int `env:"ADMINAUTH_BCRYPT_COST" envDefault:"12"`
	// UpgradeOnLogin re-hashes stored credentials at the configured cost
	// after a successful verification against a weaker hash.
	UpgradeOnLogin bool `env:"ADMINAUTH_PASSWORD_UPGRADE_ON_LOGIN" envDefault:"true"`
}

// MFAConfig configures TOTP, backup codes, and the login challenge.
type MFAConfig struct {
	// Issuer appears in the otpauth:// provisioning URI.
	Issuer string `env:"ADMINAUTH_MFA_ISSUER" envDefault:"adminauth"`
	Digits int    `env:"ADMINAUTH_MFA_DIGITS" envDefault:"6"`
	// Period is the TOTP time step in seconds.
	Period int `env:"ADMINAUTH_MFA_PERIOD" envDefault:"30"`
	// Skew is the accepted window in steps on each side of now.
	Skew             int `env:"ADMINAUTH_MFA_SKEW" envDefault:"1"`
	BackupCodeCount  int `env:"ADMINAUTH_MFA_BACKUP_CODES" envDefault:"8"`
	BackupCodeLength int `env:"ADMINAUTH_MFA_BACKUP_CODE_LENGTH" envDefault:"16"`
	// ChallengeTTL bounds how long a password-verified login may wait for
	// its second factor.
	ChallengeTTL         time.Duration `env:"ADMINAUTH_MFA_CHALLENGE_TTL" envDefault:"5m"`
	ChallengeMaxAttempts int           `env:"ADMINAUTH_MFA_CHALLENGE_ATTEMPTS" envDefault:"5"`
}

// AuditConfig configures the best-effort audit recorder.
type AuditConfig struct {
	Enabled    bool `env:"ADMINAUTH_AUDIT_ENABLED" envDefault:"true"`
	BufferSize int  `env:"ADMINAUTH_AUDIT_BUFFER" envDefault:"256"`
	// DropIfFull sheds events instead of blocking the mutation path when the
	// buffer is saturated. Drops are counted, never silent.
	DropIfFull bool `env:"ADMINAUTH_AUDIT_DROP_IF_FULL" envDefault:"true"`
	// BulkDeleteThreshold marks deletions touching more resources than this
	// as suspicious.
	BulkDeleteThreshold int `env:"ADMINAUTH_AUDIT_BULK_DELETE_THRESHOLD" envDefault:"10"`
	// HighValueThreshold marks approvals above this monetary amount as
	// suspicious. Zero disables the heuristic.
	HighValueThreshold float64 `env:"ADMINAUTH_AUDIT_HIGH_VALUE_THRESHOLD" envDefault:"10000"`
}

// DefaultConfig returns the documented defaults with an empty signing secret,
// which the caller must fill in.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:     "adminauth",
			Audience:   "admin-api",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Cost:           12,
			UpgradeOnLogin: true,
		},
		MFA: MFAConfig{
			Issuer:               "adminauth",
			Digits:               6,
			Period:               30,
			Skew:                 1,
			BackupCodeCount:      8,
			BackupCodeLength:     16,
			ChallengeTTL:         5 * time.Minute,
			ChallengeMaxAttempts: 5,
		},
		Audit: AuditConfig{
			Enabled:             true,
			BufferSize:          256,
			DropIfFull:          true,
			BulkDeleteThreshold: 10,
			HighValueThreshold:  10000,
		},
	}
}

// ConfigFromEnv loads configuration from ADMINAUTH_* environment variables.
// The signing secret is taken as the variable's raw bytes.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf([]byte(nil)): func(v string) (any, error) {
				return []byte(v), nil
			},
		},
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the Engine refuses to run with.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.Issuer == "" || c.Token.Audience == "" {
		return errors.New("token issuer and audience are required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.MFA.Digits != 6 {
		return errors.New("mfa digits must be 6")
	}
	if c.MFA.Period <= 0 || c.MFA.Skew < 0 {
		return errors.New("invalid mfa period or skew")
	}
	if c.MFA.BackupCodeCount <= 0 || c.MFA.BackupCodeLength < 8 {
		return errors.New("invalid backup code parameters")
	}
	if c.MFA.ChallengeTTL <= 0 || c.MFA.ChallengeMaxAttempts <= 0 {
		return errors.New("invalid mfa challenge parameters")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}
