package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the two token types minted from one claim shape.
type Kind string

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived credential used to mint new pairs.
	KindRefresh Kind = "refresh"
)

const minSecretBytes = 32

// ErrInvalidToken is returned for every verification failure: bad signature,
// expiry, wrong issuer or audience, and kind mismatch. Callers must not
// distinguish the causes externally; the wrapped message exists for logs.
var ErrInvalidToken = errors.New("invalid token")

// Config holds signing material and token policy.
type Config struct {
	// Secret is the HS256 signing key. Minimum 32 bytes.
	Secret []byte
	Issuer string
	// Audience is pinned into every token and checked on verify.
	Audience string
	// AccessTTL bounds how long a revoked permission can remain usable on an
	// outstanding access token; shorten it for tighter revocation.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Claims is the signed bundle carried by both token kinds. Roles are the
// names resolved at issuance time; a refresh exchange re-reads the current
// roles from the store rather than trusting this copy.
type Claims struct {
	TenantID   string   `json:"tid,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	SuperAdmin bool     `json:"sup,omitempty"`
	MFAEnabled bool     `json:"mfa,omitempty"`
	Kind       Kind     `json:"knd"`
	jwt.RegisteredClaims
}

// Subject is the principal snapshot a pair is minted for.
type Subject struct {
	PrincipalID string
	TenantID    string // empty = platform level
	Roles       []string
	SuperAdmin  bool
	MFAEnabled  bool
}

// Pair is the issuance result handed back to login and refresh callers.
type Pair struct {
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
}

// Manager signs and verifies token pairs. Immutable after construction.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// IssuePair mints a fresh access/refresh pair for sub.
func (m *Manager) IssuePair(sub Subject) (Pair, error) {
	now := time.Now()
	accessExpiry := now.Add(m.config.AccessTTL)

	access, err := m.issue(sub, KindAccess, now, accessExpiry)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.issue(sub, KindRefresh, now, now.Add(m.config.RefreshTTL))
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:          access,
		RefreshToken:         refresh,
		AccessTokenExpiresAt: accessExpiry,
	}, nil
}

func (m *Manager) issue(sub Subject, kind Kind, now, expiry time.Time) (string, error) {
	if sub.PrincipalID == "" {
		return "", errors.New("principal id is required")
	}

	claims := Claims{
		TenantID:   sub.TenantID,
		Roles:      sub.Roles,
		SuperAdmin: sub.SuperAdmin,
		MFAEnabled: sub.MFAEnabled,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.PrincipalID,
			Issuer:    m.config.Issuer,
			Audience:  jwt.ClaimStrings{m.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// VerifyAccess parses and validates tokenStr as an access token.
func (m *Manager) VerifyAccess(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, KindAccess)
}

// VerifyRefresh parses and validates tokenStr as a refresh token.
func (m *Manager) VerifyRefresh(tokenStr string) (*Claims, error) {
	return m.verify(tokenStr, KindRefresh)
}

func (m *Manager) verify(tokenStr string, kind Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: kind mismatch: have %s, want %s", ErrInvalidToken, claims.Kind, kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}

// AccessTTL exposes the configured access lifetime for challenge bookkeeping.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}
