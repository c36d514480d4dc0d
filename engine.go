package adminauth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stratumhq/adminauth/password"
	"github.com/stratumhq/adminauth/permission"
	"github.com/stratumhq/adminauth/token"
)

// Engine wires the authentication and authorization core together. Configure
// it once via [NewEngine] and treat it as immutable afterwards; all methods
// are safe for concurrent use.
type Engine struct {
	config     Config
	directory  DirectoryStore
	hasher     *password.Hasher
	totp       *totpManager
	tokens     *token.Manager
	challenges *mfaChallengeStore
	catalog    *permission.Catalog
	audit      *AuditRecorder
	metrics    *Metrics
}

// Dependencies carries the collaborators an Engine needs. Directory and
// Redis are required; the rest default sensibly (platform catalog, no-op
// audit sink, no metrics).
type Dependencies struct {
	Directory DirectoryStore
	// Redis holds pending MFA login challenges.
	Redis     *redis.Client
	Catalog   *permission.Catalog
	AuditSink AuditSink
	Metrics   *Metrics
}

// NewEngine validates cfg and deps and assembles the core.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("%w: directory store is required", ErrEngineNotReady)
	}
	if deps.Redis == nil {
		return nil, fmt.Errorf("%w: redis client is required for mfa challenges", ErrEngineNotReady)
	}

	hasher, err := password.NewHasher(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewManager(token.Config{
		Secret:     cfg.Token.Secret,
		Issuer:     cfg.Token.Issuer,
		Audience:   cfg.Token.Audience,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Leeway:     cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	catalog := deps.Catalog
	if catalog == nil {
		catalog = permission.DefaultCatalog()
	}

	return &Engine{
		config:     cfg,
		directory:  deps.Directory,
		hasher:     hasher,
		totp:       newTOTPManager(cfg.MFA),
		tokens:     tokens,
		challenges: newMFAChallengeStore(deps.Redis),
		catalog:    catalog,
		audit:      NewAuditRecorder(cfg.Audit, deps.AuditSink, deps.Metrics),
		metrics:    deps.Metrics,
	}, nil
}

// Close drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditRecorder exposes the recorder so mutation handlers outside the core
// can report into the same trail.
func (e *Engine) AuditRecorder() *AuditRecorder {
	return e.audit
}

// AuditDropped reports how many audit entries were shed so far.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Catalog returns the permission catalog the engine validates grants against.
func (e *Engine) Catalog() *permission.Catalog {
	return e.catalog
}

// Login verifies email and password. Every credential failure (unknown
// email, soft-deleted account, locked account, wrong password) returns the
// same [ErrInvalidCredentials]; the distinction exists only in the audit
// trail. On success the result either carries a token pair or pauses in an
// MFA challenge keyed by the principal id.
func (e *Engine) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	if email == "" || pass == "" {
		e.metrics.login("invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	p, err := e.directory.GetPrincipalByEmail(ctx, email)
	if err != nil {
		// Burn a hash comparison so unknown accounts cost the same as a
		// mismatch.
		_, _ = e.hasher.Verify(pass, "")
		e.metrics.login("invalid_credentials")
		e.recordLoginFailure(ctx, "", "", "unknown_email")
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(pass, p.PasswordHash)
	if err != nil || !ok {
		e.metrics.login("invalid_credentials")
		e.recordLoginFailure(ctx, p.ID, p.TenantID, "password_mismatch")
		return nil, ErrInvalidCredentials
	}
	// Locked and deleted accounts fail after the hash check, observably
	// identical to a wrong password.
	if p.Deleted {
		e.metrics.login("invalid_credentials")
		e.recordLoginFailure(ctx, p.ID, p.TenantID, "account_deleted")
		return nil, ErrInvalidCredentials
	}
	if p.Locked {
		e.metrics.login("invalid_credentials")
		e.recordLoginFailure(ctx, p.ID, p.TenantID, "account_locked")
		return nil, ErrInvalidCredentials
	}

	if e.config.Password.UpgradeOnLogin && e.hasher.NeedsRehash(p.PasswordHash) {
		if upgraded, hashErr := e.hasher.Hash(pass); hashErr == nil {
			// Best effort; a failed upgrade must not block the login.
			if updErr := e.directory.UpdatePasswordHash(ctx, p.ID, upgraded); updErr != nil {
				log.Print("adminauth: password hash upgrade failed")
			}
		}
	}

	if p.MFAEnabled {
		record := &mfaChallenge{
			TenantID:  p.TenantID,
			ExpiresAt: time.Now().Add(e.config.MFA.ChallengeTTL).Unix(),
		}
		if err := e.challenges.Save(ctx, p.ID, record, e.config.MFA.ChallengeTTL); err != nil {
			e.metrics.login("error")
			return nil, ErrChallengeUnavailable
		}
		e.metrics.login("mfa_required")
		e.audit.Record(ctx, AuditEvent{
			Actor:    p.ID,
			TenantID: p.TenantID,
			Action:   AuditMFAChallenge,
			Resource: "principal",
		})
		return &LoginResult{MFARequired: true, PrincipalID: p.ID}, nil
	}

	pair, err := e.issueTokens(ctx, p)
	if err != nil {
		e.metrics.login("error")
		return nil, err
	}

	e.metrics.login("success")
	e.audit.Record(ctx, AuditEvent{
		Actor:    p.ID,
		TenantID: p.TenantID,
		Action:   AuditLoginSuccess,
		Resource: "principal",
	})
	return &LoginResult{Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a fresh pair. Roles are re-read from
// the store, so a role change takes effect here rather than on outstanding
// access tokens. A principal that has become locked or deleted cannot
// refresh.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		log.Printf("adminauth: refresh rejected: %v", err)
		return nil, ErrUnauthenticated
	}

	p, err := e.directory.GetPrincipalByID(ctx, claims.Subject)
	if err != nil || p.Deleted || p.Locked {
		return nil, ErrUnauthenticated
	}

	pair, err := e.issueTokens(ctx, p)
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, AuditEvent{
		Actor:    p.ID,
		TenantID: p.TenantID,
		Action:   AuditTokenRefreshed,
		Resource: "principal",
	})
	return pair, nil
}

// VerifyAccess validates a bearer access token and derives the per-request
// identity. Every failure is [ErrUnauthenticated]; the specific cause is
// logged server-side only.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := e.tokens.VerifyAccess(accessToken)
	if err != nil {
		e.metrics.tokenVerification("invalid")
		log.Printf("adminauth: access token rejected: %v", err)
		return nil, ErrUnauthenticated
	}

	e.metrics.tokenVerification("ok")
	return &Identity{
		PrincipalID: claims.Subject,
		TenantID:    claims.TenantID,
		Roles:       claims.Roles,
		SuperAdmin:  claims.SuperAdmin,
		MFAEnabled:  claims.MFAEnabled,
	}, nil
}

// ChangePassword re-verifies the current password before storing the new
// hash.
func (e *Engine) ChangePassword(ctx context.Context, principalID, oldPassword, newPassword string) error {
	p, err := e.directory.GetPrincipalByID(ctx, principalID)
	if err != nil {
		return ErrNotFound
	}
	if p.Deleted || p.Locked {
		return ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(oldPassword, p.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := e.directory.UpdatePasswordHash(ctx, principalID, newHash); err != nil {
		return err
	}

	e.audit.Record(ctx, AuditEvent{
		Actor:      p.ID,
		TenantID:   p.TenantID,
		Action:     AuditPasswordChanged,
		Resource:   "principal",
		ResourceID: p.ID,
	})
	return nil
}

// issueTokens snapshots the principal's current roles into a signed pair.
func (e *Engine) issueTokens(ctx context.Context, p Principal) (*token.Pair, error) {
	roles, err := e.directory.GetRolesForPrincipal(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	pair, err := e.tokens.IssuePair(token.Subject{
		PrincipalID: p.ID,
		TenantID:    p.TenantID,
		Roles:       names,
		SuperAdmin:  p.SuperAdmin,
		MFAEnabled:  p.MFAEnabled,
	})
	if err != nil {
		return nil, err
	}

	e.metrics.tokenIssued(string(token.KindAccess))
	e.metrics.tokenIssued(string(token.KindRefresh))
	return &pair, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, principalID, tenantID, reason string) {
	e.audit.Record(ctx, AuditEvent{
		Actor:    principalID,
		TenantID: tenantID,
		Action:   AuditLoginFailure,
		Resource: "principal",
		Metadata: map[string]string{"reason": reason},
	})
}
