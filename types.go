package adminauth

import (
	"context"
	"time"

	"github.com/stratumhq/adminauth/permission"
	"github.com/stratumhq/adminauth/token"
)

// Principal is the account record consumed by the core. The surrounding
// platform owns creation and mutation; this core reads it and, for the MFA
// lifecycle, asks the store for atomic updates.
//
// Invariant: MFASecret and MFAEnabled are set and cleared together, never
// independently. [DirectoryStore.EnableMFA] and [DirectoryStore.DisableMFA]
// are the only mutation points and must be atomic.
type Principal struct {
	ID           string
	Email        string
	TenantID     string // empty = platform level (super-admin eligible)
	PasswordHash string
	SuperAdmin   bool
	Locked       bool
	Deleted      bool
	MFAEnabled   bool
	MFASecret    []byte
}

// PlatformLevel reports whether the principal belongs to no tenant.
func (p Principal) PlatformLevel() bool {
	return p.TenantID == ""
}

// Role is a named bundle of permission grants, optionally tenant-scoped.
type Role struct {
	ID       string
	Name     string
	TenantID string // empty = global/system scope
	System   bool
	Grants   []permission.Pattern
}

// RoleAssignment joins a principal to a role. Duplicate assignment of the
// same role is a conflict, surfaced by the store as [ErrConflict].
type RoleAssignment struct {
	PrincipalID string
	RoleID      string
	AssignedAt  time.Time
}

// BackupCodeRecord is a stored backup code: a per-principal salted SHA-256
// hash, never the code itself.
type BackupCodeRecord struct {
	Hash [32]byte
}

// DirectoryStore is the read-mostly contract the core needs from the
// platform's relational store. Lookup methods return [ErrNotFound] when no
// row matches; MFA mutations are atomic (secret, flag, and codes move
// together); ConsumeBackupCode is an atomic remove-if-present so exactly one
// of two concurrent redemptions of the same code wins.
type DirectoryStore interface {
	GetPrincipalByEmail(ctx context.Context, email string) (Principal, error)
	GetPrincipalByID(ctx context.Context, id string) (Principal, error)

	GetRolesForPrincipal(ctx context.Context, principalID string) ([]Role, error)
	GetRolesByName(ctx context.Context, tenantID string, names []string) ([]Role, error)
	AssignRole(ctx context.Context, principalID, roleID string) error

	UpdatePasswordHash(ctx context.Context, principalID, newHash string) error

	EnableMFA(ctx context.Context, principalID string, secret []byte, codes []BackupCodeRecord) error
	DisableMFA(ctx context.Context, principalID string) error
	ReplaceBackupCodes(ctx context.Context, principalID string, codes []BackupCodeRecord) error
	ConsumeBackupCode(ctx context.Context, principalID string, codeHash [32]byte) (bool, error)
	CountBackupCodes(ctx context.Context, principalID string) (int, error)
}

// Identity is the per-request authenticated context derived from a verified
// access token. It is threaded explicitly through every authorization call;
// nothing in the core resolves a "current user" ambiently.
type Identity struct {
	PrincipalID string
	TenantID    string // empty = platform level
	Roles       []string
	SuperAdmin  bool
	MFAEnabled  bool
}

// PlatformLevel reports whether the identity belongs to no tenant.
func (id *Identity) PlatformLevel() bool {
	return id.TenantID == ""
}

// LoginResult is returned by [Engine.Login]. Either MFARequired is true and
// PrincipalID carries the continuation handle, or Tokens is populated.
type LoginResult struct {
	MFARequired bool
	PrincipalID string
	Tokens      *token.Pair
}

// MFAEnrollment is the side-effect-free output of [Engine.BeginMFAEnrollment].
// Nothing is persisted until [Engine.ConfirmMFAEnrollment] succeeds.
type MFAEnrollment struct {
	// Secret is the base32-encoded pending TOTP secret.
	Secret string
	// ProvisioningURI is the otpauth:// URI, encodable as a QR image.
	ProvisioningURI string
	// BackupCodes are the formatted one-time codes to show exactly once.
	BackupCodes []string
}
