package adminauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stratumhq/adminauth/token"
)

// BeginMFAEnrollment generates a pending TOTP secret, its provisioning URI,
// and a fresh batch of backup codes. Nothing is persisted; the caller holds
// the returned enrollment until [Engine.ConfirmMFAEnrollment] proves the
// principal controls the secret.
func (e *Engine) BeginMFAEnrollment(ctx context.Context, principalID string) (*MFAEnrollment, error) {
	p, err := e.directory.GetPrincipalByID(ctx, principalID)
	if err != nil {
		return nil, ErrNotFound
	}
	if p.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	_, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	codes, _, err := generateBackupCodes(e.config.MFA, principalID)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	return &MFAEnrollment{
		Secret:          secretBase32,
		ProvisioningURI: e.totp.ProvisionURI(secretBase32, p.Email),
		BackupCodes:     codes,
	}, nil
}

// ConfirmMFAEnrollment validates code against the pending secret from
// [Engine.BeginMFAEnrollment] and, only then, persists secret, enabled flag,
// and backup codes in one atomic store call. Any failure leaves the principal
// exactly as it was.
func (e *Engine) ConfirmMFAEnrollment(ctx context.Context, principalID string, pending MFAEnrollment, code string) error {
	p, err := e.directory.GetPrincipalByID(ctx, principalID)
	if err != nil {
		return ErrNotFound
	}
	if p.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}

	if !e.totp.WellFormed(code) {
		return ErrMFACodeMalformed
	}
	secret, err := e.totp.DecodeSecret(pending.Secret)
	if err != nil {
		return ErrMFACodeInvalid
	}
	ok, err := e.totp.VerifyCode(secret, code, time.Now())
	if err != nil {
		return fmt.Errorf("verify totp code: %w", err)
	}
	if !ok {
		e.metrics.mfaChallenge("totp", "invalid")
		return ErrMFACodeInvalid
	}

	records := make([]BackupCodeRecord, 0, len(pending.BackupCodes))
	for _, c := range pending.BackupCodes {
		canonical := canonicalizeBackupCode(c)
		if canonical == "" {
			return ErrMFACodeInvalid
		}
		records = append(records, BackupCodeRecord{Hash: backupCodeHash(principalID, canonical)})
	}

	if err := e.directory.EnableMFA(ctx, principalID, secret, records); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}

	e.metrics.mfaChallenge("totp", "ok")
	e.audit.Record(ctx, AuditEvent{
		Actor:      principalID,
		TenantID:   p.TenantID,
		Action:     AuditMFAEnrolled,
		Resource:   "principal",
		ResourceID: principalID,
	})
	return nil
}

// CompleteMFALogin finishes a paused login with a TOTP code. The pending
// challenge is consumed on success; repeated failures burn it, forcing a
// fresh password login.
func (e *Engine) CompleteMFALogin(ctx context.Context, principalID, code string) (*token.Pair, error) {
	p, err := e.loadChallengePrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if !e.totp.WellFormed(code) {
		return nil, ErrMFACodeMalformed
	}
	ok, err := e.totp.VerifyCode(p.MFASecret, code, time.Now())
	if err != nil {
		return nil, fmt.Errorf("verify totp code: %w", err)
	}
	if !ok {
		e.metrics.mfaChallenge("totp", "invalid")
		return nil, e.challengeFailure(ctx, principalID)
	}

	pair, err := e.finishChallenge(ctx, p, "totp")
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// CompleteMFALoginWithBackupCode finishes a paused login with a single-use
// backup code and reports how many codes remain. When two redemptions of the
// same code race, the store's conditional delete lets exactly one through.
func (e *Engine) CompleteMFALoginWithBackupCode(ctx context.Context, principalID, code string) (*token.Pair, int, error) {
	p, err := e.loadChallengePrincipal(ctx, principalID)
	if err != nil {
		return nil, 0, err
	}

	canonical := canonicalizeBackupCode(code)
	if canonical == "" {
		return nil, 0, ErrMFACodeMalformed
	}

	consumed, err := e.directory.ConsumeBackupCode(ctx, principalID, backupCodeHash(principalID, canonical))
	if err != nil {
		return nil, 0, fmt.Errorf("consume backup code: %w", err)
	}
	if !consumed {
		e.metrics.mfaChallenge("backup_code", "invalid")
		if failErr := e.challengeFailure(ctx, principalID); !errors.Is(failErr, ErrMFACodeInvalid) {
			return nil, 0, failErr
		}
		return nil, 0, ErrBackupCodeInvalid
	}

	remaining, err := e.directory.CountBackupCodes(ctx, principalID)
	if err != nil {
		remaining = 0
	}

	pair, err := e.finishChallenge(ctx, p, "backup_code")
	if err != nil {
		return nil, 0, err
	}

	e.audit.Record(ctx, AuditEvent{
		Actor:      principalID,
		TenantID:   p.TenantID,
		Action:     AuditBackupCodesUsed,
		Resource:   "principal",
		ResourceID: principalID,
		Metadata:   map[string]string{"remaining": fmt.Sprintf("%d", remaining)},
	})
	return pair, remaining, nil
}

// DisableMFA clears secret, flag, and backup codes together after the
// current password is re-verified.
func (e *Engine) DisableMFA(ctx context.Context, principalID, pass string) error {
	p, err := e.reverifyPassword(ctx, principalID, pass)
	if err != nil {
		return err
	}
	if !p.MFAEnabled {
		return ErrMFANotEnabled
	}

	if err := e.directory.DisableMFA(ctx, principalID); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}

	e.audit.Record(ctx, AuditEvent{
		Actor:      principalID,
		TenantID:   p.TenantID,
		Action:     AuditMFADisabled,
		Resource:   "principal",
		ResourceID: principalID,
	})
	return nil
}

// RegenerateBackupCodes replaces the whole stored set atomically after the
// current password is re-verified. Codes from the old set stop working the
// instant the new set lands.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, principalID, pass string) ([]string, error) {
	p, err := e.reverifyPassword(ctx, principalID, pass)
	if err != nil {
		return nil, err
	}
	if !p.MFAEnabled {
		return nil, ErrMFANotEnabled
	}

	codes, records, err := generateBackupCodes(e.config.MFA, principalID)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}
	if err := e.directory.ReplaceBackupCodes(ctx, principalID, records); err != nil {
		return nil, fmt.Errorf("replace backup codes: %w", err)
	}

	e.audit.Record(ctx, AuditEvent{
		Actor:      principalID,
		TenantID:   p.TenantID,
		Action:     AuditBackupCodesNew,
		Resource:   "principal",
		ResourceID: principalID,
	})
	return codes, nil
}

// loadChallengePrincipal checks that a live challenge exists for the
// principal and that the account is still eligible to finish it.
func (e *Engine) loadChallengePrincipal(ctx context.Context, principalID string) (Principal, error) {
	if _, err := e.challenges.Get(ctx, principalID); err != nil {
		switch {
		case errors.Is(err, errChallengeNotFound), errors.Is(err, errChallengeExpired):
			return Principal{}, ErrMFAChallengeExpired
		default:
			return Principal{}, ErrChallengeUnavailable
		}
	}

	p, err := e.directory.GetPrincipalByID(ctx, principalID)
	if err != nil || p.Deleted || p.Locked {
		return Principal{}, ErrInvalidCredentials
	}
	if !p.MFAEnabled {
		return Principal{}, ErrMFANotEnabled
	}
	return p, nil
}

// challengeFailure bumps the attempt counter and maps the outcome: a burned
// challenge reads as attempts exceeded, otherwise the code was just wrong.
func (e *Engine) challengeFailure(ctx context.Context, principalID string) error {
	exceeded, err := e.challenges.RecordFailure(ctx, principalID, e.config.MFA.ChallengeMaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, errChallengeNotFound), errors.Is(err, errChallengeExpired):
			return ErrMFAChallengeExpired
		default:
			return ErrChallengeUnavailable
		}
	}
	if exceeded {
		return ErrMFAAttemptsExceeded
	}
	return ErrMFACodeInvalid
}

// finishChallenge consumes the pending challenge and issues the pair. The
// conditional delete makes the challenge single-use even under concurrent
// completion attempts.
func (e *Engine) finishChallenge(ctx context.Context, p Principal, method string) (*token.Pair, error) {
	deleted, err := e.challenges.Delete(ctx, p.ID)
	if err != nil {
		return nil, ErrChallengeUnavailable
	}
	if !deleted {
		return nil, ErrMFAChallengeExpired
	}

	pair, err := e.issueTokens(ctx, p)
	if err != nil {
		e.metrics.login("error")
		return nil, err
	}

	e.metrics.mfaChallenge(method, "ok")
	e.metrics.login("success")
	e.audit.Record(ctx, AuditEvent{
		Actor:    p.ID,
		TenantID: p.TenantID,
		Action:   AuditLoginSuccess,
		Resource: "principal",
		Metadata: map[string]string{"mfa_method": method},
	})
	return pair, nil
}

// reverifyPassword gates the sensitive MFA mutations behind a fresh password
// check.
func (e *Engine) reverifyPassword(ctx context.Context, principalID, pass string) (Principal, error) {
	p, err := e.directory.GetPrincipalByID(ctx, principalID)
	if err != nil {
		return Principal{}, ErrNotFound
	}
	if p.Deleted || p.Locked {
		return Principal{}, ErrInvalidCredentials
	}
	ok, err := e.hasher.Verify(pass, p.PasswordHash)
	if err != nil || !ok {
		return Principal{}, ErrInvalidCredentials
	}
	return p, nil
}
