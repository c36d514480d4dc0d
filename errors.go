package adminauth

import "errors"

var (
	// ErrInvalidCredentials covers every login credential failure: unknown
	// email, deleted account, locked account, wrong password. One error for
	// all of them so accounts cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated covers missing, malformed, expired, or wrong-kind
	// tokens and failed MFA challenges.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when an authenticated identity lacks the
	// required permission or violates tenant scoping.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for duplicate role assignment or duplicate
	// email.
	ErrConflict = errors.New("conflict")

	// ErrMFARequired signals that password verification succeeded but a
	// second factor must complete the login.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFAAlreadyEnabled rejects enrollment for an already-enabled account.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMFANotEnabled rejects MFA operations on accounts without MFA.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrMFACodeMalformed rejects codes that are not 6 numeric digits before
	// any secret is consulted.
	ErrMFACodeMalformed = errors.New("malformed mfa code")
	// ErrMFACodeInvalid is returned when a well-formed code fails validation.
	ErrMFACodeInvalid = errors.New("invalid mfa code")
	// ErrMFAChallengeExpired is returned when the pending login challenge is
	// missing or past its TTL.
	ErrMFAChallengeExpired = errors.New("mfa challenge expired")
	// ErrMFAAttemptsExceeded is returned once the challenge attempt cap is
	// hit; the challenge is consumed and login must restart.
	ErrMFAAttemptsExceeded = errors.New("mfa challenge attempts exceeded")
	// ErrBackupCodeInvalid is returned when a backup code does not match or
	// was already consumed.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrChallengeUnavailable is returned when the challenge backend cannot
	// be reached.
	ErrChallengeUnavailable = errors.New("mfa challenge backend unavailable")

	// ErrEngineNotReady is returned when a required collaborator is missing.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Code is the transport-facing error taxonomy.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeBadRequest      Code = "BAD_REQUEST"
	CodeInternal        Code = "INTERNAL"
)

// CodeOf maps an error from this package onto the taxonomy. Unknown errors
// map to CodeInternal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrMFARequired),
		errors.Is(err, ErrMFACodeInvalid),
		errors.Is(err, ErrMFAChallengeExpired),
		errors.Is(err, ErrMFAAttemptsExceeded),
		errors.Is(err, ErrBackupCodeInvalid):
		return CodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrMFAAlreadyEnabled),
		errors.Is(err, ErrMFANotEnabled),
		errors.Is(err, ErrMFACodeMalformed):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}
