// Package token issues and verifies the signed access/refresh token pair.
//
// Both kinds share one claim shape and one HS256 signing secret; they differ
// only in TTL and in the kind claim, which is checked on every verification so
// a refresh token can never pass where an access token is required (and vice
// versa). Issuer and audience are pinned at construction and enforced by the
// parser.
//
// Verification failures are uniform to callers: every failure satisfies
// errors.Is(err, ErrInvalidToken) while the wrapped message retains the
// specific cause (expired, bad signature, kind mismatch) for server-side
// diagnostics only.
package token
