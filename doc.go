// Package adminauth is the authentication and authorization core of a
// multi-tenant SaaS admin platform.
//
// The [Engine] composes five collaborators:
//
//   - credential verification (package password): adaptive bcrypt hashes,
//     constant-time checks, one generic invalid-credentials error for every
//     credential failure so accounts cannot be enumerated;
//   - MFA (totp.go, backup_codes.go, engine_mfa.go): two-phase TOTP
//     enrollment, login-time challenges held in Redis, single-use backup
//     codes;
//   - signed tokens (package token): stateless HS256 access/refresh pairs
//     with issuer, audience, and kind pinned;
//   - permission resolution (package permission, authorize.go): a closed
//     (module, action) catalog with wildcard grants, super-admin bypass, and
//     an independent fail-closed tenant-scope gate;
//   - best-effort audit (audit.go): redacted before/after diffs, suspicion
//     heuristics, and an asynchronous dispatcher that never blocks the
//     mutation it describes.
//
// Principals, tenants, and roles are owned by the surrounding platform and
// consumed read-only through the [DirectoryStore] interface; package store/pg
// ships the Postgres implementation.
package adminauth
