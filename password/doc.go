// Package password implements credential hashing and verification with bcrypt.
//
// # Output format
//
// Hashes are standard bcrypt modular-crypt strings:
//
//	$2a$<cost>$<salt+digest>
//
// Every hash carries its own cost parameter, so verification keeps working as
// the configured cost evolves. When the stored cost falls below the configured
// one, [Hasher.NeedsRehash] returns true and the caller can re-hash on the next
// successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Credential lookup and the
// account-enumeration-safe error surface are the Engine's responsibility.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords: callers supply plaintext and receive hashes.
//   - Import any other adminauth package.
//   - Log plaintext passwords.
package password
