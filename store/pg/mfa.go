package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stratumhq/adminauth"
)

// EnableMFA persists secret, enabled flag, and backup codes in one
// transaction. There is no observable state where the flag is set without
// its codes.
func (s *Store) EnableMFA(ctx context.Context, principalID string, secret []byte, codes []adminauth.BackupCodeRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE principals
			    SET mfa_enabled = TRUE, mfa_secret = $2, updated_at = now()
			  WHERE id = $1 AND NOT mfa_enabled`, principalID, secret)
		if err != nil {
			return mapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return adminauth.ErrConflict
		}
		return insertBackupCodes(ctx, tx, principalID, codes)
	})
}

// DisableMFA clears secret, flag, and codes together.
func (s *Store) DisableMFA(ctx context.Context, principalID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE principals
			    SET mfa_enabled = FALSE, mfa_secret = NULL, updated_at = now()
			  WHERE id = $1`, principalID)
		if err != nil {
			return mapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return adminauth.ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM backup_codes WHERE principal_id = $1`, principalID)
		return mapErr(err)
	})
}

// ReplaceBackupCodes swaps the whole set in one transaction so no code from
// the old batch survives past the commit.
func (s *Store) ReplaceBackupCodes(ctx context.Context, principalID string, codes []adminauth.BackupCodeRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM backup_codes WHERE principal_id = $1`, principalID); err != nil {
			return mapErr(err)
		}
		return insertBackupCodes(ctx, tx, principalID, codes)
	})
}

// ConsumeBackupCode is a conditional delete: the row count tells us whether
// this caller won, so concurrent redemptions of the same code cannot both
// succeed.
func (s *Store) ConsumeBackupCode(ctx context.Context, principalID string, codeHash [32]byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE principal_id = $1 AND code_hash = $2`,
		principalID, codeHash[:])
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) CountBackupCodes(ctx context.Context, principalID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM backup_codes WHERE principal_id = $1`, principalID).Scan(&n)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func insertBackupCodes(ctx context.Context, tx *sql.Tx, principalID string, codes []adminauth.BackupCodeRecord) error {
	for _, c := range codes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backup_codes (principal_id, code_hash) VALUES ($1, $2)`,
			principalID, c.Hash[:]); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
