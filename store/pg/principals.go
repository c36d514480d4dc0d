package pg

import (
	"context"
	"database/sql"

	"github.com/stratumhq/adminauth"
)

const principalColumns = `id, email, tenant_id, password_hash, super_admin, locked, deleted, mfa_enabled, mfa_secret`

func scanPrincipal(row *sql.Row) (adminauth.Principal, error) {
	var (
		p      adminauth.Principal
		tenant sql.NullString
		secret []byte
	)
	err := row.Scan(&p.ID, &p.Email, &tenant, &p.PasswordHash,
		&p.SuperAdmin, &p.Locked, &p.Deleted, &p.MFAEnabled, &secret)
	if err != nil {
		return adminauth.Principal{}, mapErr(err)
	}
	if tenant.Valid {
		p.TenantID = tenant.String
	}
	p.MFASecret = secret
	return p, nil
}

func (s *Store) GetPrincipalByEmail(ctx context.Context, email string) (adminauth.Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE lower(email) = lower($1)`, email)
	return scanPrincipal(row)
}

func (s *Store) GetPrincipalByID(ctx context.Context, id string) (adminauth.Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, principalID, newHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE principals SET password_hash = $2, updated_at = now() WHERE id = $1`,
		principalID, newHash)
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
	return nil
}
