package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/stratumhq/adminauth"
	"github.com/stratumhq/adminauth/permission"
)

const roleColumns = `r.id, r.name, r.tenant_id, r.system, r.grants`

func scanRoles(rows *sql.Rows) ([]adminauth.Role, error) {
	var roles []adminauth.Role
	for rows.Next() {
		var (
			r      adminauth.Role
			tenant sql.NullString
			grants []string
		)
		if err := rows.Scan(&r.ID, &r.Name, &tenant, &r.System, pq.Array(&grants)); err != nil {
			return nil, err
		}
		if tenant.Valid {
			r.TenantID = tenant.String
		}
		for _, g := range grants {
			pat, err := permission.ParsePattern(g)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", r.Name, err)
			}
			r.Grants = append(r.Grants, pat)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRolesForPrincipal returns the roles assigned to the principal, tenant
// and global alike.
func (s *Store) GetRolesForPrincipal(ctx context.Context, principalID string) ([]adminauth.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roleColumns+`
		   FROM roles r
		   JOIN role_assignments a ON a.role_id = r.id
		  WHERE a.principal_id = $1
		  ORDER BY r.name`, principalID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return scanRoles(rows)
}

// GetRolesByName resolves role names within the tenant's scope: the tenant's
// own roles plus global roles. Names with no matching row are simply absent
// from the result.
func (s *Store) GetRolesByName(ctx context.Context, tenantID string, names []string) ([]adminauth.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roleColumns+`
		   FROM roles r
		  WHERE r.name = ANY($1)
		    AND (r.tenant_id IS NULL OR r.tenant_id = $2)
		  ORDER BY r.name`, pq.Array(names), tenantParam(tenantID))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	return scanRoles(rows)
}

// AssignRole links a principal to a role. Assigning the same role twice is
// [adminauth.ErrConflict] via the primary key.
func (s *Store) AssignRole(ctx context.Context, principalID, roleID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO role_assignments (principal_id, role_id, assigned_at)
		 VALUES ($1, $2, now())`, principalID, roleID)
	return mapErr(err)
}
