package adminauth

import (
	"context"
	"fmt"

	"github.com/stratumhq/adminauth/permission"
)

// resolveGrants builds the effective permission set for an identity from the
// role names its access token carries. Role lookup is scoped to the
// identity's tenant plus global roles; a role revoked after issuance simply
// no longer resolves.
func (e *Engine) resolveGrants(ctx context.Context, id *Identity) (permission.Set, error) {
	if id == nil {
		return permission.Set{}, ErrUnauthenticated
	}
	if len(id.Roles) == 0 {
		return permission.NewSet(), nil
	}

	roles, err := e.directory.GetRolesByName(ctx, id.TenantID, id.Roles)
	if err != nil {
		return permission.Set{}, fmt.Errorf("resolve roles: %w", err)
	}

	var patterns []permission.Pattern
	for _, r := range roles {
		if err := e.catalog.Validate(r.Grants); err != nil {
			return permission.Set{}, fmt.Errorf("role %q: %w", r.Name, err)
		}
		patterns = append(patterns, r.Grants...)
	}
	return permission.NewSet(patterns...), nil
}

// HasPermission reports whether the identity may perform (module, action).
// The pair must belong to the catalog; an unknown pair is an error, never a
// silent false, so typos surface instead of denying access quietly.
func (e *Engine) HasPermission(ctx context.Context, id *Identity, module, action string) (bool, error) {
	if !e.catalog.Contains(module, action) {
		return false, fmt.Errorf("unknown permission %s:%s", module, action)
	}
	if id == nil {
		return false, nil
	}
	if id.SuperAdmin {
		e.metrics.permissionCheck("allowed")
		return true, nil
	}

	set, err := e.resolveGrants(ctx, id)
	if err != nil {
		return false, err
	}
	if set.Has(module, action) {
		e.metrics.permissionCheck("allowed")
		return true, nil
	}
	e.metrics.permissionCheck("denied")
	return false, nil
}

// Authorize gates one operation: nil identity is [ErrUnauthenticated], a
// missing grant is [ErrForbidden].
func (e *Engine) Authorize(ctx context.Context, id *Identity, module, action string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	ok, err := e.HasPermission(ctx, id, module, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// AuthorizeAny passes when the identity holds at least one of the pairs.
func (e *Engine) AuthorizeAny(ctx context.Context, id *Identity, perms ...permission.Permission) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if len(perms) == 0 {
		return ErrForbidden
	}
	for _, perm := range perms {
		if !e.catalog.Contains(perm.Module, perm.Action) {
			return fmt.Errorf("unknown permission %s:%s", perm.Module, perm.Action)
		}
	}
	if id.SuperAdmin {
		e.metrics.permissionCheck("allowed")
		return nil
	}

	set, err := e.resolveGrants(ctx, id)
	if err != nil {
		return err
	}
	if set.AnyOf(perms...) {
		e.metrics.permissionCheck("allowed")
		return nil
	}
	e.metrics.permissionCheck("denied")
	return ErrForbidden
}

// AuthorizeAll passes only when the identity holds every pair.
func (e *Engine) AuthorizeAll(ctx context.Context, id *Identity, perms ...permission.Permission) error {
	if id == nil {
		return ErrUnauthenticated
	}
	for _, perm := range perms {
		if !e.catalog.Contains(perm.Module, perm.Action) {
			return fmt.Errorf("unknown permission %s:%s", perm.Module, perm.Action)
		}
	}
	if id.SuperAdmin {
		e.metrics.permissionCheck("allowed")
		return nil
	}

	set, err := e.resolveGrants(ctx, id)
	if err != nil {
		return err
	}
	if set.AllOf(perms...) {
		e.metrics.permissionCheck("allowed")
		return nil
	}
	e.metrics.permissionCheck("denied")
	return ErrForbidden
}

// RequireTenant enforces tenant scoping independently of granted
// permissions: a tenant-bound identity may only touch resources of its own
// tenant, whatever its roles say. Platform-level identities pass. The check
// fails closed, so a nil identity is rejected outright.
func (e *Engine) RequireTenant(id *Identity, resourceTenantID string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if id.PlatformLevel() {
		return nil
	}
	if id.TenantID != resourceTenantID {
		e.metrics.permissionCheck("denied")
		return ErrForbidden
	}
	return nil
}

// TenantFilter reports the tenant a query must be narrowed to. For
// platform-level identities restricted is false and every tenant is
// visible.
func (e *Engine) TenantFilter(id *Identity) (tenantID string, restricted bool) {
	if id == nil {
		return "", true
	}
	if id.PlatformLevel() {
		return "", false
	}
	return id.TenantID, true
}
