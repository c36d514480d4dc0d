// Package permission models the platform's capability space as a closed
// catalog of (module, action) pairs and wildcard patterns over them.
//
// The [Catalog] is built once at startup from a fixed list of entries; any
// role that references a module or action outside the catalog fails
// [Catalog.Validate] at load time instead of silently granting nothing at
// check time. [Pattern] carries the wildcard semantics (`module:*`, `*:*`)
// and [Set] is the union of a principal's role grants, answering concrete
// Has / AnyOf / AllOf checks.
//
// Tenant scoping is deliberately not in this package: permission matching and
// tenant boundaries are independent gates, composed by the Engine.
package permission
