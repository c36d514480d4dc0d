package permission

// Platform modules. Roles may only reference these and the actions declared
// in DefaultEntries; anything else fails Catalog.Validate at startup.
const (
	ModuleUsers    = "users"
	ModuleShops    = "shops"
	ModuleVouchers = "vouchers"
	ModuleReceipts = "receipts"
	ModuleRoles    = "roles"
	ModuleAudit    = "audit"
	ModuleSettings = "settings"
)

// Common actions. Modules declare the subset that applies to them.
const (
	ActionView             = "view"
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionDelete           = "delete"
	ActionSuspend          = "suspend"
	ActionResetPassword    = "reset_password"
	ActionAssign           = "assign"
	ActionApprove          = "approve"
	ActionApproveHighValue = "approve_high_value"
	ActionExport           = "export"
)

// DefaultEntries is the platform's permission catalog.
func DefaultEntries() []Entry {
	return []Entry{
		{ModuleUsers, ActionView, "View admin accounts"},
		{ModuleUsers, ActionCreate, "Create admin accounts"},
		{ModuleUsers, ActionUpdate, "Update admin accounts"},
		{ModuleUsers, ActionDelete, "Delete admin accounts"},
		{ModuleUsers, ActionSuspend, "Suspend admin accounts"},
		{ModuleUsers, ActionResetPassword, "Reset account passwords"},

		{ModuleShops, ActionView, "View shops"},
		{ModuleShops, ActionCreate, "Create shops"},
		{ModuleShops, ActionUpdate, "Update shops"},
		{ModuleShops, ActionDelete, "Delete shops"},
		{ModuleShops, ActionSuspend, "Suspend shops"},

		{ModuleVouchers, ActionView, "View vouchers"},
		{ModuleVouchers, ActionCreate, "Create vouchers"},
		{ModuleVouchers, ActionUpdate, "Update vouchers"},
		{ModuleVouchers, ActionDelete, "Delete vouchers"},
		{ModuleVouchers, ActionApprove, "Approve vouchers"},
		{ModuleVouchers, ActionApproveHighValue, "Approve vouchers above the monetary threshold"},

		{ModuleReceipts, ActionView, "View receipts"},
		{ModuleReceipts, ActionExport, "Export receipts"},
		{ModuleReceipts, ActionDelete, "Delete receipts"},

		{ModuleRoles, ActionView, "View roles"},
		{ModuleRoles, ActionCreate, "Create roles"},
		{ModuleRoles, ActionUpdate, "Update roles"},
		{ModuleRoles, ActionDelete, "Delete roles"},
		{ModuleRoles, ActionAssign, "Assign roles to accounts"},

		{ModuleAudit, ActionView, "View the audit trail"},
		{ModuleAudit, ActionExport, "Export the audit trail"},

		{ModuleSettings, ActionView, "View platform settings"},
		{ModuleSettings, ActionUpdate, "Update platform settings"},
	}
}

// DefaultCatalog builds the platform catalog. It panics only if
// DefaultEntries itself is inconsistent, which is a programming error.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return c
}
