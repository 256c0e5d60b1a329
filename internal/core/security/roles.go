// Package security defines roles and the module access matrix.
package security

import (
	"context"
	"slices"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
)

// Role is the single role a user holds.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
	RoleFinance    Role = "finance"
	RoleHR         Role = "hr"
	RoleOperator   Role = "operator"
	RoleManager    Role = "manager"
	RoleCustomer   Role = "customer"
	RoleDealer     Role = "dealer"
)

// AllRoles lists every assignable role.
var AllRoles = []Role{
	RoleSuperAdmin, RoleAdmin, RoleOwner, RoleFinance, RoleHR,
	RoleOperator, RoleManager, RoleCustomer, RoleDealer,
}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return slices.Contains(AllRoles, r)
}

// IsStaff reports whether r belongs to the company rather than a customer or dealer.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleCustomer && r != RoleDealer
}

// Module is an access-controlled area of the API.
type Module string

const (
	ModuleSettingsWrite   Module = "settings_write"
	ModuleCreditOrders    Module = "credit_orders"
	ModuleOrderCancel     Module = "order_cancel"
	ModuleOrders          Module = "orders"
	ModuleAccounts        Module = "accounts"
	ModuleVendors         Module = "vendors"
	ModulePOApproval      Module = "po_approval"
	ModuleVendorPayments  Module = "vendor_payments"
	ModuleOperations      Module = "operations"
	ModuleCashReceipt     Module = "cash_receipt"
	ModuleAudit           Module = "audit"
	ModuleCustomers       Module = "customers"
	ModuleReports         Module = "reports"
	ModuleBreakageApprove Module = "breakage_approve"
	ModuleUsers           Module = "users"
)

var (
	admins     = []Role{RoleSuperAdmin, RoleAdmin, RoleOwner}
	finance    = append(slices.Clone(admins), RoleFinance)
	purchasing = append(slices.Clone(admins), RoleManager, RoleFinance)
	operations = append(slices.Clone(admins), RoleManager, RoleOperator)
	cashiers   = append(slices.Clone(admins), RoleFinance, RoleManager)
	staff      = []Role{RoleSuperAdmin, RoleAdmin, RoleOwner, RoleFinance, RoleHR, RoleOperator, RoleManager}
)

// Matrix maps modules to the roles allowed to use them.
var Matrix = map[Module][]Role{
	ModuleSettingsWrite:   admins,
	ModuleCreditOrders:    admins,
	ModuleOrderCancel:     admins,
	ModuleOrders:          staff,
	ModuleAccounts:        finance,
	ModuleVendors:         purchasing,
	ModulePOApproval:      admins,
	ModuleVendorPayments:  finance,
	ModuleOperations:      operations,
	ModuleCashReceipt:     cashiers,
	ModuleAudit:           admins,
	ModuleCustomers:       append(slices.Clone(finance), RoleManager),
	ModuleReports:         finance,
	ModuleBreakageApprove: append(slices.Clone(admins), RoleManager),
	ModuleUsers:           admins,
}

// RolesFor returns the roles allowed for module, as strings for middleware use.
func RolesFor(module Module) []string {
	roles := Matrix[module]
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// Can reports whether role may use module.
func Can(role Role, module Module) bool {
	return slices.Contains(Matrix[module], role)
}

// Require returns Forbidden unless the caller in ctx may use module.
func Require(ctx context.Context, module Module) error {
	u := appctx.GetUser(ctx)
	if u == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if !Can(Role(u.Role), module) {
		return apperror.NewForbidden("role " + u.Role + " cannot access " + string(module))
	}
	return nil
}

// IsStaffContext reports whether the caller in ctx is a staff member.
func IsStaffContext(ctx context.Context) bool {
	return Role(appctx.GetRole(ctx)).IsStaff()
}
