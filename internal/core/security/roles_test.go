package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
)

func TestMatrix(t *testing.T) {
	tests := []struct {
		role   Role
		module Module
		want   bool
	}{
		{RoleAdmin, ModuleCreditOrders, true},
		{RoleFinance, ModuleCreditOrders, false},
		{RoleFinance, ModuleVendorPayments, true},
		{RoleManager, ModuleVendors, true},
		{RoleManager, ModulePOApproval, false},
		{RoleOperator, ModuleOperations, true},
		{RoleCustomer, ModuleOrders, false},
		{RoleOwner, ModuleAudit, true},
		{RoleHR, ModuleAccounts, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.module), func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.module))
		})
	}
}

func TestMatrix_SharedSlicesNotAliased(t *testing.T) {
	assert.NotContains(t, Matrix[ModulePOApproval], RoleFinance)
	assert.NotContains(t, Matrix[ModuleSettingsWrite], RoleManager)
}

func TestRequire(t *testing.T) {
	err := Require(context.Background(), ModuleAccounts)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u", Role: "customer"})
	err = Require(ctx, ModuleAccounts)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	ctx = appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u", Role: "finance"})
	assert.NoError(t, Require(ctx, ModuleAccounts))
}

func TestRole_IsStaff(t *testing.T) {
	assert.True(t, RoleOperator.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, RoleDealer.IsStaff())
	assert.False(t, Role("wizard").IsStaff())
}
