package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleEmployee.Valid())
	assert.False(t, RoleNone.Valid())
	assert.False(t, Role("OWNER").Valid())
}

func TestUserPermissions(t *testing.T) {
	org := uuid.New()
	other := uuid.New()

	admin := &User{Role: RoleAdmin, OrganizationID: &org}
	manager := &User{Role: RoleManager, OrganizationID: &org}
	employee := &User{Role: RoleEmployee, OrganizationID: &org}
	root := &User{IsSuperuser: true}

	assert.True(t, admin.CanManageUsers())
	assert.False(t, manager.CanManageUsers())
	assert.True(t, root.CanManageUsers())

	assert.True(t, manager.CanManageProjects())
	assert.False(t, employee.CanManageProjects())

	assert.True(t, admin.SameOrganization(&org))
	assert.False(t, admin.SameOrganization(&other))
	assert.False(t, root.SameOrganization(&org))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "john@example.com", NormalizeEmail("  John@Example.COM "))
}
