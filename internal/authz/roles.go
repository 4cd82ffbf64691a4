package authz

const (
	RoleSales      = 10
	RoleOperations = 20
	RoleAudit      = 30
	RoleManagement = 40
	RoleAdmin      = 50
)

func IsElevated(roleID int) bool {
	return roleID == RoleOperations || roleID == RoleManagement || roleID == RoleAdmin
}

func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}

// CanManageProposals: работа с proposals открыта только админу,
// как и раньше была закрыта вкладка в UI.
func CanManageProposals(roleID int) bool {
	return roleID == RoleAdmin
}
