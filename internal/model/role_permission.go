package model

// RolePermission is the join row between roles and permissions. The
// (role, permission) pair is unique; duplicate assignment requests are
// rejected before persistence. Rows are cascade-deleted when either
// side is deleted.
type RolePermission struct {
	ID           uint64     `gorm:"primaryKey"`
	RoleID       uint64     `gorm:"not null;uniqueIndex:idx_role_permission"`
	PermissionID uint64     `gorm:"not null;uniqueIndex:idx_role_permission"`
	Role         Role       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's default table naming.
func (RolePermission) TableName() string { return "role_permissions" }
