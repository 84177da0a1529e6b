package model

// UserRole links a user to one of its roles. A user may hold multiple
// roles; deleting a row removes only that specific assignment.
type UserRole struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_role"`
	RoleID uint64 `gorm:"not null;uniqueIndex:idx_user_role"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role   Role   `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's default table naming.
func (UserRole) TableName() string { return "user_roles" }
