package model

import "time"

// SuperAdminRoleName is the reserved role excluded from general role
// enumeration. It exists only so the seeded super-admin account has a
// role row to hang off; the authorization engine never consults it
// because the SuperAdmin user flag short-circuits every check.
const SuperAdminRoleName = "super admin"

// Role is a named collection of permissions that can be assigned to
// users. Role ids are store-generated (auto-increment); the id in its
// decimal string form doubles as the permission-cache key.
//
// Fields:
//  ID          - primary key, store-generated.
//  Name        - unique role name (e.g. "editor").
//  Description - optional human-readable purpose.
//  CreatedAt   - timestamp of creation.
//  UpdatedAt   - timestamp of last update.
type Role struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:100;not null"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides GORM's default table naming.
func (Role) TableName() string { return "roles" }
