package model

import "time"

// User represents an application account as stored in the `users`
// table. Emails are normalized to lowercase before insertion and are
// unique across the table. Accounts are never physically removed by
// regular flows; admin deletion flips IsDelete (soft delete) so that
// audit trails and foreign keys stay intact.
//
// Fields:
//  ID           - primary key, store-generated.
//  Email        - unique, lowercased email address.
//  PasswordHash - salted one-way hash of the password.
//  IsActive     - whether the account may log in.
//  IsDelete     - soft-delete marker set by admin deletion.
//  Admin        - administrative account flag.
//  SuperAdmin   - bypasses all permission checks in the authorization engine.
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsActive     bool   `gorm:"default:true"`
	IsDelete     bool   `gorm:"default:false"`
	Admin        bool   `gorm:"default:false"`
	SuperAdmin   bool   `gorm:"default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides GORM's pluralized naming so the table matches
// the schema shared by the other identity services.
func (User) TableName() string { return "users" }
