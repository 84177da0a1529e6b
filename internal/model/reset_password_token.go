package model

import "time"

// ResetPasswordToken records one password-reset credential issued to a
// user. Several rows may exist per user; only the most recently
// created unused one is honored at verification time. Older unused
// rows are implicitly superseded (no column changes) the moment a
// newer one is created.
//
// State machine: CREATED(used=false) -> CONSUMED(used=true), terminal.
//
// Fields:
//  ID        - primary key, store-generated.
//  UserID    - owning user.
//  Token     - the signed, time-limited email-action token value.
//  Used      - set once the token resets a password.
//  CreatedAt - creation timestamp; ordering decides "most recent wins".
type ResetPasswordToken struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;index"`
	Token     string `gorm:"size:512;not null;index"`
	Used      bool   `gorm:"default:false"`
	CreatedAt time.Time
	User      User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's default table naming.
func (ResetPasswordToken) TableName() string { return "reset_password_tokens" }
