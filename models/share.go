package models

import (
	"time"
)

// ShareGrant is the capability that opens a test to non-owners. The token is
// the identity: an unguessable 128-bit random value, at most one grant per
// test. Enabled is reserved for revocation; nothing flips it today.
type ShareGrant struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	TestID    uint      `json:"test_id" gorm:"uniqueIndex;not null"`
	OwnerID   string    `json:"owner_id" gorm:"not null"`
	Enabled   bool      `json:"enabled" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
}

// ShareRedemption records one user consuming a grant. A user redeems a given
// grant at most once; redeeming again is a no-op.
type ShareRedemption struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	GrantToken string    `json:"grant_token" gorm:"not null;uniqueIndex:idx_grant_user"`
	UserID     string    `json:"user_id" gorm:"not null;uniqueIndex:idx_grant_user"`
	CreatedAt  time.Time `json:"created_at"`
}
