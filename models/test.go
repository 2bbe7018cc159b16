package models

import (
	"time"
)

type Test struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Version     int       `json:"-" gorm:"not null;default:1"` // optimistic lock, bumped on every update
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Derived view. The question row's TestID is the source of truth;
	// this association is only ever read, never written directly.
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:TestID"`
}
