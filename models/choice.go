package models

import (
	"time"
)

type Choice struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	QuestionID  uint      `json:"question_id" gorm:"not null;index"`
	Key         string    `json:"key" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Points      int       `json:"points" gorm:"not null;default:0"`
	Position    int       `json:"position" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
