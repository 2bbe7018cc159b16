package models

import (
	"time"
)

// Question kinds. The kind column discriminates which payload fields apply:
// multiple-choice questions carry Choices and use Answer as the correct
// choice key; free-form questions use Answer as the reference answer.
const (
	QuestionKindMultipleChoice = "multiple_choice"
	QuestionKindFreeForm       = "free_form"
)

type Question struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CreatedBy   string    `json:"created_by" gorm:"not null;index"`
	Prompt      string    `json:"prompt" gorm:"not null"`
	TotalPoints int       `json:"total_points" gorm:"not null;default:0"`
	Kind        string    `json:"kind" gorm:"not null"`
	Answer      string    `json:"answer"`
	TestID      *uint     `json:"test_id" gorm:"index"` // nil while unassigned
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Choices []Choice `json:"choices,omitempty" gorm:"foreignKey:QuestionID"`
}
