package models

import (
	"time"
)

// UserAnswer is one test-taker's answer to one question: the choice key for
// multiple-choice, free text otherwise. Recording answers is all this does;
// nothing in the system grades them.
type UserAnswer struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	QuestionID uint      `json:"question_id" gorm:"not null;index"`
	UserID     string    `json:"user_id" gorm:"not null;index"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
