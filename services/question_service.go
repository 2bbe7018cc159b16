package services

import (
	"context"
	"errors"

	"examforge/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionService owns question records. Every operation is scoped to the
// caller: a question created by someone else is indistinguishable from one
// that does not exist.
type QuestionService struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

func NewQuestionService(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *QuestionService {
	return &QuestionService{db: db, redis: redisClient, logger: logger}
}

type ChoiceRequest struct {
	Key         string `json:"key" binding:"required"`
	Description string `json:"description" binding:"required"`
	Points      int    `json:"points"`
	Position    int    `json:"position"`
}

type CreateQuestionRequest struct {
	Prompt      string          `json:"prompt" binding:"required"`
	TotalPoints int             `json:"total_points"`
	Kind        string          `json:"kind" binding:"required,oneof=multiple_choice free_form"`
	Answer      string          `json:"answer"`
	Choices     []ChoiceRequest `json:"choices"`
}

type UpdateQuestionRequest struct {
	ID          uint            `json:"id"`
	Prompt      string          `json:"prompt" binding:"required"`
	TotalPoints int             `json:"total_points"`
	Kind        string          `json:"kind" binding:"required,oneof=multiple_choice free_form"`
	Answer      string          `json:"answer"`
	Choices     []ChoiceRequest `json:"choices"`
}

func (s *QuestionService) Create(ctx context.Context, callerID string, req *CreateQuestionRequest) (*models.Question, error) {
	if req.Kind == models.QuestionKindMultipleChoice && len(req.Choices) == 0 {
		return nil, ErrBadRequest
	}

	question := models.Question{
		CreatedBy:   callerID,
		Prompt:      req.Prompt,
		TotalPoints: req.TotalPoints,
		Kind:        req.Kind,
		Answer:      req.Answer,
		Choices:     choicesFromRequest(0, req.Choices),
	}

	if err := s.db.WithContext(ctx).Create(&question).Error; err != nil {
		return nil, ErrInternal
	}

	return &question, nil
}

func (s *QuestionService) Get(ctx context.Context, id uint, callerID string) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, callerID).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("choices.position")
		}).
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}
	return &question, nil
}

func (s *QuestionService) ListByOwner(ctx context.Context, callerID string) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("created_by = ?", callerID).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("choices.position")
		}).
		Order("created_at DESC").
		Find(&questions).Error
	if err != nil {
		return nil, ErrInternal
	}
	return questions, nil
}

// ListUnassigned returns the caller's questions not currently linked to any
// test, the pool available for attachment.
func (s *QuestionService) ListUnassigned(ctx context.Context, callerID string) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("created_by = ? AND test_id IS NULL", callerID).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("choices.position")
		}).
		Order("created_at DESC").
		Find(&questions).Error
	if err != nil {
		return nil, ErrInternal
	}
	return questions, nil
}

// Update overwrites the mutable fields of an owned question. CreatedBy and
// TestID are never touched here; assignment changes only through test
// reconciliation.
func (s *QuestionService) Update(ctx context.Context, id uint, callerID string, req *UpdateQuestionRequest) error {
	if id == 0 {
		return ErrNotFound
	}
	if req.ID != 0 && req.ID != id {
		return ErrBadRequest
	}
	if req.Kind == models.QuestionKindMultipleChoice && len(req.Choices) == 0 {
		return ErrBadRequest
	}

	var question models.Question
	err := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, callerID).
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ErrInternal
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := applyQuestionFields(tx, &question, req.Prompt, req.TotalPoints, req.Kind, req.Answer, req.Choices); err != nil {
		tx.Rollback()
		return ErrInternal
	}

	if err := tx.Commit().Error; err != nil {
		return ErrInternal
	}

	// Shared readers of the owning test must not keep seeing the old fields.
	if question.TestID != nil {
		dropTakerView(ctx, s.redis, s.logger, *question.TestID)
	}
	return nil
}

// Delete removes the question outright, choices included. Assignment does not
// protect it: a question deleted while attached simply disappears from its
// test's derived collection.
func (s *QuestionService) Delete(ctx context.Context, id uint, callerID string) error {
	var question models.Question
	err := s.db.WithContext(ctx).
		Where("id = ? AND created_by = ?", id, callerID).
		First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ErrInternal
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("question_id = ?", question.ID).Delete(&models.Choice{}).Error; err != nil {
		tx.Rollback()
		return ErrInternal
	}
	if err := tx.Delete(&models.Question{}, question.ID).Error; err != nil {
		tx.Rollback()
		return ErrInternal
	}

	if err := tx.Commit().Error; err != nil {
		return ErrInternal
	}

	if question.TestID != nil {
		dropTakerView(ctx, s.redis, s.logger, *question.TestID)
	}
	return nil
}

func choicesFromRequest(questionID uint, reqs []ChoiceRequest) []models.Choice {
	choices := make([]models.Choice, 0, len(reqs))
	for i, cr := range reqs {
		position := cr.Position
		if position == 0 {
			position = i + 1
		}
		choices = append(choices, models.Choice{
			QuestionID:  questionID,
			Key:         cr.Key,
			Description: cr.Description,
			Points:      cr.Points,
			Position:    position,
		})
	}
	return choices
}

// applyQuestionFields overwrites a question's mutable fields inside tx,
// replacing its choice rows wholesale. Shared by the question store and the
// test reconciliation path.
func applyQuestionFields(tx *gorm.DB, question *models.Question, prompt string, totalPoints int, kind, answer string, choices []ChoiceRequest) error {
	if err := tx.Model(&models.Question{}).
		Where("id = ?", question.ID).
		Updates(map[string]interface{}{
			"prompt":       prompt,
			"total_points": totalPoints,
			"kind":         kind,
			"answer":       answer,
		}).Error; err != nil {
		return err
	}

	// A multiple-choice payload with no choices is a metadata-only edit;
	// wiping the existing choice rows would leave the question unanswerable.
	if kind == models.QuestionKindMultipleChoice && len(choices) == 0 {
		return nil
	}

	if err := tx.Where("question_id = ?", question.ID).Delete(&models.Choice{}).Error; err != nil {
		return err
	}
	if len(choices) > 0 {
		rows := choicesFromRequest(question.ID, choices)
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}
