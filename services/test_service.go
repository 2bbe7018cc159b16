package services

import (
	"context"
	"errors"
	"time"

	"examforge/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService owns test metadata and the test↔question association. The
// association lives on the question row (TestID); a test's question list is
// always recomputed from those rows, never stored twice.
type TestService struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

func NewTestService(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *TestService {
	return &TestService{db: db, redis: redisClient, logger: logger}
}

type CreateTestRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// TestQuestionRequest is one entry of the desired question set submitted with
// a test update. The id must refer to a question the caller already owns;
// unknown or foreign ids are not attachable.
type TestQuestionRequest struct {
	ID          uint            `json:"id" binding:"required"`
	Prompt      string          `json:"prompt" binding:"required"`
	TotalPoints int             `json:"total_points"`
	Kind        string          `json:"kind" binding:"required,oneof=multiple_choice free_form"`
	Answer      string          `json:"answer"`
	Choices     []ChoiceRequest `json:"choices"`
}

type UpdateTestRequest struct {
	ID          uint                  `json:"id"`
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	Questions   []TestQuestionRequest `json:"questions"`
}

func (s *TestService) Create(ctx context.Context, callerID string, req *CreateTestRequest) (*models.Test, error) {
	now := time.Now().UTC()
	test := models.Test{
		UserID:      callerID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(&test).Error; err != nil {
		return nil, ErrInternal
	}
	return &test, nil
}

func (s *TestService) Get(ctx context.Context, id uint, callerID string) (*models.Test, error) {
	var test models.Test
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("choices.position")
		}).
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}
	return &test, nil
}

func (s *TestService) ListByOwner(ctx context.Context, callerID string) ([]models.Test, error) {
	var tests []models.Test
	err := s.db.WithContext(ctx).
		Where("user_id = ?", callerID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Order("created_at DESC").
		Find(&tests).Error
	if err != nil {
		return nil, ErrInternal
	}
	return tests, nil
}

// Update reconciles the persisted test against the caller's desired state:
// scalar fields are copied, questions missing from the desired list are
// unassigned, and every desired question is updated and attached. All
// question writes go against the live rows so concurrent edits to fields we
// do not own are not clobbered. The final test write is version-guarded; a
// stale version means someone else committed first.
func (s *TestService) Update(ctx context.Context, id uint, callerID string, req *UpdateTestRequest) error {
	if id == 0 || req.ID != id {
		return ErrBadRequest
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	persisted, err := s.Get(ctx, id, callerID)
	if err != nil {
		return err
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

	desired := make(map[uint]TestQuestionRequest, len(req.Questions))
	for _, q := range req.Questions {
		desired[q.ID] = q
	}

	// Unassign what fell out of the desired set. Clearing only test_id on
	// the live row leaves concurrent edits to the question's own fields
	// intact.
	var current []models.Question
	if err := tx.Where("test_id = ? AND created_by = ?", id, callerID).Find(&current).Error; err != nil {
		tx.Rollback()
		return ErrInternal
	}
	for _, q := range current {
		if _, keep := desired[q.ID]; keep {
			continue
		}
		if err := tx.Model(&models.Question{}).Where("id = ?", q.ID).Update("test_id", nil).Error; err != nil {
			tx.Rollback()
			return ErrInternal
		}
	}

	// Attach and overwrite everything in the desired set. The lookup is
	// owner-scoped, so a question the caller does not own resolves to
	// nothing and is never attached. Tests that lose a question to this one
	// need their cached views dropped too.
	stolenFrom := make(map[uint]struct{})
	for _, q := range req.Questions {
		var live models.Question
		err := tx.Where("id = ? AND created_by = ?", q.ID, callerID).First(&live).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			tx.Rollback()
			return ErrInternal
		}

		if err := applyQuestionFields(tx, &live, q.Prompt, q.TotalPoints, q.Kind, q.Answer, q.Choices); err != nil {
			tx.Rollback()
			return ErrInternal
		}
		if live.TestID == nil || *live.TestID != id {
			if live.TestID != nil {
				stolenFrom[*live.TestID] = struct{}{}
			}
			if err := tx.Model(&models.Question{}).Where("id = ?", live.ID).Update("test_id", id).Error; err != nil {
				tx.Rollback()
				return ErrInternal
			}
		}
	}

	if err := ctx.Err(); err != nil {
		tx.Rollback()
		return err
	}

	// Commit step: the version guard detects a concurrent writer.
	res := tx.Model(&models.Test{}).
		Where("id = ? AND version = ?", id, persisted.Version).
		Updates(map[string]interface{}{
			"title":       req.Title,
			"description": req.Description,
			"updated_at":  time.Now().UTC(),
			"version":     persisted.Version + 1,
		})
	if res.Error != nil {
		tx.Rollback()
		return ErrInternal
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		// Stale version. If the test vanished (or changed hands) report
		// NotFound, otherwise let the caller re-fetch and retry.
		if _, err := s.Get(ctx, id, callerID); err != nil {
			return err
		}
		return ErrConflict
	}

	if err := tx.Commit().Error; err != nil {
		return ErrInternal
	}

	s.invalidateTakerView(ctx, id)
	for testID := range stolenFrom {
		s.invalidateTakerView(ctx, testID)
	}
	return nil
}

// Delete removes the test, unassigns its questions (never deletes them), and
// revokes sharing: the grant and every redemption under it go away as part of
// the same delete.
func (s *TestService) Delete(ctx context.Context, id uint, callerID string) error {
	var test models.Test
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		First(&test).Error
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

	if err := tx.Model(&models.Question{}).Where("test_id = ?", id).Update("test_id", nil).Error; err != nil {
		tx.Rollback()
		return ErrInternal
	}

	var grant models.ShareGrant
	if err := tx.Where("test_id = ?", id).First(&grant).Error; err == nil {
		if err := tx.Where("grant_token = ?", grant.Token).Delete(&models.ShareRedemption{}).Error; err != nil {
			tx.Rollback()
			return ErrInternal
		}
		if err := tx.Delete(&grant).Error; err != nil {
			tx.Rollback()
			return ErrInternal
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return ErrInternal
	}

	if err := tx.Delete(&models.Test{}, id).Error; err != nil {
		tx.Rollback()
		return ErrInternal
	}

	if err := tx.Commit().Error; err != nil {
		return ErrInternal
	}

	s.invalidateTakerView(ctx, id)
	return nil
}

func (s *TestService) invalidateTakerView(ctx context.Context, testID uint) {
	dropTakerView(ctx, s.redis, s.logger, testID)
}
