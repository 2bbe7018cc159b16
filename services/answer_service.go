package services

import (
	"context"
	"errors"

	"examforge/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnswerService records test-takers' answers. Answers are scoped to the user
// who wrote them; reading a whole test's answers additionally requires read
// access to that test, the same gate the taker view uses.
type AnswerService struct {
	db     *gorm.DB
	shares *ShareService
}

func NewAnswerService(db *gorm.DB, shares *ShareService) *AnswerService {
	return &AnswerService{db: db, shares: shares}
}

type CreateAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

type UpdateAnswerRequest struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

func (s *AnswerService) Create(ctx context.Context, callerID string, req *CreateAnswerRequest) (*models.UserAnswer, error) {
	if req.QuestionID == 0 {
		return nil, ErrBadRequest
	}

	answer := models.UserAnswer{
		ID:         uuid.NewString(),
		QuestionID: req.QuestionID,
		UserID:     callerID,
		Answer:     req.Answer,
	}
	if err := s.db.WithContext(ctx).Create(&answer).Error; err != nil {
		return nil, ErrInternal
	}
	return &answer, nil
}

func (s *AnswerService) Get(ctx context.Context, id string, callerID string) (*models.UserAnswer, error) {
	var answer models.UserAnswer
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}
	return &answer, nil
}

func (s *AnswerService) ListByUser(ctx context.Context, callerID string) ([]models.UserAnswer, error) {
	var answers []models.UserAnswer
	err := s.db.WithContext(ctx).
		Where("user_id = ?", callerID).
		Order("created_at DESC").
		Find(&answers).Error
	if err != nil {
		return nil, ErrInternal
	}
	return answers, nil
}

// ListForTest returns one entry per question of the test: the caller's
// recorded answer where one exists, otherwise a blank placeholder with a
// zero id. One call fills out an entire test, answered or not.
func (s *AnswerService) ListForTest(ctx context.Context, testID uint, callerID string) ([]models.UserAnswer, error) {
	ok, err := s.shares.HasAccess(ctx, testID, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	var questions []models.Question
	err = s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("questions.id").
		Find(&questions).Error
	if err != nil {
		return nil, ErrInternal
	}

	answers := make([]models.UserAnswer, 0, len(questions))
	for _, q := range questions {
		var answer models.UserAnswer
		err := s.db.WithContext(ctx).
			Where("question_id = ? AND user_id = ?", q.ID, callerID).
			First(&answer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			answer = models.UserAnswer{QuestionID: q.ID, UserID: callerID}
		} else if err != nil {
			return nil, ErrInternal
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

// Update overwrites the answer text of an owned answer record.
func (s *AnswerService) Update(ctx context.Context, id string, callerID string, req *UpdateAnswerRequest) error {
	if id == "" || (req.ID != "" && req.ID != id) {
		return ErrBadRequest
	}

	var answer models.UserAnswer
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	if err := s.db.WithContext(ctx).Model(&answer).Update("answer", req.Answer).Error; err != nil {
		return ErrInternal
	}
	return nil
}
