package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"examforge/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const takerViewTTL = 10 * time.Minute

// TakerService builds the view of a test a non-owner is allowed to see.
// Everything an author could use to grade — answers, choice point values,
// creator ids — is stripped before the data leaves this package.
type TakerService struct {
	db     *gorm.DB
	shares *ShareService
	redis  *redis.Client
	logger *zap.Logger
}

func NewTakerService(db *gorm.DB, shares *ShareService, redisClient *redis.Client, logger *zap.Logger) *TakerService {
	return &TakerService{db: db, shares: shares, redis: redisClient, logger: logger}
}

type TakerTest struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []TakerQuestion `json:"questions"`
}

type TakerQuestion struct {
	ID          uint          `json:"id"`
	Prompt      string        `json:"prompt"`
	TotalPoints int           `json:"total_points"`
	Kind        string        `json:"kind"`
	Choices     []TakerChoice `json:"choices,omitempty"`
}

type TakerChoice struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	// No point value here: which choice scores is authoring data.
}

// GetTest returns the answer-stripped view of a test the caller may read,
// serving from cache when possible. Callers without access get NotFound, the
// same as a test that does not exist.
func (s *TakerService) GetTest(ctx context.Context, testID uint, callerID string) (*TakerTest, error) {
	ok, err := s.shares.HasAccess(ctx, testID, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	if view := s.cachedView(ctx, testID); view != nil {
		return view, nil
	}

	var test models.Test
	err = s.db.WithContext(ctx).
		Where("id = ?", testID).
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

	view := buildTakerView(&test)
	s.storeView(ctx, testID, view)
	return view, nil
}

// ListShared returns the stripped views of every test shared with the caller.
func (s *TakerService) ListShared(ctx context.Context, callerID string) ([]TakerTest, error) {
	tests, err := s.shares.ListSharedWithMe(ctx, callerID)
	if err != nil {
		return nil, err
	}

	views := make([]TakerTest, 0, len(tests))
	for i := range tests {
		var full models.Test
		err := s.db.WithContext(ctx).
			Where("id = ?", tests[i].ID).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("questions.id")
			}).
			Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
				return db.Order("choices.position")
			}).
			First(&full).Error
		if err != nil {
			return nil, ErrInternal
		}
		views = append(views, *buildTakerView(&full))
	}
	return views, nil
}

func buildTakerView(test *models.Test) *TakerTest {
	view := &TakerTest{
		ID:          test.ID,
		Title:       test.Title,
		Description: test.Description,
		Questions:   make([]TakerQuestion, 0, len(test.Questions)),
	}
	for _, q := range test.Questions {
		tq := TakerQuestion{
			ID:          q.ID,
			Prompt:      q.Prompt,
			TotalPoints: q.TotalPoints,
			Kind:        q.Kind,
		}
		for _, c := range q.Choices {
			tq.Choices = append(tq.Choices, TakerChoice{
				Key:         c.Key,
				Description: c.Description,
			})
		}
		view.Questions = append(view.Questions, tq)
	}
	return view
}

func takerViewKey(testID uint) string {
	return fmt.Sprintf("taker:test:%d", testID)
}

// dropTakerView evicts a test's cached view. Called from every write path
// that can change what a taker would see. Cache trouble is logged and
// otherwise ignored; the store stays authoritative.
func dropTakerView(ctx context.Context, client *redis.Client, logger *zap.Logger, testID uint) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, takerViewKey(testID)).Err(); err != nil {
		logger.Warn("failed to invalidate taker view cache",
			zap.Uint("test_id", testID), zap.Error(err))
	}
}

func (s *TakerService) cachedView(ctx context.Context, testID uint) *TakerTest {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, takerViewKey(testID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to read taker view cache",
				zap.Uint("test_id", testID), zap.Error(err))
		}
		return nil
	}

	var view TakerTest
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		s.logger.Warn("corrupt taker view cache entry",
			zap.Uint("test_id", testID), zap.Error(err))
		return nil
	}
	return &view
}

func (s *TakerService) storeView(ctx context.Context, testID uint, view *TakerTest) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, takerViewKey(testID), data, takerViewTTL).Err(); err != nil {
		s.logger.Warn("failed to store taker view cache",
			zap.Uint("test_id", testID), zap.Error(err))
	}
}
