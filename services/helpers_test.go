package services

import (
	"testing"

	"examforge/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Test{},
		&models.Question{},
		&models.Choice{},
		&models.ShareGrant{},
		&models.ShareRedemption{},
		&models.UserAnswer{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := models.User{
		ID:           uuid.NewString(),
		Email:        name + "@example.com",
		Name:         name,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedTest(t *testing.T, db *gorm.DB, ownerID, title string) *models.Test {
	t.Helper()

	test := models.Test{UserID: ownerID, Title: title}
	require.NoError(t, db.Create(&test).Error)
	return &test
}

func seedQuestion(t *testing.T, db *gorm.DB, ownerID, prompt string, testID *uint) *models.Question {
	t.Helper()

	question := models.Question{
		CreatedBy:   ownerID,
		Prompt:      prompt,
		TotalPoints: 10,
		Kind:        models.QuestionKindFreeForm,
		Answer:      "reference answer",
		TestID:      testID,
	}
	require.NoError(t, db.Create(&question).Error)
	return &question
}

func newTestServices(t *testing.T) (*gorm.DB, *QuestionService, *TestService, *ShareService, *TakerService) {
	t.Helper()

	db := newTestDB(t)
	log := zap.NewNop()
	questions := NewQuestionService(db, nil, log)
	tests := NewTestService(db, nil, log)
	shares := NewShareService(db, log)
	taker := NewTakerService(db, shares, nil, log)
	return db, questions, tests, shares, taker
}
