package services

import (
	"context"
	"testing"

	"examforge/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newCachedServices wires the services against a real (in-process) redis so
// cache eviction is observable.
func newCachedServices(t *testing.T) (*gorm.DB, *miniredis.Miniredis, *QuestionService, *TestService, *ShareService, *TakerService) {
	t.Helper()

	db := newTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zap.NewNop()
	questions := NewQuestionService(db, client, log)
	tests := NewTestService(db, client, log)
	shares := NewShareService(db, log)
	taker := NewTakerService(db, shares, client, log)
	return db, mr, questions, tests, shares, taker
}

func primeTakerView(t *testing.T, mr *miniredis.Miniredis, taker *TakerService, testID uint, readerID string) {
	t.Helper()
	_, err := taker.GetTest(context.Background(), testID, readerID)
	require.NoError(t, err)
	require.True(t, mr.Exists(takerViewKey(testID)))
}

func TestQuestionUpdateEvictsTakerView(t *testing.T) {
	db, mr, questions, _, _, taker := newCachedServices(t)
	alice := seedUser(t, db, "alice")
	test := seedTest(t, db, alice.ID, "T1")
	q := seedQuestion(t, db, alice.ID, "Old prompt", &test.ID)
	ctx := context.Background()

	primeTakerView(t, mr, taker, test.ID, alice.ID)

	err := questions.Update(ctx, q.ID, alice.ID, &UpdateQuestionRequest{
		Prompt: "New prompt",
		Kind:   models.QuestionKindFreeForm,
		Answer: q.Answer,
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(takerViewKey(test.ID)))

	// The rebuilt view carries the edit.
	view, err := taker.GetTest(ctx, test.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.Equal(t, "New prompt", view.Questions[0].Prompt)
}

func TestQuestionDeleteEvictsTakerView(t *testing.T) {
	db, mr, questions, _, _, taker := newCachedServices(t)
	alice := seedUser(t, db, "alice")
	test := seedTest(t, db, alice.ID, "T1")
	q := seedQuestion(t, db, alice.ID, "Q", &test.ID)
	ctx := context.Background()

	primeTakerView(t, mr, taker, test.ID, alice.ID)

	require.NoError(t, questions.Delete(ctx, q.ID, alice.ID))
	assert.False(t, mr.Exists(takerViewKey(test.ID)))

	view, err := taker.GetTest(ctx, test.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Questions)
}

func TestQuestionUpdateUnassignedTouchesNoCache(t *testing.T) {
	db, mr, questions, _, _, taker := newCachedServices(t)
	alice := seedUser(t, db, "alice")
	test := seedTest(t, db, alice.ID, "T1")
	seedQuestion(t, db, alice.ID, "Attached", &test.ID)
	loose := seedQuestion(t, db, alice.ID, "Loose", nil)
	ctx := context.Background()

	primeTakerView(t, mr, taker, test.ID, alice.ID)

	err := questions.Update(ctx, loose.ID, alice.ID, &UpdateQuestionRequest{
		Prompt: "Still loose",
		Kind:   models.QuestionKindFreeForm,
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists(takerViewKey(test.ID)))
}

func TestTestUpdateEvictsLosingTestView(t *testing.T) {
	db, mr, _, tests, _, taker := newCachedServices(t)
	alice := seedUser(t, db, "alice")
	src := seedTest(t, db, alice.ID, "Source")
	dst := seedTest(t, db, alice.ID, "Destination")
	q := seedQuestion(t, db, alice.ID, "Moves over", &src.ID)
	ctx := context.Background()

	primeTakerView(t, mr, taker, src.ID, alice.ID)
	primeTakerView(t, mr, taker, dst.ID, alice.ID)

	err := tests.Update(ctx, dst.ID, alice.ID, &UpdateTestRequest{
		ID:        dst.ID,
		Title:     dst.Title,
		Questions: []TestQuestionRequest{desiredEntry(q)},
	})
	require.NoError(t, err)

	// Both sides of the move are stale: the destination gained the
	// question and the source lost it.
	assert.False(t, mr.Exists(takerViewKey(dst.ID)))
	assert.False(t, mr.Exists(takerViewKey(src.ID)))

	view, err := taker.GetTest(ctx, src.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Questions)
}
