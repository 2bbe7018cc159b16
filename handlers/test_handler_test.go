package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"examforge/models"
	"examforge/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// asUser stands in for the auth middleware so handler tests exercise routing
// and error mapping without minting JWTs.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

type handlerFixture struct {
	db     *gorm.DB
	tests  *services.TestService
	shares *services.ShareService
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Test{}, &models.Question{},
		&models.Choice{}, &models.ShareGrant{}, &models.ShareRedemption{},
		&models.UserAnswer{},
	))

	log := zap.NewNop()
	return &handlerFixture{
		db:     db,
		tests:  services.NewTestService(db, nil, log),
		shares: services.NewShareService(db, log),
	}
}

func (f *handlerFixture) router(userID string) *gin.Engine {
	router := gin.New()
	testHandler := NewTestHandler(f.tests)
	shareHandler := NewShareHandler(f.shares)

	authed := router.Group("/api", asUser(userID))
	authed.POST("/tests", testHandler.CreateTest)
	authed.GET("/tests/:id", testHandler.GetTestByID)
	authed.PUT("/tests/:id", testHandler.UpdateTest)
	authed.DELETE("/tests/:id", testHandler.DeleteTest)
	authed.POST("/share/:testId", shareHandler.CreateShare)
	authed.GET("/share/:ownerId/:testId/:token", shareHandler.RedeemShare)
	return router
}

func (f *handlerFixture) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := models.User{ID: uuid.NewString(), Email: name + "@example.com", Name: name, PasswordHash: "x"}
	require.NoError(t, f.db.Create(&user).Error)
	return &user
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTestEndpointsLifecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice")
	router := f.router(alice.ID)

	rec := doJSON(t, router, http.MethodPost, "/api/tests", gin.H{"title": "Midterm"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tests/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/tests/%d", created.ID),
		gin.H{"id": created.ID, "title": "Midterm v2"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Path/payload id mismatch is a bad request.
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/tests/%d", created.ID),
		gin.H{"id": created.ID + 1, "title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/tests/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tests/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestEndpointsHideForeignTests(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	rec := doJSON(t, f.router(alice.ID), http.MethodPost, "/api/tests", gin.H{"title": "Private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	asBob := f.router(bob.ID)
	rec = doJSON(t, asBob, http.MethodGet, fmt.Sprintf("/api/tests/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, asBob, http.MethodDelete, fmt.Sprintf("/api/tests/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, asBob, http.MethodPost, fmt.Sprintf("/api/share/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShareEndpointsRoundTrip(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice")
	carol := f.seedUser(t, "carol")

	asAlice := f.router(alice.ID)
	rec := doJSON(t, asAlice, http.MethodPost, "/api/tests", gin.H{"title": "Shared"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, asAlice, http.MethodPost, fmt.Sprintf("/api/share/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var share struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &share))
	require.NotEmpty(t, share.Token)

	// Same token on repeat.
	rec = doJSON(t, asAlice, http.MethodPost, fmt.Sprintf("/api/share/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var again struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, share.Token, again.Token)

	asCarol := f.router(carol.ID)
	rec = doJSON(t, asCarol, http.MethodGet,
		fmt.Sprintf("/api/share/%s/%d/%s", alice.ID, created.ID, share.Token), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A substituted token is a 404, never a 403.
	rec = doJSON(t, asCarol, http.MethodGet,
		fmt.Sprintf("/api/share/%s/%d/%s", alice.ID, created.ID, uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
