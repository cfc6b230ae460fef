package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messagely/internal/auth"
	"messagely/internal/middleware"
	"messagely/internal/mocks"
	"messagely/internal/models"
	"messagely/internal/repositories"
)

// setupUserRouter wires the user routes with the real auth middleware so
// the authorization rules are exercised end to end.
func setupUserRouter(handler *UserHandler, tokens *auth.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	requireAuth := middleware.RequireAuth(tokens)
	requireSameUser := middleware.RequireSameUser(tokens)
	r.GET("/users", requireAuth, handler.List)
	r.GET("/users/:username", requireSameUser, handler.Get)
	r.GET("/users/:username/to", requireSameUser, handler.MessagesTo)
	r.GET("/users/:username/from", requireSameUser, handler.MessagesFrom)
	return r
}

func authedRequest(t *testing.T, tokens *auth.TokenService, username, method, target string) *http.Request {
	t.Helper()
	token, err := tokens.Issue(username)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestListUsers(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	users.On("All", mock.Anything).Return([]models.PublicUser{
		{Username: "alice", FirstName: "Alice", LastName: "Example", Phone: "+1-555-0101"},
		{Username: "bob", FirstName: "Bob", LastName: "Tester", Phone: "+1-555-0100"},
	}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "alice", http.MethodGet, "/users"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
	assert.Contains(t, rec.Body.String(), "bob")
	assert.NotContains(t, rec.Body.String(), "password")
	users.AssertExpectations(t)
}

func TestListUsersRequiresAuth(t *testing.T) {
	router := setupUserRouter(NewUserHandler(new(mocks.UserRepositoryMock)), testTokens(t))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserNeverLeaksPasswordHash(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	users.On("Get", mock.Anything, "alice").Return(models.User{
		Username:  "alice",
		Password:  "$2a$12$somethinghashed",
		FirstName: "Alice",
		LastName:  "Example",
		Phone:     "+1-555-0101",
		JoinAt:    joined,
	}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "alice", http.MethodGet, "/users/alice"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	user := resp["user"]
	assert.Equal(t, "alice", user["username"])
	assert.Contains(t, user, "join_at")
	assert.Contains(t, user, "last_login_at")
	assert.NotContains(t, user, "password")
	users.AssertExpectations(t)
}

func TestGetUserWrongUserForbidden(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "alice", http.MethodGet, "/users/bob"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGetUserNotFound(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	users.On("Get", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "ghost", http.MethodGet, "/users/ghost"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	users.AssertExpectations(t)
}

func TestMessagesToUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	users.On("MessagesTo", mock.Anything, "bob").Return([]models.ReceivedMessage{
		{
			ID:       1,
			Body:     "hi",
			SentAt:   time.Now(),
			FromUser: models.PublicUser{Username: "alice", FirstName: "Alice", LastName: "Example", Phone: "+1-555-0101"},
		},
	}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "bob", http.MethodGet, "/users/bob/to"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "from_user")
	assert.Contains(t, rec.Body.String(), "alice")
	users.AssertExpectations(t)
}

func TestMessagesFromUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	users.On("MessagesFrom", mock.Anything, "alice").Return([]models.SentMessage{
		{
			ID:     1,
			Body:   "hi",
			SentAt: time.Now(),
			ToUser: models.PublicUser{Username: "bob", FirstName: "Bob", LastName: "Tester", Phone: "+1-555-0100"},
		},
	}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "alice", http.MethodGet, "/users/alice/from"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "to_user")
	assert.Contains(t, rec.Body.String(), "bob")
	users.AssertExpectations(t)
}

func TestMessagesFromWrongUserForbidden(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := testTokens(t)
	router := setupUserRouter(NewUserHandler(users), tokens)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, tokens, "alice", http.MethodGet, "/users/bob/from"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	users.AssertNotCalled(t, "MessagesFrom", mock.Anything, mock.Anything)
}
