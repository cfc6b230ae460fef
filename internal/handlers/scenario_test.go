package handlers

import (
	"bytes"
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

// TestAliceAndBobScenario walks the full exchange: both users register,
// alice sends bob a message, bob marks it read, and alice's attempt to do
// the same is rejected.
func TestAliceAndBobScenario(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	tokens := auth.NewTokenService([]byte("scenario-secret"), time.Hour)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	requireAuth := middleware.RequireAuth(tokens)
	authHandler := NewAuthHandler(users, tokens, nil)
	messageHandler := NewMessageHandler(messages, nil)
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/messages", requireAuth, messageHandler.Create)
	router.POST("/messages/:id/read", requireAuth, messageHandler.MarkRead)

	register := func(username, password, first, last, phone string) string {
		users.On("Register", mock.Anything, repositories.RegisterParams{
			Username: username, Password: password, FirstName: first, LastName: last, Phone: phone,
		}).Return(models.User{Username: username, FirstName: first, LastName: last, Phone: phone}, nil).Once()
		users.On("UpdateLoginTimestamp", mock.Anything, username).Return(nil).Once()

		body, _ := json.Marshal(map[string]string{
			"username": username, "password": password,
			"first_name": first, "last_name": last, "phone": phone,
		})
		req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp.Token
	}

	login := func(username, password string) string {
		users.On("Authenticate", mock.Anything, username, password).Return(true, nil).Once()
		users.On("UpdateLoginTimestamp", mock.Anything, username).Return(nil).Once()

		body := bytes.NewBufferString(`{"username":"` + username + `","password":"` + password + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/login", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp.Token
	}

	register("alice", "secret1", "Alice", "Example", "+1-555-0101")
	register("bob", "secret2", "Bob", "Tester", "+1-555-0100")

	aliceToken := login("alice", "secret1")

	sentAt := time.Now().UTC()
	messages.On("Create", mock.Anything, "alice", "bob", "hi").Return(models.Message{
		ID: 1, FromUsername: "alice", ToUsername: "bob", Body: "hi", SentAt: sentAt,
	}, nil).Once()

	body := bytes.NewBufferString(`{"_token":"` + aliceToken + `","to_username":"bob","body":"hi"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "alice", created["message"]["from_username"])
	assert.NotContains(t, created["message"], "read_at")

	bobToken := login("bob", "secret2")

	detail := models.MessageDetail{
		ID: 1, Body: "hi", SentAt: sentAt,
		FromUser: models.PublicUser{Username: "alice", FirstName: "Alice", LastName: "Example", Phone: "+1-555-0101"},
		ToUser:   models.PublicUser{Username: "bob", FirstName: "Bob", LastName: "Tester", Phone: "+1-555-0100"},
	}
	readAt := sentAt.Add(time.Minute)
	messages.On("Get", mock.Anything, 1).Return(detail, nil).Once()
	messages.On("MarkRead", mock.Anything, 1).Return(models.ReadReceipt{ID: 1, ReadAt: readAt}, nil).Once()

	readBody := bytes.NewBufferString(`{"_token":"` + bobToken + `"}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages/1/read", readBody))
	require.Equal(t, http.StatusCreated, rec.Code)

	var receipt models.ReadReceipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.Equal(t, 1, receipt.ID)
	assert.False(t, receipt.ReadAt.IsZero())

	// Alice is the sender, not the recipient: her mark-read is rejected.
	withRead := detail
	withRead.ReadAt = &readAt
	messages.On("Get", mock.Anything, 1).Return(withRead, nil).Once()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages/1/read",
		bytes.NewBufferString(`{"_token":"`+aliceToken+`"}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	users.AssertExpectations(t)
	messages.AssertExpectations(t)
}
