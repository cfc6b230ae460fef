package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messagely/internal/models"
	"messagely/internal/repositories"
)

// UserHandler owns the user listing and per-user message routes.
type UserHandler struct {
	users repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// List returns every user's public fields. Ordering is unspecified;
// callers must not depend on it.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.All(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not load users")
		return
	}
	if users == nil {
		users = []models.PublicUser{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get returns a single user's detail, including join and last-login
// timestamps. The password hash is never serialized.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// MessagesTo returns the messages addressed to the user, each with the
// sender's public fields nested.
func (h *UserHandler) MessagesTo(c *gin.Context) {
	msgs, err := h.users.MessagesTo(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load messages")
		return
	}
	if msgs == nil {
		msgs = []models.ReceivedMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MessagesFrom returns the messages the user sent, each with the
// recipient's public fields nested.
func (h *UserHandler) MessagesFrom(c *gin.Context) {
	msgs, err := h.users.MessagesFrom(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load messages")
		return
	}
	if msgs == nil {
		msgs = []models.SentMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
