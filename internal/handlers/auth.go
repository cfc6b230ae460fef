package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messagely/internal/auth"
	"messagely/internal/events"
	"messagely/internal/observability"
	"messagely/internal/repositories"
)

// AuthHandler owns the login and register routes. These are the only
// routes that issue tokens; everything else only verifies them.
type AuthHandler struct {
	users   repositories.UserRepository
	tokens  *auth.TokenService
	emitter *events.Emitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.TokenService, emitter *events.Emitter) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, emitter: emitter}
}

// Login verifies credentials and returns a session token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username and password required")
		return
	}

	ok, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not verify credentials")
		return
	}
	if !ok {
		observability.IncLogin("failure")
		respondError(c, http.StatusUnauthorized, "invalid username/password")
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	if err := h.users.UpdateLoginTimestamp(c.Request.Context(), req.Username); err != nil {
		respondError(c, http.StatusInternalServerError, "could not update login timestamp")
		return
	}

	observability.IncLogin("success")
	h.emitter.Emit(c.Request.Context(), "user.login", requestIDFromContext(c), req.Username, nil)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Register creates a user, logs them in, and returns a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Phone     string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username, password, first name, last name, and phone number required for registration")
		return
	}

	user, err := h.users.Register(c.Request.Context(), repositories.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			respondError(c, http.StatusConflict, "username already taken")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not register user")
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not issue token")
		return
	}

	if err := h.users.UpdateLoginTimestamp(c.Request.Context(), user.Username); err != nil {
		respondError(c, http.StatusInternalServerError, "could not update login timestamp")
		return
	}

	observability.IncRegistration()
	h.emitter.Emit(c.Request.Context(), "user.registered", requestIDFromContext(c), user.Username, user.Public())
	c.JSON(http.StatusOK, gin.H{"token": token})
}
