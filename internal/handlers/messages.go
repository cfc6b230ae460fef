package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messagely/internal/events"
	"messagely/internal/middleware"
	"messagely/internal/observability"
	"messagely/internal/repositories"
)

// MessageHandler owns the message routes. Authentication is handled by the
// middleware; the counterpart checks (sender-or-recipient, recipient-only)
// happen here after the message is loaded.
type MessageHandler struct {
	messages repositories.MessageRepository
	emitter  *events.Emitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.MessageRepository, emitter *events.Emitter) *MessageHandler {
	return &MessageHandler{messages: messages, emitter: emitter}
}

// Get returns message detail. Only the sender or the recipient may read a
// message.
func (h *MessageHandler) Get(c *gin.Context) {
	id, ok := parseMessageID(c)
	if !ok {
		return
	}

	detail, err := h.messages.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			respondError(c, http.StatusNotFound, "message not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load message")
		return
	}

	username := c.GetString(middleware.UsernameKey)
	if username != detail.FromUser.Username && username != detail.ToUser.Username {
		respondError(c, http.StatusForbidden, "not a participant of this message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": detail})
}

// Create stores a message from the authenticated user. Recipient existence
// is enforced by the foreign-key constraint, not a pre-read.
func (h *MessageHandler) Create(c *gin.Context) {
	var req struct {
		ToUsername string `json:"to_username" binding:"required"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "to_username and body required")
		return
	}

	from := c.GetString(middleware.UsernameKey)
	msg, err := h.messages.Create(c.Request.Context(), from, req.ToUsername, req.Body)
	if err != nil {
		if errors.Is(err, repositories.ErrUnknownUser) {
			respondError(c, http.StatusNotFound, "unknown recipient")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not store message")
		return
	}

	observability.IncMessageSent()
	h.emitter.Emit(c.Request.Context(), "message.sent", requestIDFromContext(c), from, gin.H{
		"message_id":  msg.ID,
		"to_username": msg.ToUsername,
	})

	type createdMessage struct {
		ID           int       `json:"id"`
		FromUsername string    `json:"from_username"`
		ToUsername   string    `json:"to_username"`
		Body         string    `json:"body"`
		SentAt       time.Time `json:"sent_at"`
	}
	c.JSON(http.StatusCreated, gin.H{"message": createdMessage{
		ID:           msg.ID,
		FromUsername: msg.FromUsername,
		ToUsername:   msg.ToUsername,
		Body:         msg.Body,
		SentAt:       msg.SentAt,
	}})
}

// MarkRead stamps read_at on a message. Only the addressed recipient may
// do this; repeated calls simply restamp the timestamp.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := parseMessageID(c)
	if !ok {
		return
	}

	detail, err := h.messages.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			respondError(c, http.StatusNotFound, "message not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "could not load message")
		return
	}

	username := c.GetString(middleware.UsernameKey)
	if username != detail.ToUser.Username {
		respondError(c, http.StatusForbidden, "only the recipient can mark a message read")
		return
	}

	receipt, err := h.messages.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "could not mark message read")
		return
	}

	observability.IncMessageRead()
	h.emitter.Emit(c.Request.Context(), "message.read", requestIDFromContext(c), username, gin.H{
		"message_id": receipt.ID,
	})
	c.JSON(http.StatusCreated, receipt)
}

func parseMessageID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid message id")
		return 0, false
	}
	return id, true
}
