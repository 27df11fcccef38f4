package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/repositories"
	"github.com/anonto42/songoftheday/backend/internal/session"
	"github.com/anonto42/songoftheday/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const inboxLimit = 100

// MessageHandler handles direct messages between accounts
type MessageHandler struct {
	messageRepository repositories.MessageRepository
	userRepository    repositories.UserRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository) *MessageHandler {
	return &MessageHandler{
		messageRepository: messageRepo,
		userRepository:    userRepo,
	}
}

// RegisterMessageRoutes registers message-related routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/send_message/:username", h.SendMessageForm)
	g.POST("/send_message/:username", h.SendMessage)
	g.GET("/messages", h.Inbox)
}

type messageFormData struct {
	Recipient string
	Form      models.SendMessageRequest
	Errors    []string
}

func (h *MessageHandler) SendMessageForm(c echo.Context) error {
	recipient, err := h.recipient(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "send_message", messageFormData{Recipient: recipient.Username})
}

// SendMessage stores a message from the viewer to the account named in the path
func (h *MessageHandler) SendMessage(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	recipient, err := h.recipient(c)
	if err != nil {
		return err
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Message = strings.TrimSpace(req.Message)

	if err := c.Validate(&req); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "send_message", messageFormData{
			Recipient: recipient.Username,
			Form:      req,
			Errors:    validators.Messages(err),
		})
	}

	msg := &models.Message{
		SenderID:    viewer.UserID,
		RecipientID: recipient.ID,
		Body:        req.Message,
	}
	if err := h.messageRepository.CreateMessage(c.Request().Context(), msg); err != nil {
		log.Error().Err(err).Uint("sender_id", viewer.UserID).Uint("recipient_id", recipient.ID).Msg("failed to store message")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to send message")
	}

	return flashRedirect(c, session.Success, "Message sent.", userPath(recipient.Username))
}

func (h *MessageHandler) recipient(c echo.Context) (*models.User, error) {
	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return user, nil
}

// InboxMessage is a received message with its sender resolved
type InboxMessage struct {
	models.Message
	Sender models.UserCompact
}

// Inbox lists the messages received by the viewer, newest first
func (h *MessageHandler) Inbox(c echo.Context) error {
	viewer, err := mustViewer(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	msgs, err := h.messageRepository.GetInbox(ctx, viewer.UserID, inboxLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	senderIDs := make([]uint, 0, len(msgs))
	for _, m := range msgs {
		senderIDs = append(senderIDs, m.SenderID)
	}
	senders, err := h.userRepository.GetUsersByIDs(ctx, senderIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]InboxMessage, 0, len(msgs))
	for _, m := range msgs {
		item := InboxMessage{Message: m}
		if sender, ok := senders[m.SenderID]; ok {
			item.Sender = sender.ToCompact()
		}
		items = append(items, item)
	}

	return c.Render(http.StatusOK, "messages", map[string]interface{}{"Messages": items})
}
