package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/middleware"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// ChatHandler wires the broadcast chat endpoints including the
// websocket upgrade.
type ChatHandler struct {
	service   service.ChatService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		userID := userIDFromContext(c)
		role := userRoleFromContext(c)
		groupCode := strings.TrimSpace(c.Query("group"))

		if err := h.service.Authorise(requestContext(c), userID, role, groupCode); err != nil {
			return utils.SendError(c, fiber.StatusForbidden, "not allowed to join that group room")
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
		c.Locals("request_ctx", ctx)
		return c.Next()
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/history", h.history)
	router.Get("/mine", h.myMessages)
	router.Patch("/:id", h.edit)
	router.Delete("/group/:code", h.deleteByGroup)
	router.Delete("/", h.deleteAll)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	groupCode := strings.TrimSpace(conn.Query("group"))
	if groupCode == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "group required"))
		_ = conn.Close()
		return
	}

	role, _ := conn.Locals("user_role").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		Role:          role,
		GroupCode:     groupCode,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Uint("user_id", userID).Str("group_code", groupCode).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Uint("user_id", userID).Str("group_code", groupCode).Msg("chat websocket disconnected")
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	groupCode := strings.TrimSpace(c.Query("group"))
	if groupCode == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "group is required")
	}

	if err := h.service.Authorise(requestContext(c), userIDFromContext(c), userRoleFromContext(c), groupCode); err != nil {
		return h.handleError(c, err)
	}

	var beforePtr *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		beforePtr = &parsed
	}

	limit := 50
	if limitRaw := c.Query("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	query := dto.ChatHistoryQuery{
		GroupCode: groupCode,
		Before:    beforePtr,
		Limit:     limit,
	}

	messages, err := h.service.History(requestContext(c), query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "chat history", messages)
}

func (h *ChatHandler) myMessages(c *fiber.Ctx) error {
	if userRoleFromContext(c) != middleware.RoleTutor {
		return utils.SendError(c, fiber.StatusForbidden, "tutor access required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.MyMessages(requestContext(c), userIDFromContext(c), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sent messages", messages)
}

func (h *ChatHandler) edit(c *fiber.Ctx) error {
	if userRoleFromContext(c) != middleware.RoleTutor {
		return utils.SendError(c, fiber.StatusForbidden, "tutor access required")
	}

	messageID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid message id")
	}

	var payload dto.ChatEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Edit(requestContext(c), userIDFromContext(c), messageID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *ChatHandler) deleteByGroup(c *fiber.Ctx) error {
	if userRoleFromContext(c) != middleware.RoleTutor {
		return utils.SendError(c, fiber.StatusForbidden, "tutor access required")
	}

	groupCode := strings.TrimSpace(c.Params("code"))

	removed, err := h.service.DeleteByGroup(requestContext(c), userIDFromContext(c), groupCode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "messages deleted", fiber.Map{"deleted": removed})
}

func (h *ChatHandler) deleteAll(c *fiber.Ctx) error {
	if userRoleFromContext(c) != middleware.RoleTutor {
		return utils.SendError(c, fiber.StatusForbidden, "tutor access required")
	}

	removed, err := h.service.DeleteAll(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "messages deleted", fiber.Map{"deleted": removed})
}

func (h *ChatHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrChatMessageNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "chat message not found")
	case errors.Is(err, service.ErrChatNotAuthorised):
		return utils.SendError(c, fiber.StatusForbidden, "not allowed to act on that group")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func websocketUserID(conn *websocket.Conn) uint {
	switch v := conn.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case float64:
		return uint(v)
	}
	return 0
}
