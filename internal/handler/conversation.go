package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/model"
	"github.com/freetravelapp/freetravel-server/internal/repository"
)

// ConversationHandler implements the private chat between a route owner
// and a passenger. Every message operation re-checks that the caller is
// one of the two participants; conversations are strictly pairwise.
type ConversationHandler struct {
	Conversations *repository.ConversationRepo
	Routes        *repository.RouteRepo
	Users         *repository.UserRepo
}

func NewConversationHandler(conversations *repository.ConversationRepo, routes *repository.RouteRepo, users *repository.UserRepo) *ConversationHandler {
	if conversations == nil || routes == nil || users == nil {
		panic("nil repository passed to NewConversationHandler")
	}
	return &ConversationHandler{Conversations: conversations, Routes: routes, Users: users}
}

type startConversationReq struct {
	RouteID  uint64 `json:"route_id"`
	Username string `json:"username"`
}

type sendMessageReq struct {
	Text string `json:"text"`
}

// participant reports whether userID is one of the conversation's two
// members.
func participant(cv model.Conversation, userID uint64) bool {
	return cv.UserLoID == userID || cv.UserHiID == userID
}

// Start handles POST /v1/conversations/start. It finds or creates the
// thread between the caller and the named user on the given route; one
// of the two must own the route. Approval already creates the thread,
// so this is mostly a recovery path for clients.
func (h *ConversationHandler) Start(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startConversationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.RouteID == 0 || req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_id/username required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	other, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if other.ID == callerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot start a conversation with yourself"})
	}

	tx, err := h.Conversations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rt, err := h.Routes.GetByIDTx(ctx, tx, req.RouteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rt.OwnerID != callerID && rt.OwnerID != other.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "one participant must own the route"})
	}

	cv, err := h.Conversations.FindOrCreateTx(ctx, tx, rt.ID, callerID, other.ID, rt.DepartureCity, rt.ArrivalCity)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start conversation failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"conversation": cv})
}

// List handles GET /v1/conversations.
func (h *ConversationHandler) List(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	convs, err := h.Conversations.ListForUser(ctx, callerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list conversations failed"})
	}
	return c.JSON(http.StatusOK, convs)
}

// load fetches the conversation and enforces membership. It writes the
// error response itself and returns ok=false when the caller may not
// proceed.
func (h *ConversationHandler) load(c echo.Context, ctx context.Context, callerID uint64) (model.Conversation, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation id"})
		return model.Conversation{}, false
	}
	cv, err := h.Conversations.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return model.Conversation{}, false
	}
	if !participant(cv, callerID) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant"})
		return model.Conversation{}, false
	}
	return cv, true
}

// Messages handles GET /v1/conversations/:id/messages.
func (h *ConversationHandler) Messages(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cv, ok := h.load(c, ctx, callerID)
	if !ok {
		return nil
	}
	msgs, err := h.Conversations.ListMessages(ctx, cv.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list messages failed"})
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send handles POST /v1/conversations/:id/messages. Text is trimmed,
// must be non-empty and at most 200 characters.
func (h *ConversationHandler) Send(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text exceeds 200 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cv, ok := h.load(c, ctx, callerID)
	if !ok {
		return nil
	}
	msg, err := h.Conversations.CreateMessage(ctx, cv.ID, callerID, text)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": msg})
}

// MarkRead handles PATCH /v1/conversations/:id/read. Every message
// authored by the other participant is flipped to read.
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cv, ok := h.load(c, ctx, callerID)
	if !ok {
		return nil
	}
	if err := h.Conversations.MarkRead(ctx, cv.ID, callerID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "mark read failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversation_id": cv.ID})
}
