package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/model"
	"github.com/freetravelapp/freetravel-server/internal/repository"
)

// NotificationHandler exposes the per-user notification feed. Recipients
// are stored as user-id foreign keys; the username-addressed listing
// resolves the handle at the boundary and only ever serves the caller's
// own feed.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
	Users         *repository.UserRepo
}

func NewNotificationHandler(notifications *repository.NotificationRepo, users *repository.UserRepo) *NotificationHandler {
	if notifications == nil || users == nil {
		panic("nil repository passed to NewNotificationHandler")
	}
	return &NotificationHandler{Notifications: notifications, Users: users}
}

// ListForUser handles GET /v1/notifications/:username.
func (h *NotificationHandler) ListForUser(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.ID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot read another user's notifications"})
	}

	notes, err := h.Notifications.ListForRecipient(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list notifications failed"})
	}
	return c.JSON(http.StatusOK, notes)
}

type updateNotificationReq struct {
	Read   *bool   `json:"read"`
	Status *string `json:"status"`
}

// Update handles PATCH /v1/notifications/:id. Clients either mark a
// notification read or soft-delete it; rows are never physically
// removed.
func (h *NotificationHandler) Update(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	var req updateNotificationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch {
	case req.Status != nil:
		if strings.ToUpper(strings.TrimSpace(*req.Status)) != model.NotificationDeleted {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "status can only be set to DELETED"})
		}
		err = h.Notifications.SoftDelete(ctx, id)
	case req.Read != nil && *req.Read:
		err = h.Notifications.MarkRead(ctx, id)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}
