package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/model"
	"github.com/freetravelapp/freetravel-server/internal/queue"
	"github.com/freetravelapp/freetravel-server/internal/repository"
	queue_publisher "github.com/freetravelapp/freetravel-server/internal/service"
)

// RequestHandler implements the ride request lifecycle. Creation and
// decision both span several entities (request + notification, and on
// approval the conversation), so each runs as one transaction.
type RequestHandler struct {
	Requests      *repository.RequestRepo
	Routes        *repository.RouteRepo
	Users         *repository.UserRepo
	Notifications *repository.NotificationRepo
	Conversations *repository.ConversationRepo
}

func NewRequestHandler(requests *repository.RequestRepo, routes *repository.RouteRepo, users *repository.UserRepo, notifications *repository.NotificationRepo, conversations *repository.ConversationRepo) *RequestHandler {
	if requests == nil || routes == nil || users == nil || notifications == nil || conversations == nil {
		panic("nil repository passed to NewRequestHandler")
	}
	return &RequestHandler{
		Requests:      requests,
		Routes:        routes,
		Users:         users,
		Notifications: notifications,
		Conversations: conversations,
	}
}

type createRequestReq struct {
	RouteID     uint64 `json:"route_id"`
	Comment     string `json:"comment"`
	RequestedAt string `json:"requested_at"`
}

type decideReq struct {
	Decision        string `json:"decision"`
	PersonalMessage string `json:"personal_message"`
}

// Create handles POST /v1/requests. The new request snapshots the
// requester's contact fields and notifies the route owner inside the
// same transaction.
func (h *RequestHandler) Create(c echo.Context) error {
	requesterID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RouteID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_id required"})
	}
	requestedAt, err := time.Parse(time.RFC3339, req.RequestedAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid requested_at"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	requester, err := h.Users.GetByID(ctx, requesterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
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

	rr := model.RideRequest{
		RouteID:       rt.ID,
		RequesterID:   requesterID,
		OwnerID:       rt.OwnerID,
		Username:      requester.Username,
		FName:         requester.FName,
		LName:         requester.LName,
		Email:         requester.Email,
		DepartureCity: rt.DepartureCity,
		ArrivalCity:   rt.ArrivalCity,
		RequestedAt:   requestedAt.UTC(),
		Comment:       req.Comment,
	}
	if err := h.Requests.CreateTx(ctx, tx, &rr); err != nil {
		if err == repository.ErrDuplicateRequest {
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already submitted for this route"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}

	note := model.Notification{
		RecipientID: rt.OwnerID,
		SenderID:    requesterID,
		RouteID:     rt.ID,
		Message:     requester.Username + " wants to join your trip from " + rt.DepartureCity + " to " + rt.ArrivalCity + ".",
	}
	if err := h.Notifications.CreateTx(ctx, tx, &note); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"request": rr})
}

// ListMine handles GET /v1/requests. It returns the requests addressed
// to the caller as route owner so drivers can review candidates.
func (h *RequestHandler) ListMine(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reqs, err := h.Requests.ListByOwner(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list requests failed"})
	}
	return c.JSON(http.StatusOK, reqs)
}

// Decide handles PATCH /v1/requests/:id. Approval notifies the
// requester and finds-or-creates the conversation for the route pair;
// rejection only notifies. The pending-status guard in the repository
// turns a second decision into a 409.
func (h *RequestHandler) Decide(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || requestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	var req decideReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var decision string
	switch strings.ToLower(strings.TrimSpace(req.Decision)) {
	case "approved":
		decision = model.RequestApproved
	case "rejected":
		decision = model.RequestRejected
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be approved or rejected"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Requests.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rr, err := h.Requests.GetByIDTx(ctx, tx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rr.OwnerID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the route owner may decide"})
	}
	if err := h.Requests.DecideTx(ctx, tx, requestID, decision); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decide failed"})
	}

	var personal *string
	if s := strings.TrimSpace(req.PersonalMessage); s != "" {
		personal = &s
	}
	var message string
	if decision == model.RequestApproved {
		message = "Your request for the trip from " + rr.DepartureCity + " to " + rr.ArrivalCity + " was approved!"
	} else {
		message = "Your request for the trip from " + rr.DepartureCity + " to " + rr.ArrivalCity + " was rejected."
	}
	note := model.Notification{
		RecipientID:     rr.RequesterID,
		SenderID:        rr.OwnerID,
		RouteID:         rr.RouteID,
		Message:         message,
		PersonalMessage: personal,
	}
	if err := h.Notifications.CreateTx(ctx, tx, &note); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification failed"})
	}

	if decision == model.RequestApproved {
		if _, err := h.Conversations.FindOrCreateTx(ctx, tx, rr.RouteID, rr.OwnerID, rr.RequesterID, rr.DepartureCity, rr.ArrivalCity); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "conversation failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if err := queue_publisher.PublishTripEvent(ctx, queue.RequestDecidedEvent{
		RequestID:   requestID,
		RouteID:     rr.RouteID,
		RequesterID: rr.RequesterID,
		OwnerID:     rr.OwnerID,
		Decision:    decision,
		DecidedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("request decide: event publish failed: %v", err)
	}

	rr.Status = decision
	return c.JSON(http.StatusOK, echo.Map{"request": rr})
}
