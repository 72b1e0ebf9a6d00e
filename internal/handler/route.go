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

// RouteHandler implements the route lifecycle: create with quota and
// duplicate guards, list active routes, and complete with the rating
// notification fan-out. Completion runs the status flip and the
// notification inserts in one transaction so a partial failure can never
// leave a completed route without its notifications.
type RouteHandler struct {
	Routes        *repository.RouteRepo
	Requests      *repository.RequestRepo
	Notifications *repository.NotificationRepo
}

func NewRouteHandler(routes *repository.RouteRepo, requests *repository.RequestRepo, notifications *repository.NotificationRepo) *RouteHandler {
	if routes == nil || requests == nil || notifications == nil {
		panic("nil repository passed to NewRouteHandler")
	}
	return &RouteHandler{Routes: routes, Requests: requests, Notifications: notifications}
}

// routeOwnerLimit is the number of routes an owner may create per
// rolling hour.
const routeOwnerLimit = 3

type createRouteReq struct {
	Vehicle         string `json:"vehicle"`
	RegistrationNum string `json:"registration_num"`
	DepartureCity   string `json:"departure_city"`
	DepartureStreet string `json:"departure_street"`
	DepartureNumber string `json:"departure_number"`
	ArrivalCity     string `json:"arrival_city"`
	ArrivalStreet   string `json:"arrival_street"`
	ArrivalNumber   string `json:"arrival_number"`
	SelectedAt      string `json:"selected_at"`
	Title           string `json:"title"`
}

// Create handles POST /v1/routes.
func (h *RouteHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRouteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.DepartureCity) == "" || strings.TrimSpace(req.ArrivalCity) == "" ||
		strings.TrimSpace(req.Vehicle) == "" || strings.TrimSpace(req.SelectedAt) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle/departure_city/arrival_city/selected_at required"})
	}
	selectedAt, err := time.Parse(time.RFC3339, req.SelectedAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid selected_at"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Routes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := h.Routes.CountRecentByOwnerTx(ctx, tx, ownerID, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "quota check failed"})
	}
	if n >= routeOwnerLimit {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "route creation limit reached, try again later"})
	}

	rt := model.Route{
		OwnerID:         ownerID,
		Vehicle:         req.Vehicle,
		RegistrationNum: req.RegistrationNum,
		DepartureCity:   req.DepartureCity,
		DepartureStreet: req.DepartureStreet,
		DepartureNumber: req.DepartureNumber,
		ArrivalCity:     req.ArrivalCity,
		ArrivalStreet:   req.ArrivalStreet,
		ArrivalNumber:   req.ArrivalNumber,
		SelectedAt:      selectedAt.UTC(),
		Title:           req.Title,
	}
	if err := h.Routes.CreateTx(ctx, tx, &rt); err != nil {
		if err == repository.ErrDuplicateRoute {
			return c.JSON(http.StatusConflict, echo.Map{"error": "identical route already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create route failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"route": rt})
}

// List handles GET /v1/routes. It returns active routes departing now or
// later, ascending, joined with the owner's public projection.
func (h *RouteHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	routes, err := h.Routes.ListActive(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list routes failed"})
	}
	return c.JSON(http.StatusOK, routes)
}

// Complete handles PATCH /v1/routes/:id/complete. Exactly two
// notifications per approved passenger are written in the completion
// transaction: one asking the passenger to rate the trip and one asking
// the owner to rate that passenger. Zero approved passengers still
// completes the route.
func (h *RouteHandler) Complete(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	routeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || routeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Routes.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rt, err := h.Routes.GetByIDTx(ctx, tx, routeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rt.OwnerID != callerID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the route owner may complete it"})
	}
	if err := h.Routes.CompleteTx(ctx, tx, routeID); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "route already completed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "complete failed"})
	}

	passengers, err := h.Requests.ApprovedByRouteTx(ctx, tx, routeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load passengers failed"})
	}
	for _, p := range passengers {
		toPassenger := model.Notification{
			RecipientID: p.RequesterID,
			SenderID:    rt.OwnerID,
			RouteID:     routeID,
			Message:     "Your trip from " + rt.DepartureCity + " to " + rt.ArrivalCity + " is complete. Rate the trip!",
		}
		if err := h.Notifications.CreateTx(ctx, tx, &toPassenger); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification failed"})
		}
		toOwner := model.Notification{
			RecipientID: rt.OwnerID,
			SenderID:    p.RequesterID,
			RouteID:     routeID,
			Message:     "Trip complete. Rate your passenger " + p.Username + "!",
		}
		if err := h.Notifications.CreateTx(ctx, tx, &toOwner); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "notification failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	names := make([]string, 0, len(passengers))
	for _, p := range passengers {
		names = append(names, p.Username)
	}
	if err := queue_publisher.PublishTripEvent(ctx, queue.TripCompletedEvent{
		RouteID:       routeID,
		OwnerID:       rt.OwnerID,
		DepartureCity: rt.DepartureCity,
		ArrivalCity:   rt.ArrivalCity,
		Passengers:    names,
		CompletedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("route complete: event publish failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"route_id":   routeID,
		"status":     model.RouteCompleted,
		"passengers": len(passengers),
	})
}
