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
	"github.com/freetravelapp/freetravel-server/internal/repository"
	"github.com/freetravelapp/freetravel-server/internal/utils"
)

// ReportHandler implements user reports and their moderation. The daily
// quota is counted inside the insert transaction so concurrent filings
// cannot both slip under the limit.
type ReportHandler struct {
	Reports *repository.ReportRepo
	Users   *repository.UserRepo
	Mailer  utils.Mailer
}

func NewReportHandler(reports *repository.ReportRepo, users *repository.UserRepo, m utils.Mailer) *ReportHandler {
	if reports == nil || users == nil {
		panic("nil repository passed to NewReportHandler")
	}
	return &ReportHandler{Reports: reports, Users: users, Mailer: m}
}

type createReportReq struct {
	ReportedUsername string `json:"reported_username"`
	Text             string `json:"text"`
	Image            string `json:"image"`
}

type reportStatusReq struct {
	Status string `json:"status"`
}

// Create handles POST /v1/reports. Self-reports are rejected and a
// reporter may file at most two reports per calendar day.
func (h *ReportHandler) Create(c echo.Context) error {
	reporterID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ReportedUsername = strings.TrimSpace(req.ReportedUsername)
	req.Text = strings.TrimSpace(req.Text)
	if req.ReportedUsername == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reported_username/text required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reported, err := h.Users.GetByUsername(ctx, req.ReportedUsername)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reported user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if reported.ID == reporterID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot report yourself"})
	}

	tx, err := h.Reports.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := h.Reports.CountTodayTx(ctx, tx, reporterID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "quota check failed"})
	}
	if n >= model.ReportsPerDay {
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "daily report limit reached"})
	}

	var img *string
	if s := strings.TrimSpace(req.Image); s != "" {
		img = &s
	}
	rep := model.Report{
		ReporterID: reporterID,
		ReportedID: reported.ID,
		Text:       req.Text,
		Image:      img,
	}
	if err := h.Reports.CreateTx(ctx, tx, &rep); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create report failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"report": rep})
}

// UpdateStatus handles PATCH /v1/reports/:id/status, admin only via the
// router. Each status change mails the reporter; the send is best-effort
// after the update lands.
func (h *ReportHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid report id"})
	}
	var req reportStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var status string
	switch strings.ToUpper(strings.TrimSpace(req.Status)) {
	case model.ReportPending:
		status = model.ReportPending
	case model.ReportResolved:
		status = model.ReportResolved
	case model.ReportRejected:
		status = model.ReportRejected
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be PENDING, RESOLVED or REJECTED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	email, err := h.Reports.UpdateStatus(ctx, id, status)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if h.Mailer != nil && h.Mailer.Configured() {
		if err := h.Mailer.Send(email, "Your FreeTravel report was updated", utils.ReportStatusBody(status)); err != nil {
			log.Printf("mailer: report status send to %s failed: %v", email, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}
