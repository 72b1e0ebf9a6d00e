package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/freetravelapp/freetravel-server/internal/model"
	"github.com/freetravelapp/freetravel-server/internal/repository"
)

func routeRepos(t *testing.T) (*RouteHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMock(t)
	return NewRouteHandler(
		repository.NewRouteRepo(db),
		repository.NewRequestRepo(db),
		repository.NewNotificationRepo(db),
	), mock
}

func routeRow(id, ownerID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "vehicle", "registration_num",
		"departure_city", "departure_street", "departure_number",
		"arrival_city", "arrival_street", "arrival_number",
		"selected_at", "title", "status", "created_at", "updated_at",
	}).AddRow(id, ownerID, "sedan", "CA1234BH",
		"Sofia", "Vitosha", "1", "Varna", "Primorski", "2",
		time.Now().Add(24*time.Hour), "weekend trip", status, time.Now(), time.Now())
}

func TestCreateRouteQuotaExceeded(t *testing.T) {
	h, mock := routeRepos(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM routes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/routes",
		`{"vehicle":"sedan","departure_city":"Sofia","arrival_city":"Varna","selected_at":"2026-09-05T08:00:00Z"}`)
	asUser(c, 1, false)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestCreateRouteDuplicate(t *testing.T) {
	h, mock := routeRepos(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM routes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO routes").
		WillReturnError(errDuplicate())
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/routes",
		`{"vehicle":"sedan","departure_city":"Sofia","arrival_city":"Varna","selected_at":"2026-09-05T08:00:00Z"}`)
	asUser(c, 1, false)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateRouteBadTimestamp(t *testing.T) {
	h, _ := routeRepos(t)

	c, rec := newCtx(http.MethodPost, "/v1/routes",
		`{"vehicle":"sedan","departure_city":"Sofia","arrival_city":"Varna","selected_at":"tomorrow"}`)
	asUser(c, 1, false)
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompleteRouteNotOwner(t *testing.T) {
	h, mock := routeRepos(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, owner_id, vehicle").
		WillReturnRows(routeRow(9, 2, model.RouteActive))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPatch, "/v1/routes/9/complete", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	asUser(c, 1, false)
	if err := h.Complete(c); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCompleteRouteAlreadyCompleted(t *testing.T) {
	h, mock := routeRepos(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, owner_id, vehicle").
		WillReturnRows(routeRow(9, 1, model.RouteCompleted))
	mock.ExpectExec("UPDATE routes SET status=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPatch, "/v1/routes/9/complete", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	asUser(c, 1, false)
	if err := h.Complete(c); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCompleteRouteNotifiesEachPassengerTwice(t *testing.T) {
	h, mock := routeRepos(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, owner_id, vehicle").
		WillReturnRows(routeRow(9, 1, model.RouteActive))
	mock.ExpectExec("UPDATE routes SET status=").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT requester_id, username FROM ride_requests").
		WillReturnRows(sqlmock.NewRows([]string{"requester_id", "username"}).
			AddRow(11, "anna").
			AddRow(12, "boris"))
	// One notification to the passenger plus one to the owner, per
	// approved passenger.
	for i := 0; i < 4; i++ {
		mock.ExpectExec("INSERT INTO notifications").
			WillReturnResult(sqlmock.NewResult(int64(100+i), 1))
	}
	mock.ExpectCommit()

	c, rec := newCtx(http.MethodPatch, "/v1/routes/9/complete", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	asUser(c, 1, false)
	if err := h.Complete(c); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status     string `json:"status"`
		Passengers int    `json:"passengers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != model.RouteCompleted || resp.Passengers != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
