package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/freetravelapp/freetravel-server/internal/repository"
)

func convRepos(t *testing.T) (*ConversationHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMock(t)
	return NewConversationHandler(
		repository.NewConversationRepo(db),
		repository.NewRouteRepo(db),
		repository.NewUserRepo(db),
	), mock
}

func convRow(id, lo, hi uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "route_id", "user_lo_id", "user_hi_id", "departure_city", "arrival_city", "created_at",
	}).AddRow(id, 5, lo, hi, "Sofia", "Varna", time.Now())
}

func TestSendMessageEmpty(t *testing.T) {
	h, _ := convRepos(t)

	c, rec := newCtx(http.MethodPost, "/v1/conversations/7/messages", `{"text":"   "}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.Send(c); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessageTooLong(t *testing.T) {
	h, _ := convRepos(t)

	long := strings.Repeat("я", 201)
	c, rec := newCtx(http.MethodPost, "/v1/conversations/7/messages", `{"text":"`+long+`"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.Send(c); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessageExactly200Chars(t *testing.T) {
	h, mock := convRepos(t)

	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(convRow(7, 1, 2))
	mock.ExpectExec("INSERT INTO messages").
		WillReturnResult(sqlmock.NewResult(80, 1))
	mock.ExpectQuery("SELECT id, conversation_id, sender_id, text").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "sender_id", "text", "is_read", "created_at",
		}).AddRow(80, 7, 1, strings.Repeat("a", 200), false, time.Now()))

	c, rec := newCtx(http.MethodPost, "/v1/conversations/7/messages",
		`{"text":"`+strings.Repeat("a", 200)+`"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.Send(c); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestSendMessageNotParticipant(t *testing.T) {
	h, mock := convRepos(t)

	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(convRow(7, 2, 3))

	c, rec := newCtx(http.MethodPost, "/v1/conversations/7/messages", `{"text":"hi"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.Send(c); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestMessagesConversationMissing(t *testing.T) {
	h, mock := convRepos(t)

	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newCtx(http.MethodGet, "/v1/conversations/7/messages", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.Messages(c); err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMarkReadOnlyOthersMessages(t *testing.T) {
	h, mock := convRepos(t)

	mock.ExpectQuery("SELECT id, route_id, user_lo_id, user_hi_id").
		WillReturnRows(convRow(7, 1, 2))
	mock.ExpectExec("UPDATE messages SET is_read=1").
		WithArgs(uint64(7), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	c, rec := newCtx(http.MethodPatch, "/v1/conversations/7/read", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 1, false)
	if err := h.MarkRead(c); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStartConversationRequiresRouteOwner(t *testing.T) {
	h, mock := convRepos(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE username=").
		WillReturnRows(userRow(3, "carol", "carol@example.com", "x", true, nil, nil))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, owner_id, vehicle").
		WillReturnRows(routeRow(5, 42, "ACTIVE"))
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/conversations/start",
		`{"route_id":5,"username":"carol"}`)
	asUser(c, 1, false)
	if err := h.Start(c); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
