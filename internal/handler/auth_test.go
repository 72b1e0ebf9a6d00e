package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/freetravelapp/freetravel-server/internal/config"
	"github.com/freetravelapp/freetravel-server/internal/repository"
	"github.com/freetravelapp/freetravel-server/internal/utils"
)

func testCfg() config.Config {
	return config.Config{JWTSecret: "test-secret", TokenTTLMin: 1440, BcryptCost: 4}
}

func TestRegisterMailerUnavailable(t *testing.T) {
	db, _ := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: false})

	c, rec := newCtx(http.MethodPost, "/v1/auth/register",
		`{"username":"anna","email":"anna@example.com","password":"pw","f_name":"Anna","l_name":"K"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRegisterCreatesInactiveUser(t *testing.T) {
	db, mock := newMock(t)
	m := &fakeMailer{configured: true}
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), m)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newCtx(http.MethodPost, "/v1/auth/register",
		`{"username":"anna","email":"Anna@Example.com","password":"pw123456","f_name":"Anna","l_name":"K"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(m.to) != 1 || m.to[0] != "anna@example.com" {
		t.Errorf("confirmation mail went to %v", m.to)
	}

	var resp struct {
		User struct {
			Email    string `json:"email"`
			IsActive bool   `json:"is_active"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.Email != "anna@example.com" {
		t.Errorf("email not normalized: %q", resp.User.Email)
	}
	if resp.User.IsActive {
		t.Error("new account must start inactive")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterDuplicateAccount(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errDuplicate())
	mock.ExpectRollback()

	c, rec := newCtx(http.MethodPost, "/v1/auth/register",
		`{"username":"anna","email":"anna@example.com","password":"pw","f_name":"Anna","l_name":"K"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	hash, err := utils.HashPassword("right-password", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", hash, true, nil, nil))

	c, rec := newCtx(http.MethodPost, "/v1/auth/login",
		`{"email":"anna@example.com","password":"wrong-password"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnconfirmedAccount(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	hash, _ := utils.HashPassword("pw", 4)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", hash, false, nil, nil))

	c, rec := newCtx(http.MethodPost, "/v1/auth/login",
		`{"email":"anna@example.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	hash, _ := utils.HashPassword("pw123456", 4)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", hash, true, nil, nil))

	c, rec := newCtx(http.MethodPost, "/v1/auth/login",
		`{"email":"anna@example.com","password":"pw123456"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Error("empty token")
	}
}

func TestConfirmExpiredCode(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	code := "123456"
	expired := time.Now().UTC().Add(-time.Minute)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", "x", false, &code, &expired))
	// The stale code is dropped so it cannot be retried.
	mock.ExpectExec("UPDATE users SET confirm_code=NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newCtx(http.MethodPost, "/v1/auth/confirm",
		`{"email":"anna@example.com","code":"123456"}`)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConfirmActivates(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	code := "654321"
	expiry := time.Now().UTC().Add(5 * time.Minute)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", "x", false, &code, &expiry))
	mock.ExpectExec("UPDATE users SET is_active=1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newCtx(http.MethodPost, "/v1/auth/confirm",
		`{"email":"anna@example.com","code":"654321"}`)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmWrongCode(t *testing.T) {
	db, mock := newMock(t)
	h := NewAuthHandler(testCfg(), repository.NewUserRepo(db), &fakeMailer{configured: true})

	code := "654321"
	expiry := time.Now().UTC().Add(5 * time.Minute)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WillReturnRows(userRow(1, "anna", "anna@example.com", "x", false, &code, &expiry))

	c, rec := newCtx(http.MethodPost, "/v1/auth/confirm",
		`{"email":"anna@example.com","code":"000000"}`)
	if err := h.Confirm(c); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
