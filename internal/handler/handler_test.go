package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

// errDuplicate mimics the MySQL duplicate-key error text.
func errDuplicate() error {
	return errors.New("Error 1062 (23000): Duplicate entry")
}

// newMock returns a sqlmock-backed pool closed on test cleanup.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newCtx builds an Echo context around a JSON request and returns the
// recorder capturing the response.
func newCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asUser marks the context as authenticated the way the JWT middleware
// would.
func asUser(c echo.Context, id uint64, admin bool) {
	c.Set("user_id", id)
	c.Set("is_admin", admin)
}

// fakeMailer records sends instead of talking SMTP.
type fakeMailer struct {
	configured bool
	to         []string
	subjects   []string
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) Send(to, subject, body string) error {
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	return nil
}

const userColList = "id,username,email,password_hash,f_name,l_name,user_image,is_active,is_admin,confirm_code,confirm_expiry,avg_rating,account_status,created_at,updated_at"

// userRow yields one full users row for sqlmock scans.
func userRow(id uint64, username, email, hash string, active bool, code *string, expiry *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(userColList, ",")).
		AddRow(id, username, email, hash, "First", "Last", nil, active, false,
			code, expiry, 0.0, "ACTIVE", time.Now(), time.Now())
}
