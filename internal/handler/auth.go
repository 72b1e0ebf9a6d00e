package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/freetravelapp/freetravel-server/internal/config"
	"github.com/freetravelapp/freetravel-server/internal/model"
	"github.com/freetravelapp/freetravel-server/internal/repository"
	"github.com/freetravelapp/freetravel-server/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Mailer utils.Mailer
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, m utils.Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Mailer: m}
}

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FName     string `json:"f_name"`
	LName     string `json:"l_name"`
	UserImage string `json:"user_image"`
}
type confirmReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userPart is the sanitized user representation returned by the auth
// endpoints. Password hash and confirmation code never cross the wire.
type userPart struct {
	ID        uint64  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FName     string  `json:"f_name"`
	LName     string  `json:"l_name"`
	UserImage *string `json:"user_image,omitempty"`
	IsActive  bool    `json:"is_active"`
	AvgRating float64 `json:"avg_rating"`
}

func sanitize(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FName:     u.FName,
		LName:     u.LName,
		UserImage: u.UserImage,
		IsActive:  u.IsActive,
		AvgRating: u.AvgRating,
	}
}

// Register creates an inactive account and emails a 6-digit confirmation
// code with a 10-minute expiry. A stale unconfirmed account holding the
// same email or username is purged first; an active one is a conflict.
// The mailer is checked before any write: without a way to deliver the
// code the account could never be activated.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" || req.FName == "" || req.LName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password/f_name/l_name required"})
	}
	if !emailRx.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if h.Mailer == nil || !h.Mailer.Configured() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "mail service unavailable"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}
	code, expiry, err := utils.NewConfirmationCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "code generation failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Users.PurgeInactiveTx(ctx, tx, req.Email, req.Username); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	var img *string
	if s := strings.TrimSpace(req.UserImage); s != "" {
		img = &s
	}
	u := model.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		FName:         req.FName,
		LName:         req.LName,
		UserImage:     img,
		ConfirmCode:   &code,
		ConfirmExpiry: &expiry,
	}
	if err := h.Users.CreateTx(ctx, tx, &u); err != nil {
		if err == repository.ErrAccountExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Best-effort: the account is persisted; a lost email only delays
	// confirmation until the user re-registers.
	if err := h.Mailer.Send(u.Email, "Confirm your FreeTravel account", utils.ConfirmationBody(code)); err != nil {
		log.Printf("mailer: confirmation send to %s failed: %v", u.Email, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"user": sanitize(u)})
}

// Confirm activates an account when the (email, code) pair matches and
// the code has not expired. Re-confirming an already active account is
// treated as an invalid code.
func (h *AuthHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.IsActive || u.ConfirmCode == nil || *u.ConfirmCode != req.Code {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid code"})
	}
	if u.ConfirmExpiry == nil || time.Now().UTC().After(*u.ConfirmExpiry) {
		_ = h.Users.ClearConfirmCode(ctx, u.ID)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code expired"})
	}
	if err := h.Users.Activate(ctx, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activation failed"})
	}
	u.IsActive = true
	return c.JSON(http.StatusOK, echo.Map{"user": sanitize(u)})
}

// Login verifies credentials and returns a signed access token. Missing
// users, unconfirmed accounts, soft-deleted accounts and wrong passwords
// all answer the same 401 so the response does not leak which part
// failed.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || u.AccountStatus == model.AccountDeleted {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.IsAdmin, h.Cfg.TokenTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":   access.Token,
		"expires": access.Exp,
		"user":    sanitize(u),
	})
}

// Me is a simple protected endpoint echoing the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  c.Get("user_id"),
		"is_admin": c.Get("is_admin"),
	})
}
