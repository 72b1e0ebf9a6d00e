package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// UserRepo provides persistence for accounts, their confirmation codes
// and the comments/ratings left on profiles.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,username,email,password_hash,f_name,l_name,user_image,is_active,is_admin,confirm_code,confirm_expiry,avg_rating,account_status,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FName, &u.LName,
		&u.UserImage, &u.IsActive, &u.IsAdmin, &u.ConfirmCode, &u.ConfirmExpiry,
		&u.AvgRating, &u.AccountStatus, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// PurgeInactiveTx removes stale unconfirmed accounts holding the given
// email or username so the handles can be reused. Active accounts are
// never touched here; their uniqueness is enforced by the unique keys
// hit in CreateTx.
func (r *UserRepo) PurgeInactiveTx(ctx context.Context, tx *sql.Tx, email, username string) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM users WHERE (email=? OR username=?) AND is_active=0",
		email, username)
	return err
}

// CreateTx inserts a new inactive user carrying a pending confirmation
// code. Duplicate email/username against a surviving (active) row maps
// to ErrAccountExists.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, u *model.User) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, f_name, l_name, user_image, is_active, confirm_code, confirm_expiry, account_status)
		 VALUES (?,?,?,?,?,?,0,?,?,?)`,
		u.Username, u.Email, u.PasswordHash, u.FName, u.LName, u.UserImage,
		u.ConfirmCode, u.ConfirmExpiry, model.AccountActive)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrAccountExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByUsername fetches a user by handle.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// Activate marks the account confirmed and clears the one-time code.
func (r *UserRepo) Activate(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=1, confirm_code=NULL, confirm_expiry=NULL WHERE id=?", id)
	return err
}

// ClearConfirmCode drops an expired code so it cannot be retried.
func (r *UserRepo) ClearConfirmCode(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET confirm_code=NULL, confirm_expiry=NULL WHERE id=?", id)
	return err
}

// SoftDelete flips the account status to DELETED. Rows stay in place
// because reports and comments reference them.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET account_status=? WHERE id=? AND account_status=?",
		model.AccountDeleted, id, model.AccountActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddComment stores a rating comment and refreshes the rated user's
// average in the same transaction.
func (r *UserRepo) AddComment(ctx context.Context, userID, authorID uint64, text string, rating uint8) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_comments (user_id, author_id, text, rating) VALUES (?,?,?,?)",
		userID, authorID, text, rating); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET avg_rating=(SELECT AVG(rating) FROM user_comments WHERE user_id=?) WHERE id=?",
		userID, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CommentView is a comment joined with its author's public handle.
type CommentView struct {
	ID        uint64    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Rating    uint8     `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ListComments returns a user's received comments, newest first.
func (r *UserRepo) ListComments(ctx context.Context, userID uint64) ([]CommentView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.id, u.username, c.text, c.rating, c.created_at
		 FROM user_comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.user_id = ?
		 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CommentView, 0)
	for rows.Next() {
		var cv CommentView
		if err := rows.Scan(&cv.ID, &cv.Author, &cv.Text, &cv.Rating, &cv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
