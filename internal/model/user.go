package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Accounts are created inactive and become active once the
// registered email address is confirmed with a short-lived code.  Active
// accounts are never hard-deleted because reports and comments keep
// referencing them; AccountStatus flips to DELETED instead.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Username      – unique public handle.
//  Email         – unique email address.
//  PasswordHash  – bcrypt hashed password.
//  FName, LName  – display name parts.
//  UserImage     – optional avatar reference.
//  IsActive      – whether the email has been confirmed; gates login.
//  IsAdmin       – whether the user may moderate reports.
//  ConfirmCode   – pending 6-digit confirmation code (nullable).
//  ConfirmExpiry – when the pending code stops being accepted (nullable).
//  AvgRating     – derived mean of the received ratings.
//  AccountStatus – ACTIVE or DELETED (soft delete).
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64     // users.id
	Username      string     // users.username
	Email         string     // users.email
	PasswordHash  string     // users.password_hash
	FName         string     // users.f_name
	LName         string     // users.l_name
	UserImage     *string    // users.user_image (nullable)
	IsActive      bool       // users.is_active
	IsAdmin       bool       // users.is_admin
	ConfirmCode   *string    // users.confirm_code (nullable)
	ConfirmExpiry *time.Time // users.confirm_expiry (nullable)
	AvgRating     float64    // users.avg_rating
	AccountStatus string     // users.account_status
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     time.Time  // users.updated_at
}

// Account status values for the users table.
const (
	AccountActive  = "ACTIVE"
	AccountDeleted = "DELETED"
)

// UserComment is a rating comment left on a user's profile after a trip.
// Comments belong to the rated user and keep the author's id so renames
// do not break history.
type UserComment struct {
	ID        uint64    // user_comments.id
	UserID    uint64    // user_comments.user_id (rated user)
	AuthorID  uint64    // user_comments.author_id
	Text      string    // user_comments.text
	Rating    uint8     // user_comments.rating (1..5)
	CreatedAt time.Time // user_comments.created_at
}
