package model

import "time"

// Notification is an append-only, recipient-addressed event record
// surfaced in-app.  The recipient is stored as a user id foreign key;
// the username-addressed API resolves handles at the boundary so renames
// cannot orphan history.  "Deleting" a notification only flips its
// status; rows are retained for audit.
type Notification struct {
	ID              uint64    // notifications.id
	RecipientID     uint64    // notifications.recipient_id
	SenderID        uint64    // notifications.sender_id
	RouteID         uint64    // notifications.route_id
	Message         string    // notifications.message
	PersonalMessage *string   // notifications.personal_message (nullable)
	Read            bool      // notifications.is_read
	Status          string    // notifications.status
	CreatedAt       time.Time // notifications.created_at
}

// Notification status values.
const (
	NotificationActive  = "ACTIVE"
	NotificationDeleted = "DELETED"
)
