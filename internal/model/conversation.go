package model

import "time"

// Conversation is the private message thread between a route owner and an
// approved passenger.  The participant pair is stored normalized
// (UserLoID < UserHiID) so a UNIQUE key over (route_id, user_lo_id,
// user_hi_id) makes find-or-create race-free regardless of argument
// order.  Departure and arrival cities are denormalized from the route at
// creation time.
type Conversation struct {
	ID            uint64    // conversations.id
	RouteID       uint64    // conversations.route_id
	UserLoID      uint64    // conversations.user_lo_id
	UserHiID      uint64    // conversations.user_hi_id
	DepartureCity string    // conversations.departure_city
	ArrivalCity   string    // conversations.arrival_city
	CreatedAt     time.Time // conversations.created_at
}

// Message belongs exclusively to its conversation and never exists
// independently.  Text is trimmed, non-empty and at most 200 characters.
type Message struct {
	ID             uint64    // messages.id
	ConversationID uint64    // messages.conversation_id
	SenderID       uint64    // messages.sender_id
	Text           string    // messages.text
	Read           bool      // messages.is_read
	CreatedAt      time.Time // messages.created_at
}

// MaxMessageLen caps message text length in characters.
const MaxMessageLen = 200
