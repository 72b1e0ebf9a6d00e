package repository

import (
	"context"
	"database/sql"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// ConversationRepo persists conversations and their messages. The
// participant pair is normalized on write (lower id first) and covered
// by a UNIQUE key together with the route id, so find-or-create cannot
// produce duplicates even under concurrent approvals of the same
// request.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo returns a new ConversationRepo bound to the given database.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

// DB exposes the underlying pool for handler-owned transactions.
func (r *ConversationRepo) DB() *sql.DB { return r.db }

// normalizePair orders two user ids ascending.
func normalizePair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

const convSelect = `SELECT id, route_id, user_lo_id, user_hi_id, departure_city, arrival_city, created_at FROM conversations`

func scanConversation(row *sql.Row) (model.Conversation, error) {
	var cv model.Conversation
	err := row.Scan(&cv.ID, &cv.RouteID, &cv.UserLoID, &cv.UserHiID,
		&cv.DepartureCity, &cv.ArrivalCity, &cv.CreatedAt)
	return cv, err
}

// FindOrCreateTx looks up the conversation for (routeID, {userA,userB})
// and creates it with the denormalized route cities when absent. A
// concurrent insert losing the race on the unique key falls back to
// re-reading the winner's row, so exactly one conversation ever exists
// per route and pair.
func (r *ConversationRepo) FindOrCreateTx(ctx context.Context, tx *sql.Tx, routeID, userA, userB uint64, depCity, arrCity string) (model.Conversation, error) {
	lo, hi := normalizePair(userA, userB)
	cv, err := scanConversation(tx.QueryRowContext(ctx,
		convSelect+" WHERE route_id=? AND user_lo_id=? AND user_hi_id=? LIMIT 1",
		routeID, lo, hi))
	if err == nil {
		return cv, nil
	}
	if err != sql.ErrNoRows {
		return model.Conversation{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (route_id, user_lo_id, user_hi_id, departure_city, arrival_city)
		 VALUES (?,?,?,?,?)`,
		routeID, lo, hi, depCity, arrCity)
	if err != nil {
		if isDuplicateKey(err) {
			return scanConversation(tx.QueryRowContext(ctx,
				convSelect+" WHERE route_id=? AND user_lo_id=? AND user_hi_id=? LIMIT 1",
				routeID, lo, hi))
		}
		return model.Conversation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Conversation{}, err
	}
	return scanConversation(tx.QueryRowContext(ctx, convSelect+" WHERE id=? LIMIT 1", uint64(id)))
}

// GetByID fetches a conversation by id.
func (r *ConversationRepo) GetByID(ctx context.Context, id uint64) (model.Conversation, error) {
	return scanConversation(r.db.QueryRowContext(ctx, convSelect+" WHERE id=? LIMIT 1", id))
}

// CreateMessage appends an unread message to a conversation.
func (r *ConversationRepo) CreateMessage(ctx context.Context, conversationID, senderID uint64, text string) (model.Message, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, sender_id, text, is_read) VALUES (?,?,?,0)",
		conversationID, senderID, text)
	if err != nil {
		return model.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	var m model.Message
	err = r.db.QueryRowContext(ctx,
		"SELECT id, conversation_id, sender_id, text, is_read, created_at FROM messages WHERE id=?",
		uint64(id)).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Read, &m.CreatedAt)
	return m, err
}

// ListMessages returns a conversation's messages ascending by creation
// time.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, text, is_read, created_at
		 FROM messages WHERE conversation_id=? ORDER BY created_at ASC, id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag on every message the reader did not
// author.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, readerID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE messages SET is_read=1 WHERE conversation_id=? AND sender_id<>? AND is_read=0",
		conversationID, readerID)
	return err
}

// ConversationView annotates a conversation with the other participant
// and the caller's unread count.
type ConversationView struct {
	ID            uint64 `json:"id"`
	RouteID       uint64 `json:"route_id"`
	DepartureCity string `json:"departure_city"`
	ArrivalCity   string `json:"arrival_city"`
	Other         struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
	} `json:"other"`
	UnreadCount int `json:"unread_count"`
}

// ListForUser returns every conversation the user participates in, each
// annotated with the other participant and the number of unread
// messages addressed to the caller.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID uint64) ([]ConversationView, error) {
	const q = `SELECT c.id, c.route_id, c.departure_city, c.arrival_city,
	                  u.id, u.username,
	                  (SELECT COUNT(*) FROM messages m
	                   WHERE m.conversation_id = c.id AND m.sender_id <> ? AND m.is_read = 0)
	           FROM conversations c
	           JOIN users u ON u.id = IF(c.user_lo_id = ?, c.user_hi_id, c.user_lo_id)
	           WHERE c.user_lo_id = ? OR c.user_hi_id = ?
	           ORDER BY c.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ConversationView, 0)
	for rows.Next() {
		var v ConversationView
		if err := rows.Scan(&v.ID, &v.RouteID, &v.DepartureCity, &v.ArrivalCity,
			&v.Other.ID, &v.Other.Username, &v.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
