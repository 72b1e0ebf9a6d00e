package repository

import (
	"context"
	"database/sql"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// RequestRepo persists ride requests. The active flag column (1 while
// pending or approved, NULL once rejected) lets the UNIQUE key over
// (route_id, requester_id, active) forbid duplicate live requests while
// still allowing resubmission after a rejection.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a new RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// DB exposes the underlying pool for handler-owned transactions.
func (r *RequestRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a pending request snapshotting the requester's
// contact fields and the route cities. A live duplicate for the same
// (route, requester) maps to ErrDuplicateRequest.
func (r *RequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, req *model.RideRequest) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ride_requests (route_id, requester_id, owner_id,
		   username, f_name, l_name, email,
		   departure_city, arrival_city, requested_at, comment, status, active)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,1)`,
		req.RouteID, req.RequesterID, req.OwnerID,
		req.Username, req.FName, req.LName, req.Email,
		req.DepartureCity, req.ArrivalCity, req.RequestedAt, req.Comment,
		model.RequestPending)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateRequest
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	req.Status = model.RequestPending
	return nil
}

const requestSelect = `SELECT id, route_id, requester_id, owner_id,
	username, f_name, l_name, email,
	departure_city, arrival_city, requested_at, comment, status, active,
	created_at, updated_at
	FROM ride_requests`

func scanRequest(row *sql.Row) (model.RideRequest, error) {
	var rr model.RideRequest
	err := row.Scan(&rr.ID, &rr.RouteID, &rr.RequesterID, &rr.OwnerID,
		&rr.Username, &rr.FName, &rr.LName, &rr.Email,
		&rr.DepartureCity, &rr.ArrivalCity, &rr.RequestedAt, &rr.Comment,
		&rr.Status, &rr.Active, &rr.CreatedAt, &rr.UpdatedAt)
	return rr, err
}

// GetByIDTx fetches a request by id inside a transaction.
func (r *RequestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.RideRequest, error) {
	return scanRequest(tx.QueryRowContext(ctx, requestSelect+" WHERE id=? LIMIT 1", id))
}

// DecideTx moves a pending request into a terminal state. The status
// guard makes double decisions surface as ErrConflict instead of
// silently overwriting. Rejection NULLs the active flag so the same
// passenger may request the route again.
func (r *RequestRepo) DecideTx(ctx context.Context, tx *sql.Tx, id uint64, decision string) error {
	var q string
	if decision == model.RequestRejected {
		q = "UPDATE ride_requests SET status=?, active=NULL WHERE id=? AND status='PENDING'"
	} else {
		q = "UPDATE ride_requests SET status=? WHERE id=? AND status='PENDING'"
	}
	res, err := tx.ExecContext(ctx, q, decision, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ApprovedPassenger identifies one approved passenger on a route,
// enough to address the completion notifications.
type ApprovedPassenger struct {
	RequesterID uint64
	Username    string
}

// ApprovedByRouteTx lists approved passengers for a route inside the
// completion transaction.
func (r *RequestRepo) ApprovedByRouteTx(ctx context.Context, tx *sql.Tx, routeID uint64) ([]ApprovedPassenger, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT requester_id, username FROM ride_requests WHERE route_id=? AND status=?",
		routeID, model.RequestApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ApprovedPassenger, 0)
	for rows.Next() {
		var p ApprovedPassenger
		if err := rows.Scan(&p.RequesterID, &p.Username); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListByOwner returns requests addressed to the given route owner,
// newest first, so drivers can review candidates.
func (r *RequestRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.RideRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		requestSelect+" WHERE owner_id=? ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RideRequest, 0)
	for rows.Next() {
		var rr model.RideRequest
		if err := rows.Scan(&rr.ID, &rr.RouteID, &rr.RequesterID, &rr.OwnerID,
			&rr.Username, &rr.FName, &rr.LName, &rr.Email,
			&rr.DepartureCity, &rr.ArrivalCity, &rr.RequestedAt, &rr.Comment,
			&rr.Status, &rr.Active, &rr.CreatedAt, &rr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
