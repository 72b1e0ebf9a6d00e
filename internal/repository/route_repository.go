package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// RouteRepo provides CRUD operations for driver-posted routes. Creation
// runs inside a caller-owned transaction together with the rolling-hour
// quota check; the UNIQUE key over (owner_id, departure_city,
// arrival_city, selected_at) closes the remaining race window between
// concurrent creators.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a new RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions that
// span multiple repositories.
func (r *RouteRepo) DB() *sql.DB { return r.db }

// CountRecentByOwnerTx counts the owner's routes created after the given
// instant. Used for the three-routes-per-rolling-hour quota.
func (r *RouteRepo) CountRecentByOwnerTx(ctx context.Context, tx *sql.Tx, ownerID uint64, since time.Time) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM routes WHERE owner_id=? AND created_at>=?",
		ownerID, since).Scan(&n)
	return n, err
}

// CreateTx inserts a new active route and populates the generated ID.
// A duplicate (owner, departure, arrival, departure time) maps to
// ErrDuplicateRoute.
func (r *RouteRepo) CreateTx(ctx context.Context, tx *sql.Tx, rt *model.Route) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO routes (owner_id, vehicle, registration_num,
		   departure_city, departure_street, departure_number,
		   arrival_city, arrival_street, arrival_number,
		   selected_at, title, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rt.OwnerID, rt.Vehicle, rt.RegistrationNum,
		rt.DepartureCity, rt.DepartureStreet, rt.DepartureNumber,
		rt.ArrivalCity, rt.ArrivalStreet, rt.ArrivalNumber,
		rt.SelectedAt, rt.Title, model.RouteActive)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateRoute
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	rt.Status = model.RouteActive
	return nil
}

// RouteWithOwner is a route joined with the public projection of its
// owner, as returned by the active-routes listing.
type RouteWithOwner struct {
	ID              uint64    `json:"id"`
	Vehicle         string    `json:"vehicle"`
	RegistrationNum string    `json:"registration_num"`
	DepartureCity   string    `json:"departure_city"`
	DepartureStreet string    `json:"departure_street"`
	DepartureNumber string    `json:"departure_number"`
	ArrivalCity     string    `json:"arrival_city"`
	ArrivalStreet   string    `json:"arrival_street"`
	ArrivalNumber   string    `json:"arrival_number"`
	SelectedAt      time.Time `json:"selected_at"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Owner           struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		FName    string `json:"f_name"`
		LName    string `json:"l_name"`
		Email    string `json:"email"`
	} `json:"owner"`
}

// ListActive returns routes departing at or after now with status
// ACTIVE, ascending by departure time, each joined with its owner's
// public fields.
func (r *RouteRepo) ListActive(ctx context.Context, now time.Time) ([]RouteWithOwner, error) {
	const q = `SELECT r.id, r.vehicle, r.registration_num,
	                  r.departure_city, r.departure_street, r.departure_number,
	                  r.arrival_city, r.arrival_street, r.arrival_number,
	                  r.selected_at, r.title, r.status,
	                  u.id, u.username, u.f_name, u.l_name, u.email
	           FROM routes r
	           JOIN users u ON u.id = r.owner_id
	           WHERE r.selected_at >= ? AND r.status = ?
	           ORDER BY r.selected_at ASC`
	rows, err := r.db.QueryContext(ctx, q, now, model.RouteActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RouteWithOwner, 0)
	for rows.Next() {
		var d RouteWithOwner
		if err := rows.Scan(
			&d.ID, &d.Vehicle, &d.RegistrationNum,
			&d.DepartureCity, &d.DepartureStreet, &d.DepartureNumber,
			&d.ArrivalCity, &d.ArrivalStreet, &d.ArrivalNumber,
			&d.SelectedAt, &d.Title, &d.Status,
			&d.Owner.ID, &d.Owner.Username, &d.Owner.FName, &d.Owner.LName, &d.Owner.Email,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID fetches a route by id. sql.ErrNoRows is returned when absent.
func (r *RouteRepo) GetByID(ctx context.Context, id uint64) (model.Route, error) {
	return r.scanRoute(r.db.QueryRowContext(ctx, routeSelect+" WHERE id=? LIMIT 1", id))
}

// GetByIDTx is GetByID inside a caller-owned transaction.
func (r *RouteRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Route, error) {
	return r.scanRoute(tx.QueryRowContext(ctx, routeSelect+" WHERE id=? LIMIT 1", id))
}

const routeSelect = `SELECT id, owner_id, vehicle, registration_num,
	departure_city, departure_street, departure_number,
	arrival_city, arrival_street, arrival_number,
	selected_at, title, status, created_at, updated_at
	FROM routes`

func (r *RouteRepo) scanRoute(row *sql.Row) (model.Route, error) {
	var rt model.Route
	err := row.Scan(&rt.ID, &rt.OwnerID, &rt.Vehicle, &rt.RegistrationNum,
		&rt.DepartureCity, &rt.DepartureStreet, &rt.DepartureNumber,
		&rt.ArrivalCity, &rt.ArrivalStreet, &rt.ArrivalNumber,
		&rt.SelectedAt, &rt.Title, &rt.Status, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

// CompleteTx flips the route to COMPLETED. The status guard in the WHERE
// clause makes completion idempotent-safe: zero affected rows on an
// existing route means it was already completed and maps to ErrConflict.
func (r *RouteRepo) CompleteTx(ctx context.Context, tx *sql.Tx, routeID uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE routes SET status=? WHERE id=? AND status=?",
		model.RouteCompleted, routeID, model.RouteActive)
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
