package repository

import (
	"context"
	"database/sql"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// ReportRepo persists user reports. The daily quota is counted inside
// the same transaction as the insert so two concurrent filings cannot
// both slip under the limit.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a new ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// DB exposes the underlying pool for handler-owned transactions.
func (r *ReportRepo) DB() *sql.DB { return r.db }

// CountTodayTx counts the reporter's filings since local midnight. The
// comparison happens in SQL against CURDATE() so the boundary follows
// the database session timezone.
func (r *ReportRepo) CountTodayTx(ctx context.Context, tx *sql.Tx, reporterID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reports WHERE reporter_id=? AND created_at >= CURDATE()",
		reporterID).Scan(&n)
	return n, err
}

// CreateTx inserts a pending report.
func (r *ReportRepo) CreateTx(ctx context.Context, tx *sql.Tx, rep *model.Report) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reports (reporter_id, reported_id, text, image, status) VALUES (?,?,?,?,?)",
		rep.ReporterID, rep.ReportedID, rep.Text, rep.Image, model.ReportPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	rep.Status = model.ReportPending
	return nil
}

// GetByID fetches a report by id.
func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (model.Report, error) {
	var rep model.Report
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reporter_id, reported_id, text, image, status, created_at, updated_at
		 FROM reports WHERE id=? LIMIT 1`, id).
		Scan(&rep.ID, &rep.ReporterID, &rep.ReportedID, &rep.Text, &rep.Image,
			&rep.Status, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

// UpdateStatus moves the report to the given status and returns the
// reporter's email so the handler can send the status notice.
// sql.ErrNoRows when the report does not exist.
func (r *ReportRepo) UpdateStatus(ctx context.Context, id uint64, status string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx,
		`SELECT u.email FROM reports rp JOIN users u ON u.id = rp.reporter_id WHERE rp.id=?`,
		id).Scan(&email)
	if err != nil {
		return "", err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE reports SET status=? WHERE id=?", status, id); err != nil {
		return "", err
	}
	return email, nil
}
