package model

import "time"

// Report records one user reporting another.  A reporter may file at most
// two reports per calendar day and never against themselves.  Moderators
// move reports between PENDING, RESOLVED and REJECTED; each status change
// notifies the reporter by email.
type Report struct {
	ID         uint64    // reports.id
	ReporterID uint64    // reports.reporter_id
	ReportedID uint64    // reports.reported_id
	Text       string    // reports.text
	Image      *string   // reports.image (nullable)
	Status     string    // reports.status
	CreatedAt  time.Time // reports.created_at
	UpdatedAt  time.Time // reports.updated_at
}

// Report status values.
const (
	ReportPending  = "PENDING"
	ReportResolved = "RESOLVED"
	ReportRejected = "REJECTED"
)

// ReportsPerDay is the maximum number of reports a user may file per
// calendar day (local midnight boundary).
const ReportsPerDay = 2
