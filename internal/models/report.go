package models

import "time"

// ReportStatus captures the review stage of a report.
type ReportStatus string

const (
	ReportStatusDraft                ReportStatus = "draft"
	ReportStatusSubmittedToHOD       ReportStatus = "submitted_to_hod"
	ReportStatusSubmittedToPrincipal ReportStatus = "submitted_to_principal"
	ReportStatusApproved             ReportStatus = "approved"
)

var stageOrdinals = map[ReportStatus]int{
	ReportStatusDraft:                0,
	ReportStatusSubmittedToHOD:       1,
	ReportStatusSubmittedToPrincipal: 2,
	ReportStatusApproved:             3,
}

// Ordinal returns the stage rank of the status, or -1 when unknown.
func (s ReportStatus) Ordinal() int {
	if ord, ok := stageOrdinals[s]; ok {
		return ord
	}
	return -1
}

// Valid reports whether the status is part of the workflow.
func (s ReportStatus) Valid() bool {
	return s.Ordinal() >= 0
}

// Next returns the only status reachable from s. Approved is terminal.
func (s ReportStatus) Next() (ReportStatus, bool) {
	switch s {
	case ReportStatusDraft:
		return ReportStatusSubmittedToHOD, true
	case ReportStatusSubmittedToHOD:
		return ReportStatusSubmittedToPrincipal, true
	case ReportStatusSubmittedToPrincipal:
		return ReportStatusApproved, true
	default:
		return "", false
	}
}

// CanAdvance reports whether from -> to is a defined forward transition.
func CanAdvance(from, to ReportStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Report is a point-in-time academic report moving through the review workflow.
type Report struct {
	ID           string       `db:"id" json:"id"`
	ReporterID   string       `db:"reporter_id" json:"reporterId"`
	ReporterRole UserRole     `db:"reporter_role" json:"reporterRole"`
	DepartmentID *string      `db:"department_id" json:"departmentId,omitempty"`
	Title        string       `db:"title" json:"title"`
	Content      *string      `db:"content" json:"content,omitempty"`
	ChartData    ChartData    `db:"chart_data" json:"chartData"`
	Status       ReportStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// ReportFilter constrains listing queries.
type ReportFilter struct {
	ReporterID   string
	DepartmentID string
	Statuses     []ReportStatus
	// IncludeReporterID widens a department or status scope with the actor's own reports.
	IncludeReporterID string
	Limit             int
	Offset            int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
