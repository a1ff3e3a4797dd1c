package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

var (
	// ErrStaleTransition is returned when the stored status no longer matches the expected source status.
	ErrStaleTransition = errors.New("report status changed concurrently")
	// ErrIllegalTransition is returned for status pairs outside the forward workflow.
	ErrIllegalTransition = errors.New("illegal report status transition")
)

const reportColumns = `id, reporter_id, reporter_role, department_id, title, content, chart_data, status, created_at, updated_at`

// ReportRepository persists reports and their chart-data envelopes.
type ReportRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a draft report. ID, status and timestamps are always server-assigned.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if strings.TrimSpace(report.Title) == "" {
		return fmt.Errorf("create report: title is required")
	}
	now := r.now()
	report.ID = uuid.NewString()
	report.Status = models.ReportStatusDraft
	report.CreatedAt = now
	report.UpdatedAt = now

	const query = `INSERT INTO reports (` + reportColumns + `)
VALUES (:id, :reporter_id, :reporter_role, :department_id, :title, :content, :chart_data, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID fetches a report. Missing rows surface sql.ErrNoRows.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports in the filter's scope, newest first, along with the total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	where, args := buildReportFilter(filter)

	countQuery := "SELECT COUNT(*) FROM reports" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf("SELECT %s FROM reports%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", reportColumns, where, limit, offset)

	reports := make([]models.Report, 0)
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}

// buildReportFilter ANDs the scope conditions and ORs in the actor's own reports when requested.
func buildReportFilter(filter models.ReportFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)

	if filter.ReporterID != "" {
		args = append(args, filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	clause := strings.Join(conditions, " AND ")
	if filter.IncludeReporterID != "" {
		args = append(args, filter.IncludeReporterID)
		own := fmt.Sprintf("reporter_id = $%d", len(args))
		if clause == "" {
			clause = own
		} else {
			clause = fmt.Sprintf("((%s) OR %s)", clause, own)
		}
	}
	if clause == "" {
		return "", args
	}
	return " WHERE " + clause, args
}

// UpdateStatus moves a report from -> to only if it is still at from, bumping updated_at.
// It returns the new updated_at.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus) (time.Time, error) {
	if !models.CanAdvance(from, to) {
		return time.Time{}, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	const query = `UPDATE reports SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING updated_at`
	var updatedAt time.Time
	if err := r.db.QueryRowxContext(ctx, query, to, r.now(), id, from).Scan(&updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrStaleTransition
		}
		return time.Time{}, fmt.Errorf("update report status: %w", err)
	}
	return updatedAt, nil
}

// Delete hard-deletes a report. Missing rows surface sql.ErrNoRows.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
