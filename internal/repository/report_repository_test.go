package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

var reportRowColumns = []string{"id", "reporter_id", "reporter_role", "department_id", "title", "content", "chart_data", "status", "created_at", "updated_at"}

const attendanceEnvelope = `{"type":"class_report","selectedCharts":["attendance"],"attendanceData":[{"name":"W1","attendance":90}]}`

func TestReportRepositoryCreateAssignsDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	dept := "dept-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WithArgs(sqlmock.AnyArg(), "teacher-1", "teacher", dept, "Q1 Report", nil, sqlmock.AnyArg(), "draft", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	report := &models.Report{
		ID:           "client-chosen",
		ReporterID:   "teacher-1",
		ReporterRole: models.RoleTeacher,
		DepartmentID: &dept,
		Title:        "Q1 Report",
		Status:       models.ReportStatusApproved,
		ChartData: models.NewClassReportData(models.ClassReportData{
			SelectedCharts: []string{models.ChartAttendance},
		}),
	}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.NotEqual(t, "client-chosen", report.ID)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	assert.False(t, report.CreatedAt.IsZero())
	assert.Equal(t, report.CreatedAt, report.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCreateRejectsBlankTitle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	err := NewReportRepository(db).Create(context.Background(), &models.Report{Title: "   "})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDDecodesEnvelope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows(reportRowColumns).
		AddRow("rep-1", "teacher-1", "teacher", "dept-1", "Q1 Report", nil, attendanceEnvelope, "submitted_to_hod", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, reporter_id, reporter_role, department_id, title, content, chart_data, status, created_at, updated_at FROM reports WHERE id = $1")).
		WithArgs("rep-1").
		WillReturnRows(rows)

	report, err := NewReportRepository(db).GetByID(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmittedToHOD, report.Status)
	assert.Equal(t, models.ChartDataClassReport, report.ChartData.Type)
	require.NotNil(t, report.ChartData.ClassReport)
	assert.Equal(t, []string{models.ChartAttendance}, report.ChartData.RenderedCharts())
	require.NotNil(t, report.DepartmentID)
	assert.Equal(t, "dept-1", *report.DepartmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := NewReportRepository(db).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReportRepositoryListDepartmentScopeWithOwnReports(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE ((department_id = $1) OR reporter_id = $2)")).
		WithArgs("dept-1", "hod-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	rows := sqlmock.NewRows(reportRowColumns).
		AddRow("rep-2", "teacher-2", "teacher", "dept-1", "Term Review", "notes", attendanceEnvelope, "draft", now, now).
		AddRow("rep-1", "hod-1", "hod", nil, "HOD Summary", nil, attendanceEnvelope, "approved", now.Add(-time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE ((department_id = $1) OR reporter_id = $2) ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WithArgs("dept-1", "hod-1").
		WillReturnRows(rows)

	reports, total, err := NewReportRepository(db).List(context.Background(), models.ReportFilter{
		DepartmentID:      "dept-1",
		IncludeReporterID: "hod-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, reports, 2)
	assert.Equal(t, "rep-2", reports[0].ID)
	require.NotNil(t, reports[0].Content)
	assert.Equal(t, "notes", *reports[0].Content)
	assert.Nil(t, reports[1].DepartmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListStatusScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE ((status = ANY($1)) OR reporter_id = $2)")).
		WithArgs(sqlmock.AnyArg(), "principal-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT 5 OFFSET 10")).
		WithArgs(sqlmock.AnyArg(), "principal-1").
		WillReturnRows(sqlmock.NewRows(reportRowColumns))

	reports, total, err := NewReportRepository(db).List(context.Background(), models.ReportFilter{
		Statuses:          []models.ReportStatus{models.ReportStatusSubmittedToPrincipal, models.ReportStatusApproved},
		IncludeReporterID: "principal-1",
		Limit:             5,
		Offset:            10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, reports)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildReportFilter(t *testing.T) {
	where, args := buildReportFilter(models.ReportFilter{ReporterID: "teacher-1"})
	assert.Equal(t, " WHERE reporter_id = $1", where)
	assert.Equal(t, []interface{}{"teacher-1"}, args)

	where, args = buildReportFilter(models.ReportFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, _ = buildReportFilter(models.ReportFilter{IncludeReporterID: "u-1"})
	assert.Equal(t, " WHERE reporter_id = $1", where)
}

func TestReportRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	updated := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING updated_at")).
		WithArgs("submitted_to_hod", sqlmock.AnyArg(), "rep-1", "draft").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

	at, err := NewReportRepository(db).UpdateStatus(context.Background(), "rep-1", models.ReportStatusDraft, models.ReportStatusSubmittedToHOD)
	require.NoError(t, err)
	assert.True(t, updated.Equal(at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateStatusStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $1")).
		WithArgs("approved", sqlmock.AnyArg(), "rep-1", "submitted_to_principal").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	_, err := NewReportRepository(db).UpdateStatus(context.Background(), "rep-1", models.ReportStatusSubmittedToPrincipal, models.ReportStatusApproved)
	require.ErrorIs(t, err, ErrStaleTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateStatusIllegal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	_, err := NewReportRepository(db).UpdateStatus(context.Background(), "rep-1", models.ReportStatusDraft, models.ReportStatusApproved)
	require.ErrorIs(t, err, ErrIllegalTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("rep-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "rep-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("rep-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "rep-1"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
