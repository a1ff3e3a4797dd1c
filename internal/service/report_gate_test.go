package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

func deptPtr(s string) *string { return &s }

var (
	gateTeacher   = models.Actor{ID: "teacher-1", Role: models.RoleTeacher, DepartmentID: deptPtr("dept-1")}
	gateOther     = models.Actor{ID: "teacher-2", Role: models.RoleTeacher, DepartmentID: deptPtr("dept-1")}
	gateHOD       = models.Actor{ID: "hod-1", Role: models.RoleHOD, DepartmentID: deptPtr("dept-1")}
	gateOtherHOD  = models.Actor{ID: "hod-2", Role: models.RoleHOD, DepartmentID: deptPtr("dept-2")}
	gatePrincipal = models.Actor{ID: "principal-1", Role: models.RolePrincipal}
)

func gateReport(status models.ReportStatus) *models.Report {
	return &models.Report{ID: "rep-1", ReporterID: "teacher-1", ReporterRole: models.RoleTeacher, DepartmentID: deptPtr("dept-1"), Status: status}
}

func TestReportGateTransitionMatrix(t *testing.T) {
	gate := ReportGate{}
	actors := []models.Actor{gateTeacher, gateOther, gateHOD, gateOtherHOD, gatePrincipal}
	statuses := []models.ReportStatus{
		models.ReportStatusDraft,
		models.ReportStatusSubmittedToHOD,
		models.ReportStatusSubmittedToPrincipal,
		models.ReportStatusApproved,
	}
	allowed := map[models.ReportStatus]string{
		models.ReportStatusDraft:                gateTeacher.ID,
		models.ReportStatusSubmittedToHOD:       gateHOD.ID,
		models.ReportStatusSubmittedToPrincipal: gatePrincipal.ID,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			for _, actor := range actors {
				err := gate.CheckTransition(actor, gateReport(from), to)
				next, ok := from.Next()
				if ok && next == to && allowed[from] == actor.ID {
					assert.NoError(t, err, "%s %s->%s", actor.ID, from, to)
					continue
				}
				require.Error(t, err, "%s %s->%s", actor.ID, from, to)
				assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition), "%s %s->%s", actor.ID, from, to)
			}
		}
	}
}

func TestReportGatePrincipalCannotSubmitOwnDraft(t *testing.T) {
	gate := ReportGate{}
	report := gateReport(models.ReportStatusDraft)
	report.ReporterID = gatePrincipal.ID
	report.ReporterRole = models.RolePrincipal

	err := gate.CheckTransition(gatePrincipal, report, models.ReportStatusSubmittedToHOD)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.True(t, gate.CanDelete(gatePrincipal, report))
}

func TestReportGateHODSubmitsOwnDraft(t *testing.T) {
	gate := ReportGate{}
	report := gateReport(models.ReportStatusDraft)
	report.ReporterID = gateHOD.ID
	report.ReporterRole = models.RoleHOD

	require.NoError(t, gate.CheckTransition(gateHOD, report, models.ReportStatusSubmittedToHOD))
	report.Status = models.ReportStatusSubmittedToHOD
	require.NoError(t, gate.CheckTransition(gateHOD, report, models.ReportStatusSubmittedToPrincipal))
	require.Error(t, gate.CheckTransition(gateHOD, report, models.ReportStatusApproved))
}

func TestReportGateVisibility(t *testing.T) {
	gate := ReportGate{}

	draft := gateReport(models.ReportStatusDraft)
	assert.True(t, gate.CanView(gateTeacher, draft))
	assert.False(t, gate.CanView(gateOther, draft))
	assert.True(t, gate.CanView(gateHOD, draft))
	assert.False(t, gate.CanView(gateOtherHOD, draft))
	assert.False(t, gate.CanView(gatePrincipal, draft))

	forwarded := gateReport(models.ReportStatusSubmittedToPrincipal)
	assert.True(t, gate.CanView(gatePrincipal, forwarded))
	assert.True(t, gate.CanView(gatePrincipal, gateReport(models.ReportStatusApproved)))

	own := gateReport(models.ReportStatusDraft)
	own.ReporterID = gatePrincipal.ID
	assert.True(t, gate.CanView(gatePrincipal, own))

	assert.False(t, gate.CanView(models.Actor{}, draft))
	assert.False(t, gate.CanView(gateTeacher, nil))
}

func TestReportGateDelete(t *testing.T) {
	gate := ReportGate{}

	for _, status := range []models.ReportStatus{models.ReportStatusDraft, models.ReportStatusSubmittedToHOD, models.ReportStatusSubmittedToPrincipal, models.ReportStatusApproved} {
		assert.True(t, gate.CanDelete(gateTeacher, gateReport(status)), status)
		assert.False(t, gate.CanDelete(gateOther, gateReport(status)), status)
		assert.False(t, gate.CanDelete(gateOtherHOD, gateReport(status)), status)
	}

	assert.False(t, gate.CanDelete(gateHOD, gateReport(models.ReportStatusDraft)))
	assert.True(t, gate.CanDelete(gateHOD, gateReport(models.ReportStatusSubmittedToHOD)))
	assert.False(t, gate.CanDelete(gateHOD, gateReport(models.ReportStatusSubmittedToPrincipal)))
	assert.False(t, gate.CanDelete(gatePrincipal, gateReport(models.ReportStatusSubmittedToHOD)))
	assert.True(t, gate.CanDelete(gatePrincipal, gateReport(models.ReportStatusSubmittedToPrincipal)))
	assert.True(t, gate.CanDelete(gatePrincipal, gateReport(models.ReportStatusApproved)))
}

func TestReportGateListScope(t *testing.T) {
	gate := ReportGate{}

	filter, err := gate.ListScope(gateTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFilter{ReporterID: "teacher-1"}, filter)

	filter, err = gate.ListScope(gateHOD)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFilter{DepartmentID: "dept-1", IncludeReporterID: "hod-1"}, filter)

	filter, err = gate.ListScope(models.Actor{ID: "hod-9", Role: models.RoleHOD})
	require.NoError(t, err)
	assert.Equal(t, models.ReportFilter{ReporterID: "hod-9"}, filter)

	filter, err = gate.ListScope(gatePrincipal)
	require.NoError(t, err)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusSubmittedToPrincipal, models.ReportStatusApproved}, filter.Statuses)
	assert.Equal(t, "principal-1", filter.IncludeReporterID)

	_, err = gate.ListScope(models.Actor{ID: "x", Role: "admin"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = gate.ListScope(models.Actor{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
