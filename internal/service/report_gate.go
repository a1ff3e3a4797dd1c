package service

import (
	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

// principalStatuses are the stages visible institution-wide to principals.
var principalStatuses = []models.ReportStatus{
	models.ReportStatusSubmittedToPrincipal,
	models.ReportStatusApproved,
}

// ReportGate decides who may see, move and delete a report.
type ReportGate struct{}

// CanView applies the read visibility rule. Authors always see their own reports.
func (ReportGate) CanView(actor models.Actor, report *models.Report) bool {
	if report == nil || actor.ID == "" {
		return false
	}
	if report.ReporterID == actor.ID {
		return true
	}
	switch actor.Role {
	case models.RoleHOD:
		return actor.InDepartment(report.DepartmentID)
	case models.RolePrincipal:
		return containsStatus(principalStatuses, report.Status)
	default:
		return false
	}
}

// CheckTransition validates a move to the target status against the report as currently stored.
func (ReportGate) CheckTransition(actor models.Actor, report *models.Report, to models.ReportStatus) error {
	if report == nil {
		return appErrors.ErrNotFound
	}
	if !models.CanAdvance(report.Status, to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move report from "+string(report.Status)+" to "+string(to))
	}
	allowed := false
	switch to {
	case models.ReportStatusSubmittedToHOD:
		allowed = report.ReporterID == actor.ID && (actor.Role == models.RoleTeacher || actor.Role == models.RoleHOD)
	case models.ReportStatusSubmittedToPrincipal:
		allowed = actor.Role == models.RoleHOD && actor.InDepartment(report.DepartmentID)
	case models.ReportStatusApproved:
		allowed = actor.Role == models.RolePrincipal
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrInvalidTransition, string(actor.Role)+" may not move report to "+string(to))
	}
	return nil
}

// CanDelete allows the reporter, or the reviewer holding the report at its current stage.
func (ReportGate) CanDelete(actor models.Actor, report *models.Report) bool {
	if report == nil || actor.ID == "" {
		return false
	}
	if report.ReporterID == actor.ID {
		return true
	}
	switch report.Status {
	case models.ReportStatusSubmittedToHOD:
		return actor.Role == models.RoleHOD && actor.InDepartment(report.DepartmentID)
	case models.ReportStatusSubmittedToPrincipal, models.ReportStatusApproved:
		return actor.Role == models.RolePrincipal
	default:
		return false
	}
}

// ListScope translates the visibility rule into a store filter.
func (ReportGate) ListScope(actor models.Actor) (models.ReportFilter, error) {
	if actor.ID == "" {
		return models.ReportFilter{}, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher:
		return models.ReportFilter{ReporterID: actor.ID}, nil
	case models.RoleHOD:
		if actor.DepartmentID == nil || *actor.DepartmentID == "" {
			return models.ReportFilter{ReporterID: actor.ID}, nil
		}
		return models.ReportFilter{DepartmentID: *actor.DepartmentID, IncludeReporterID: actor.ID}, nil
	case models.RolePrincipal:
		statuses := make([]models.ReportStatus, len(principalStatuses))
		copy(statuses, principalStatuses)
		return models.ReportFilter{Statuses: statuses, IncludeReporterID: actor.ID}, nil
	default:
		return models.ReportFilter{}, appErrors.ErrForbidden
	}
}

func containsStatus(list []models.ReportStatus, s models.ReportStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
