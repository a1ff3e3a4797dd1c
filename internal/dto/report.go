package dto

import (
	"encoding/json"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// CreateReportRequest captures POST /reports payload. The envelope is parsed strictly by the service.
type CreateReportRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	Content   *string         `json:"content,omitempty"`
	ChartData json.RawMessage `json:"chartData" validate:"required"`
}

// ListReportsQuery captures GET /reports pagination.
type ListReportsQuery struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"page_size" validate:"omitempty,min=1,max=200"`
}

// ReportListResult is one cached page of visible reports.
type ReportListResult struct {
	Items      []models.Report   `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// TransitionResponse is returned after a successful status change.
type TransitionResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ClassEnvelopeRequest captures POST /reports/envelopes/class.
type ClassEnvelopeRequest struct {
	AcademicYear   string                   `json:"academicYear"`
	SelectedCharts []string                 `json:"selectedCharts"`
	Students       []models.StudentSnapshot `json:"students" validate:"dive"`
}

// SingleEnvelopeRequest captures POST /reports/envelopes/single.
type SingleEnvelopeRequest struct {
	SelectedCharts []string               `json:"selectedCharts"`
	Student        models.StudentSnapshot `json:"student"`
	CustomFields   []models.CustomField   `json:"customFields"`
}
