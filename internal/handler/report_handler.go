package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/middleware"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/service"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/response"
)

type reportService interface {
	Create(ctx context.Context, req dto.CreateReportRequest, actor models.Actor) (*models.Report, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.Report, error)
	List(ctx context.Context, query dto.ListReportsQuery, actor models.Actor) (*dto.ReportListResult, bool, error)
	Submit(ctx context.Context, id string, actor models.Actor) (*models.Report, error)
	Forward(ctx context.Context, id string, actor models.Actor) (*models.Report, error)
	Approve(ctx context.Context, id string, actor models.Actor) (*models.Report, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
	Preview(ctx context.Context, id string, actor models.Actor) (*service.RenderedReport, error)
	Download(ctx context.Context, id string, actor models.Actor) (*service.RenderedReport, error)
}

type envelopeBuilder interface {
	BuildClassReport(year string, charts []string, students []models.StudentSnapshot) models.ChartData
	BuildSingleStudent(student models.StudentSnapshot, charts []string, customFields []models.CustomField) models.ChartData
}

// ReportHandler exposes the report workflow endpoints.
type ReportHandler struct {
	reports reportService
	builder envelopeBuilder
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, builder envelopeBuilder) *ReportHandler {
	return &ReportHandler{reports: reports, builder: builder}
}

// Create godoc
// @Summary Create a draft report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	report, err := h.reports.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// List godoc
// @Summary List reports visible to the caller
// @Tags Reports
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ListReportsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid pagination"))
		return
	}
	start := time.Now()
	result, cacheHit, err := h.reports.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaProcessingTime, time.Since(start).Milliseconds())
	pagination := result.Pagination
	response.JSON(c, http.StatusOK, result.Items, &pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Submit godoc
// @Summary Submit a draft to the head of department
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/submit [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	h.transition(c, h.reports.Submit)
}

// Forward godoc
// @Summary Forward a reviewed report to the principal
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/forward [post]
func (h *ReportHandler) Forward(c *gin.Context) {
	h.transition(c, h.reports.Forward)
}

// Approve godoc
// @Summary Approve a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/approve [post]
func (h *ReportHandler) Approve(c *gin.Context) {
	h.transition(c, h.reports.Approve)
}

func (h *ReportHandler) transition(c *gin.Context, apply func(context.Context, string, models.Actor) (*models.Report, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := apply(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TransitionResponse{ID: report.ID, Status: report.Status}, nil)
}

// Delete godoc
// @Summary Delete a report
// @Tags Reports
// @Param id path string true "Report ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.reports.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Render a report for inline viewing
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Router /reports/{id}/preview [get]
func (h *ReportHandler) Preview(c *gin.Context) {
	h.render(c, h.reports.Preview, true)
}

// Download godoc
// @Summary Download a rendered report
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Failure 500 {object} response.Envelope
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	h.render(c, h.reports.Download, false)
}

func (h *ReportHandler) render(c *gin.Context, render func(context.Context, string, models.Actor) (*service.RenderedReport, error), inline bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rendered, err := render(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, rendered.Filename, response.ContentTypePDF, rendered.Document.Bytes, inline)
}

// BuildClassEnvelope godoc
// @Summary Compute a class report envelope from student snapshots
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ClassEnvelopeRequest true "Class roster"
// @Success 200 {object} response.Envelope
// @Router /reports/envelopes/class [post]
func (h *ReportHandler) BuildClassEnvelope(c *gin.Context) {
	var req dto.ClassEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	response.JSON(c, http.StatusOK, h.builder.BuildClassReport(req.AcademicYear, req.SelectedCharts, req.Students), nil)
}

// BuildSingleEnvelope godoc
// @Summary Compute a single student envelope from a snapshot
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.SingleEnvelopeRequest true "Student snapshot"
// @Success 200 {object} response.Envelope
// @Router /reports/envelopes/single [post]
func (h *ReportHandler) BuildSingleEnvelope(c *gin.Context) {
	var req dto.SingleEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	if req.Student.Name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student name is required"))
		return
	}
	response.JSON(c, http.StatusOK, h.builder.BuildSingleStudent(req.Student, req.SelectedCharts, req.CustomFields), nil)
}
