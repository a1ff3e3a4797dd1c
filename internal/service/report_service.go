package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/repository"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/export"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 200
)

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus) (time.Time, error)
	Delete(ctx context.Context, id string) error
}

type reportRenderer interface {
	Render(report *models.Report, opts export.RenderOptions) (*export.Document, error)
}

// ReportServiceConfig tunes rendering.
type ReportServiceConfig struct {
	Organization string
}

// RenderedReport is a freshly rendered document ready to stream.
type RenderedReport struct {
	Filename string
	Document *export.Document
}

// ReportService drives the report lifecycle: authoring, review transitions, deletion and rendering.
type ReportService struct {
	store     reportStore
	renderer  reportRenderer
	gate      ReportGate
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(store reportStore, renderer reportRenderer, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if renderer == nil {
		renderer = export.NewReportRenderer(cfg.Organization)
	}
	return &ReportService{
		store:     store,
		renderer:  renderer,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a draft report authored by the actor.
func (s *ReportService) Create(ctx context.Context, req dto.CreateReportRequest, actor models.Actor) (*models.Report, error) {
	if actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Valid() {
		return nil, appErrors.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "title and chartData are required")
	}
	chartData, err := models.ParseChartData(req.ChartData)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chartData: "+err.Error())
	}

	report := &models.Report{
		ReporterID:   actor.ID,
		ReporterRole: actor.Role,
		DepartmentID: actor.DepartmentID,
		Title:        req.Title,
		Content:      req.Content,
		ChartData:    chartData,
	}
	if err := s.store.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	s.invalidateLists(ctx)
	s.logger.Info("report created",
		zap.String("report_id", report.ID),
		zap.String("actor_id", actor.ID),
		zap.String("chart_type", string(chartData.Type)),
	)
	return report, nil
}

// Get returns a report visible to the actor. Reports outside the actor's visibility are NotFound.
func (s *ReportService) Get(ctx context.Context, id string, actor models.Actor) (*models.Report, error) {
	report, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if !s.gate.CanView(actor, report) {
		return nil, appErrors.ErrNotFound
	}
	return report, nil
}

// List returns one page of the reports the actor can see, newest first.
func (s *ReportService) List(ctx context.Context, query dto.ListReportsQuery, actor models.Actor) (*dto.ReportListResult, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Validation(err, "invalid pagination")
	}
	filter, err := s.gate.ListScope(actor)
	if err != nil {
		return nil, false, err
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultListPageSize
	}
	if size > maxListPageSize {
		size = maxListPageSize
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	scope := scopeParts(filter)
	var cached dto.ReportListResult
	if s.cache.LoadReportList(ctx, scope, page, size, &cached) {
		return &cached, true, nil
	}

	generation := s.cache.ListGeneration()
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	if items == nil {
		items = []models.Report{}
	}
	result := &dto.ReportListResult{
		Items:      items,
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total},
	}
	s.cache.StoreReportList(ctx, generation, scope, page, size, result)
	return result, false, nil
}

// Submit moves the actor's draft to the HOD.
func (s *ReportService) Submit(ctx context.Context, id string, actor models.Actor) (*models.Report, error) {
	return s.transition(ctx, id, models.ReportStatusSubmittedToHOD, actor)
}

// Forward moves a report from the HOD to the principal.
func (s *ReportService) Forward(ctx context.Context, id string, actor models.Actor) (*models.Report, error) {
	return s.transition(ctx, id, models.ReportStatusSubmittedToPrincipal, actor)
}

// Approve finalizes a report.
func (s *ReportService) Approve(ctx context.Context, id string, actor models.Actor) (*models.Report, error) {
	return s.transition(ctx, id, models.ReportStatusApproved, actor)
}

func (s *ReportService) transition(ctx context.Context, id string, to models.ReportStatus, actor models.Actor) (*models.Report, error) {
	report, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckTransition(actor, report, to); err != nil {
		s.logger.Info("report transition rejected",
			zap.String("report_id", id),
			zap.String("actor_id", actor.ID),
			zap.String("from", string(report.Status)),
			zap.String("to", string(to)),
		)
		return nil, err
	}
	from := report.Status
	updatedAt, err := s.store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleTransition):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "report status changed, reload and retry")
		case errors.Is(err, repository.ErrIllegalTransition):
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, appErrors.ErrInvalidTransition.Message)
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report status")
		}
	}
	report.Status = to
	report.UpdatedAt = updatedAt
	s.invalidateLists(ctx)
	s.metrics.RecordTransition(string(to))
	s.logger.Info("report transitioned",
		zap.String("report_id", id),
		zap.String("actor_id", actor.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return report, nil
}

// Delete hard-deletes a report at any status for the reporter or the current reviewer.
func (s *ReportService) Delete(ctx context.Context, id string, actor models.Actor) error {
	report, err := s.Get(ctx, id, actor)
	if err != nil {
		return err
	}
	if !s.gate.CanDelete(actor, report) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this report")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	s.invalidateLists(ctx)
	s.logger.Info("report deleted",
		zap.String("report_id", id),
		zap.String("actor_id", actor.ID),
		zap.String("status", string(report.Status)),
	)
	return nil
}

// Preview renders the stored report for inline display.
func (s *ReportService) Preview(ctx context.Context, id string, actor models.Actor) (*RenderedReport, error) {
	return s.render(ctx, id, actor)
}

// Download renders the stored report for saving. Every call re-derives the document.
func (s *ReportService) Download(ctx context.Context, id string, actor models.Actor) (*RenderedReport, error) {
	return s.render(ctx, id, actor)
}

func (s *ReportService) render(ctx context.Context, id string, actor models.Actor) (*RenderedReport, error) {
	report, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	generatedAt := s.now()
	generatedBy := actor.Name
	if generatedBy == "" {
		generatedBy = actor.ID
	}
	start := time.Now()
	doc, err := s.renderer.Render(report, export.RenderOptions{
		GeneratedBy:     generatedBy,
		GeneratedByRole: actor.Role,
		GeneratedAt:     generatedAt,
		Organization:    s.cfg.Organization,
	})
	if err != nil {
		s.metrics.RecordRenderFailure()
		s.logger.Error("report render failed", zap.String("report_id", id), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, appErrors.ErrRenderFailed.Message)
	}
	s.metrics.ObserveRender(string(report.ChartData.Type), time.Since(start), degradedCharts(doc))
	for _, note := range doc.Degraded {
		s.logger.Warn("report render degraded", zap.String("report_id", id), zap.String("note", note))
	}
	return &RenderedReport{
		Filename: export.Filename(report.Title, generatedAt, "pdf"),
		Document: doc,
	}, nil
}

func (s *ReportService) invalidateLists(ctx context.Context) {
	_ = s.cache.InvalidateReportLists(ctx)
}

func degradedCharts(doc *export.Document) []string {
	var ids []string
	for _, section := range doc.Sections {
		if section.Kind == export.SectionChart && section.Empty {
			ids = append(ids, section.ID)
		}
	}
	return ids
}

func scopeParts(filter models.ReportFilter) []string {
	statuses := make([]string, len(filter.Statuses))
	for i, st := range filter.Statuses {
		statuses[i] = string(st)
	}
	return []string{
		"reporter=" + filter.ReporterID,
		"department=" + filter.DepartmentID,
		"statuses=" + strings.Join(statuses, ","),
		fmt.Sprintf("own=%s", filter.IncludeReporterID),
	}
}
