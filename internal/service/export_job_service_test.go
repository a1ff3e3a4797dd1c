package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/dto"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/repository"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
	"github.com/noah-isme/sma-report-portal/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *exportJobRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exportSvc, _ := newExportServiceForTest(t, seededReportStore(t))
	svc := NewExportJobService(repo, queue, exportSvc, nil, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return svc, repo, queue, exportSvc
}

func TestExportJobServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: models.ExportFormatCSV}, svcHOD)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.RoleHOD, stored.Params.ActorRole)
	assert.Equal(t, "science", *stored.Params.DepartmentID)
	assert.Equal(t, svcHOD.ID, stored.CreatedBy)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatCSV}, svcTeacher)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.CreateJob(ctx, dto.ExportRequest{Format: "xlsx"}, svcPrincipal)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateJob(ctx, dto.ExportRequest{Format: models.ExportFormatPDF, Statuses: []models.ReportStatus{"archived"}}, svcPrincipal)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportJobServiceEnqueueFailureMarksJobFailed(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	queue.err = errors.New("queue full")
	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: models.ExportFormatCSV}, svcPrincipal)
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceGetStatusOwnerOnly(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t)
	url := "/api/v1/export/token"
	repo.jobs["job-1"] = &models.ExportJob{
		ID:        "job-1",
		Status:    models.ExportStatusFinished,
		Progress:  100,
		ResultURL: &url,
		CreatedBy: svcHOD.ID,
	}
	resp, err := svc.GetStatus(context.Background(), "job-1", svcHOD)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, resp.Status)
	assert.Equal(t, &url, resp.ResultURL)

	_, err = svc.GetStatus(context.Background(), "job-1", svcPrincipal)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	svc, repo, _, exportSvc := newExportJobServiceForTest(t)
	job := &models.ExportJob{
		ID:        "job-download",
		Type:      models.ExportTypeRegister,
		Params:    models.ExportParams{Format: models.ExportFormatCSV, ActorRole: models.RolePrincipal},
		Status:    models.ExportStatusFinished,
		Progress:  100,
		CreatedBy: svcPrincipal.ID,
	}
	repo.jobs[job.ID] = job
	result, err := exportSvc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "register_job_download_2026-03-09.csv", download.Filename)
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	download.File.Close()

	_, err = svc.ResolveDownload(context.Background(), result.Token+"x")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportJobServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	repo.jobs["queued"] = &models.ExportJob{ID: "queued", Type: models.ExportTypeRegister, Status: models.ExportStatusQueued}
	repo.jobs["done"] = &models.ExportJob{ID: "done", Type: models.ExportTypeRegister, Status: models.ExportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "queued", queue.jobs[0].ID)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func queuedExportJob() *exportJobRepoStub {
	return &exportJobRepoStub{
		jobs: map[string]*models.ExportJob{
			"job-1": {
				ID:        "job-1",
				Type:      models.ExportTypeRegister,
				Params:    models.ExportParams{Format: models.ExportFormatCSV, ActorRole: models.RolePrincipal},
				Status:    models.ExportStatusQueued,
				CreatedBy: "principal-1",
			},
		},
	}
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	repo := queuedExportJob()
	worker := NewExportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}, NewMetricsService(), 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.Equal(t, "/api/v1/export/token", *repo.jobs["job-1"].ResultURL)
}

func TestExportWorkerHandleRequeuesBeforeLastAttempt(t *testing.T) {
	repo := queuedExportJob()
	worker := NewExportWorker(repo, exportStub{err: errors.New("boom")}, nil, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)
	require.Equal(t, "boom", *repo.jobs["job-1"].ErrorMessage)
}

func TestExportWorkerHandleFailureAfterRetries(t *testing.T) {
	repo := queuedExportJob()
	worker := NewExportWorker(repo, exportStub{err: errors.New("boom")}, nil, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].FinishedAt)
}
