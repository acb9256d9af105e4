package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobFixture struct {
	jobs  *fakeJobRepo
	files *fakeFileRepo
	logs  *fakeLogRepo
	locks *fakeLockRepo
	svc   ExportJobService
	dir   string
}

func newJobFixture(t *testing.T, schema *fakeSchema, source *fakeSource) *jobFixture {
	t.Helper()
	f := &jobFixture{
		jobs:  newFakeJobRepo(),
		files: newFakeFileRepo(),
		logs:  &fakeLogRepo{},
		locks: newFakeLockRepo(),
		dir:   t.TempDir(),
	}
	storage, err := NewArchiveStorageService(view.MinioStorageCreds{})
	require.NoError(t, err)
	f.svc = NewExportJobService(f.jobs, f.files, NewExportPlanService(schema, source, false), NewFilterService(),
		NewExportLogService(f.logs), NewLockService(f.locks, "test-instance"), storage, f.dir,
		AnonymizationConfig{ByDefault: true, Salt: "salt"})
	return f
}

func newCustomerJobFixture(t *testing.T) *jobFixture {
	source := newFakeSource()
	seedCustomers(source, 1, 2, 3)
	return newJobFixture(t, shopSchema("customer", "address", "customer_group"), source)
}

func assertCustomError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	var customError *exception.CustomError
	require.True(t, errors.As(err, &customError), "unexpected error %v", err)
	assert.Equal(t, status, customError.Status)
	assert.Equal(t, code, customError.Code)
}

func (f *jobFixture) setStatus(t *testing.T, jobId string, status view.ExportJobStatus) {
	t.Helper()
	f.jobs.stored(jobId).Status = string(status)
}

func TestCreateJob(t *testing.T) {
	f := newCustomerJobFixture(t)
	job, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{
		ExportFamily: "customers",
		DetailLevel:  "complete",
		Filters:      view.FilterSet{"minId": 2},
	}, "admin")
	require.NoError(t, err)

	assert.NotEmpty(t, job.Id)
	assert.Equal(t, view.ExportJobStatusPending, job.Status)
	assert.Equal(t, []string{"customer", "address", "customer_group"}, job.Entities)
	assert.Equal(t, int64(2+2*2+2*2), job.TotalEstimate)
	assert.NotEmpty(t, job.PlanHash)
	assert.True(t, job.Anonymize)
	assert.Equal(t, "admin", job.CreatedBy)
	assert.Equal(t, view.FilterSet{"minId": 2}, job.Filters)

	stored := f.jobs.stored(job.Id)
	require.NotNil(t, stored)
	assert.Len(t, stored.Plan.Entities, 3)
	assert.Equal(t, []string{"job created"}, f.logs.messages(job.Id))
}

func TestCreateJob_AnonymizationCanBeDisabled(t *testing.T) {
	f := newCustomerJobFixture(t)
	anonymize := false
	job, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "full", DetailLevel: "essential", Anonymize: &anonymize}, "")
	require.NoError(t, err)
	assert.False(t, job.Anonymize)
}

func TestCreateJob_AnonymizationRequiresSalt(t *testing.T) {
	f := newCustomerJobFixture(t)
	source := newFakeSource()
	seedCustomers(source, 1, 2, 3)
	storage, err := NewArchiveStorageService(view.MinioStorageCreds{})
	require.NoError(t, err)
	svc := NewExportJobService(f.jobs, f.files,
		NewExportPlanService(shopSchema("customer", "address", "customer_group"), source, false), NewFilterService(),
		NewExportLogService(f.logs), NewLockService(f.locks, "test-instance"), storage, f.dir, AnonymizationConfig{})

	_, err = svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}, "")
	require.NoError(t, err)

	anonymize := true
	_, err = svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential", Anonymize: &anonymize}, "")
	assertCustomError(t, err, http.StatusUnprocessableEntity, exception.AnonymizationUnavailable)

	svc = NewExportJobService(f.jobs, f.files,
		NewExportPlanService(shopSchema("customer", "address", "customer_group"), source, false), NewFilterService(),
		NewExportLogService(f.logs), NewLockService(f.locks, "test-instance"), storage, f.dir, AnonymizationConfig{ByDefault: true})
	_, err = svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}, "")
	assertCustomError(t, err, http.StatusUnprocessableEntity, exception.AnonymizationUnavailable)
}

func TestCreateJob_InvalidRequests(t *testing.T) {
	f := newCustomerJobFixture(t)

	_, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "products", DetailLevel: "essential"}, "")
	assertCustomError(t, err, http.StatusBadRequest, exception.InvalidExportRequest)

	_, err = f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers"}, "")
	assertCustomError(t, err, http.StatusBadRequest, exception.InvalidExportRequest)

	_, err = f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "ultra", Filters: view.FilterSet{"foo": 1}}, "")
	assertCustomError(t, err, http.StatusBadRequest, exception.InvalidExportFilters)

	_, err = f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "orders", DetailLevel: "ultra"}, "")
	assertCustomError(t, err, http.StatusUnprocessableEntity, exception.ExportPlanEmpty)

	jobs, err := f.svc.GetJobs(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, jobs.Jobs)
}

func TestEstimateRecords(t *testing.T) {
	f := newCustomerJobFixture(t)
	estimate, err := f.svc.EstimateRecords(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer", "address"}, estimate.Entities)
	assert.Equal(t, int64(3+3*2), estimate.TotalEstimate)

	jobs, err := f.svc.GetJobs(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, jobs.Jobs)
}

func TestGetJob_NotFound(t *testing.T) {
	f := newCustomerJobFixture(t)
	_, err := f.svc.GetJob(context.Background(), "unknown")
	assertCustomError(t, err, http.StatusNotFound, exception.ExportJobNotFound)
	_, err = f.svc.GetProgress(context.Background(), "unknown")
	assertCustomError(t, err, http.StatusNotFound, exception.ExportJobNotFound)
}

func TestGetJobs_FiltersByStatus(t *testing.T) {
	f := newCustomerJobFixture(t)
	req := view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}
	first, err := f.svc.CreateJob(context.Background(), req, "")
	require.NoError(t, err)
	second, err := f.svc.CreateJob(context.Background(), req, "")
	require.NoError(t, err)
	f.setStatus(t, second.Id, view.ExportJobStatusCompleted)

	pending, err := f.svc.GetJobs(context.Background(), string(view.ExportJobStatusPending), 0)
	require.NoError(t, err)
	require.Len(t, pending.Jobs, 1)
	assert.Equal(t, first.Id, pending.Jobs[0].Id)

	all, err := f.svc.GetJobs(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, all.Jobs, 1)
}

func TestGetProgress(t *testing.T) {
	f := newCustomerJobFixture(t)
	job, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}, "")
	require.NoError(t, err)
	stored := f.jobs.stored(job.Id)
	stored.Status = string(view.ExportJobStatusRunning)
	stored.ProcessedCount = 3
	stored.CurrentEntity = "address"

	progress, err := f.svc.GetProgress(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Equal(t, view.ExportJobStatusRunning, progress.Status)
	assert.Equal(t, "address", progress.CurrentEntity)
	assert.InDelta(t, 33.33, progress.ProgressPercent, 0.01)

	stored.ProcessedCount = 20
	progress, err = f.svc.GetProgress(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Equal(t, float64(99), progress.ProgressPercent)

	stored.Status = string(view.ExportJobStatusCompleted)
	progress, err = f.svc.GetProgress(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Equal(t, float64(100), progress.ProgressPercent)
}

func TestPauseAndResume(t *testing.T) {
	f := newCustomerJobFixture(t)
	job, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}, "")
	require.NoError(t, err)

	_, err = f.svc.PauseJob(context.Background(), job.Id)
	assertCustomError(t, err, http.StatusConflict, exception.ExportJobStatusConflict)

	f.setStatus(t, job.Id, view.ExportJobStatusRunning)
	paused, err := f.svc.PauseJob(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Equal(t, view.ExportJobStatusPaused, paused.Status)

	_, err = f.svc.PauseJob(context.Background(), job.Id)
	assertCustomError(t, err, http.StatusConflict, exception.ExportJobStatusConflict)

	resumed, err := f.svc.ResumeJob(context.Background(), job.Id)
	require.NoError(t, err)
	assert.Equal(t, view.ExportJobStatusRunning, resumed.Status)

	_, err = f.svc.ResumeJob(context.Background(), job.Id)
	assertCustomError(t, err, http.StatusConflict, exception.ExportJobStatusConflict)

	_, err = f.svc.ResumeJob(context.Background(), "unknown")
	assertCustomError(t, err, http.StatusNotFound, exception.ExportJobNotFound)

	assert.Contains(t, f.logs.messages(job.Id), "job paused")
	assert.Contains(t, f.logs.messages(job.Id), "job running")
}

func (f *jobFixture) createWithFiles(t *testing.T, status view.ExportJobStatus) string {
	t.Helper()
	job, err := f.svc.CreateJob(context.Background(), view.CreateExportReq{ExportFamily: "customers", DetailLevel: "essential"}, "")
	require.NoError(t, err)
	f.setStatus(t, job.Id, status)
	path := filepath.Join(JobDirectory(f.dir, job.Id), "customer.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("id_customer\n1\n"), 0400))
	require.NoError(t, f.files.SaveFile(context.Background(), &entity.ExportFileEntity{
		Id: job.Id + "-customer", JobId: job.Id, EntityName: "customer", Path: path, FileName: "customer.csv",
	}))
	return job.Id
}

func TestDeleteJob(t *testing.T) {
	f := newCustomerJobFixture(t)
	jobId := f.createWithFiles(t, view.ExportJobStatusCompleted)

	require.NoError(t, f.svc.DeleteJob(context.Background(), jobId))

	assert.NoDirExists(t, JobDirectory(f.dir, jobId))
	assert.Nil(t, f.jobs.stored(jobId))
	_, err := f.svc.GetJob(context.Background(), jobId)
	assertCustomError(t, err, http.StatusNotFound, exception.ExportJobNotFound)
	_, err = f.locks.GetLock(context.Background(), JobLockName(jobId))
	assert.Error(t, err)
}

func TestDeleteJob_RefusesRunningAndBusyJobs(t *testing.T) {
	f := newCustomerJobFixture(t)
	running := f.createWithFiles(t, view.ExportJobStatusRunning)
	err := f.svc.DeleteJob(context.Background(), running)
	assertCustomError(t, err, http.StatusConflict, exception.ExportJobStatusConflict)
	assert.DirExists(t, JobDirectory(f.dir, running))

	busy := f.createWithFiles(t, view.ExportJobStatusPaused)
	acquired, err := f.locks.TryAcquireLock(context.Background(), JobLockName(busy), "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	err = f.svc.DeleteJob(context.Background(), busy)
	assertCustomError(t, err, http.StatusConflict, exception.ExportJobStatusConflict)
	assert.NotNil(t, f.jobs.stored(busy))
}

func TestDeleteJobsCreatedBefore(t *testing.T) {
	f := newCustomerJobFixture(t)
	old := f.createWithFiles(t, view.ExportJobStatusCompleted)
	f.jobs.stored(old).CreatedAt = time.Now().AddDate(0, 0, -10)
	fresh := f.createWithFiles(t, view.ExportJobStatusFailed)

	report, err := f.svc.DeleteJobsCreatedBefore(context.Background(), time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, view.PurgeReport{DeletedJobs: 1, DeletedFiles: 1}, *report)
	assert.Nil(t, f.jobs.stored(old))
	assert.NotNil(t, f.jobs.stored(fresh))
}

func TestPurgeAll(t *testing.T) {
	f := newCustomerJobFixture(t)
	first := f.createWithFiles(t, view.ExportJobStatusCompleted)
	second := f.createWithFiles(t, view.ExportJobStatusPending)

	_, err := f.svc.PurgeAll(context.Background(), "no")
	assertCustomError(t, err, http.StatusBadRequest, exception.PurgeNotConfirmed)
	assert.NotNil(t, f.jobs.stored(first))

	report, err := f.svc.PurgeAll(context.Background(), "yes")
	require.NoError(t, err)
	assert.Equal(t, 2, report.DeletedJobs)
	assert.Equal(t, 2, report.DeletedFiles)
	assert.Nil(t, f.jobs.stored(first))
	assert.Nil(t, f.jobs.stored(second))
	assert.NoDirExists(t, JobDirectory(f.dir, second))
}
