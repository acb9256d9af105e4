package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const purgeConfirmation = "yes"

type ExportJobService interface {
	CreateJob(ctx context.Context, req view.CreateExportReq, createdBy string) (*view.ExportJob, error)
	EstimateRecords(ctx context.Context, req view.CreateExportReq) (*view.ExportEstimate, error)
	GetJob(ctx context.Context, jobId string) (*view.ExportJob, error)
	GetJobs(ctx context.Context, status string, limit int) (*view.ExportJobs, error)
	GetProgress(ctx context.Context, jobId string) (*view.ExportProgress, error)
	PauseJob(ctx context.Context, jobId string) (*view.ExportJob, error)
	ResumeJob(ctx context.Context, jobId string) (*view.ExportJob, error)
	// DeleteJob removes the job with its files and logs. Running jobs cannot be deleted.
	DeleteJob(ctx context.Context, jobId string) error
	DeleteJobsCreatedBefore(ctx context.Context, before time.Time) (*view.PurgeReport, error)
	PurgeAll(ctx context.Context, confirm string) (*view.PurgeReport, error)
}

func NewExportJobService(jobRepo repository.ExportJobRepository,
	fileRepo repository.ExportFileRepository,
	planService ExportPlanService,
	filterService FilterService,
	logService ExportLogService,
	lockService LockService,
	archiveStorage ArchiveStorageService,
	exportDir string,
	anonymization AnonymizationConfig) ExportJobService {
	return &exportJobServiceImpl{
		jobRepo:            jobRepo,
		fileRepo:           fileRepo,
		planService:        planService,
		filterService:      filterService,
		logService:         logService,
		lockService:        lockService,
		archiveStorage:     archiveStorage,
		exportDir:          exportDir,
		anonymization:      anonymization,
		validate:           validator.New(),
	}
}

type exportJobServiceImpl struct {
	jobRepo            repository.ExportJobRepository
	fileRepo           repository.ExportFileRepository
	planService        ExportPlanService
	filterService      FilterService
	logService         ExportLogService
	lockService        LockService
	archiveStorage     ArchiveStorageService
	exportDir          string
	anonymization      AnonymizationConfig
	validate           *validator.Validate
}

type AnonymizationConfig struct {
	ByDefault bool
	// Salt keys the PII hashes; anonymized jobs are refused without it.
	Salt string
}

type preparedExport struct {
	plan     *view.ExportPlan
	filters  *view.ExportFilters
	estimate int64
}

func (e exportJobServiceImpl) prepare(ctx context.Context, req view.CreateExportReq) (*preparedExport, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidExportRequest,
			Message: exception.InvalidExportRequestMsg,
			Params:  map[string]interface{}{"error": err.Error()},
		}
	}
	family := view.ExportFamily(req.ExportFamily)
	level := view.DetailLevel(req.DetailLevel)
	filters, err := e.filterService.ParseFilters(req.Filters)
	if err != nil {
		return nil, err
	}
	plan, err := e.planService.BuildPlan(ctx, family, level)
	if err != nil {
		return nil, err
	}
	if len(plan.Entities) == 0 {
		return nil, &exception.CustomError{
			Status:  http.StatusUnprocessableEntity,
			Code:    exception.ExportPlanEmpty,
			Message: exception.ExportPlanEmptyMsg,
			Params:  map[string]interface{}{"family": family, "level": level},
		}
	}
	estimate, err := e.planService.EstimateTotalRecords(ctx, plan, *filters)
	if err != nil {
		return nil, err
	}
	return &preparedExport{plan: plan, filters: filters, estimate: estimate}, nil
}

func (e exportJobServiceImpl) CreateJob(ctx context.Context, req view.CreateExportReq, createdBy string) (*view.ExportJob, error) {
	prepared, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	planHash, err := PlanHash(prepared.plan)
	if err != nil {
		return nil, err
	}
	anonymize := e.anonymization.ByDefault
	if req.Anonymize != nil {
		anonymize = *req.Anonymize
	}
	if anonymize && e.anonymization.Salt == "" {
		return nil, &exception.CustomError{
			Status:  http.StatusUnprocessableEntity,
			Code:    exception.AnonymizationUnavailable,
			Message: exception.AnonymizationUnavailableMsg,
		}
	}
	now := time.Now()
	ent := &entity.ExportJobEntity{
		Id:            uuid.New().String(),
		ExportFamily:  req.ExportFamily,
		DetailLevel:   req.DetailLevel,
		Anonymize:     anonymize,
		Filters:       req.Filters,
		Plan:          *prepared.plan,
		PlanHash:      planHash,
		Status:        string(view.ExportJobStatusPending),
		TotalEstimate: prepared.estimate,
		Cursors:       map[string]int64{},
		Checkpoints:   map[string]view.FileCheckpoint{},
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.jobRepo.CreateJob(ctx, ent); err != nil {
		return nil, err
	}
	e.logService.Log(ctx, ent.Id, LogLevelInfo, "job created", map[string]interface{}{
		"exportFamily":  ent.ExportFamily,
		"detailLevel":   ent.DetailLevel,
		"entities":      ent.Plan.EntityNames(),
		"totalEstimate": ent.TotalEstimate,
		"anonymize":     ent.Anonymize,
	})
	log.Infof("Export job %s created: %s/%s, %d entities, ~%d records", ent.Id, ent.ExportFamily, ent.DetailLevel, len(ent.Plan.Entities), ent.TotalEstimate)
	return entity.MakeExportJobView(ent), nil
}

func (e exportJobServiceImpl) EstimateRecords(ctx context.Context, req view.CreateExportReq) (*view.ExportEstimate, error) {
	prepared, err := e.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return &view.ExportEstimate{
		ExportFamily:  prepared.plan.ExportFamily,
		DetailLevel:   prepared.plan.DetailLevel,
		Entities:      ExportOrderNames(prepared.plan),
		TotalEstimate: prepared.estimate,
	}, nil
}

func (e exportJobServiceImpl) GetJob(ctx context.Context, jobId string) (*view.ExportJob, error) {
	ent, err := e.getJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	return entity.MakeExportJobView(ent), nil
}

func (e exportJobServiceImpl) GetJobs(ctx context.Context, status string, limit int) (*view.ExportJobs, error) {
	var statuses []string
	if status != "" {
		statuses = []string{status}
	}
	ents, err := e.jobRepo.GetJobs(ctx, statuses, limit)
	if err != nil {
		return nil, err
	}
	result := &view.ExportJobs{Jobs: make([]view.ExportJob, 0, len(ents))}
	for i := range ents {
		result.Jobs = append(result.Jobs, *entity.MakeExportJobView(&ents[i]))
	}
	return result, nil
}

func (e exportJobServiceImpl) GetProgress(ctx context.Context, jobId string) (*view.ExportProgress, error) {
	ent, err := e.getJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	return entity.MakeExportProgressView(ent), nil
}

func (e exportJobServiceImpl) PauseJob(ctx context.Context, jobId string) (*view.ExportJob, error) {
	return e.switchStatus(ctx, jobId, "pause", view.ExportJobStatusRunning, view.ExportJobStatusPaused)
}

func (e exportJobServiceImpl) ResumeJob(ctx context.Context, jobId string) (*view.ExportJob, error) {
	return e.switchStatus(ctx, jobId, "resume", view.ExportJobStatusPaused, view.ExportJobStatusRunning)
}

func (e exportJobServiceImpl) switchStatus(ctx context.Context, jobId string, operation string, from view.ExportJobStatus, to view.ExportJobStatus) (*view.ExportJob, error) {
	updated, err := e.jobRepo.UpdateJobStatus(ctx, jobId, []string{string(from)}, string(to))
	if err != nil {
		return nil, err
	}
	ent, err := e.getJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, statusConflictError(operation, jobId, ent.Status)
	}
	e.logService.Log(ctx, jobId, LogLevelInfo, "job "+string(to), nil)
	log.Infof("Export job %s is %s", jobId, to)
	return entity.MakeExportJobView(ent), nil
}

func (e exportJobServiceImpl) DeleteJob(ctx context.Context, jobId string) error {
	ent, err := e.getJob(ctx, jobId)
	if err != nil {
		return err
	}
	if view.ExportJobStatus(ent.Status) == view.ExportJobStatusRunning {
		return statusConflictError("delete", jobId, ent.Status)
	}
	_, deleted, err := e.deleteJob(ctx, ent)
	if err != nil {
		return err
	}
	if !deleted {
		return statusConflictError("delete", jobId, ent.Status)
	}
	return nil
}

func (e exportJobServiceImpl) DeleteJobsCreatedBefore(ctx context.Context, before time.Time) (*view.PurgeReport, error) {
	ents, err := e.jobRepo.GetJobsCreatedBefore(ctx, before)
	if err != nil {
		return nil, err
	}
	return e.deleteJobs(ctx, ents)
}

func (e exportJobServiceImpl) PurgeAll(ctx context.Context, confirm string) (*view.PurgeReport, error) {
	if confirm != purgeConfirmation {
		return nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.PurgeNotConfirmed,
			Message: exception.PurgeNotConfirmedMsg,
		}
	}
	ents, err := e.jobRepo.GetJobs(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	report, err := e.deleteJobs(ctx, ents)
	if err != nil {
		return nil, err
	}
	log.Warnf("All export data purged: %d jobs, %d files", report.DeletedJobs, report.DeletedFiles)
	return report, nil
}

func (e exportJobServiceImpl) deleteJobs(ctx context.Context, ents []entity.ExportJobEntity) (*view.PurgeReport, error) {
	report := &view.PurgeReport{}
	for i := range ents {
		files, deleted, err := e.deleteJob(ctx, &ents[i])
		if err != nil {
			return report, err
		}
		if deleted {
			report.DeletedJobs++
			report.DeletedFiles += files
		}
	}
	return report, nil
}

// deleteJob skips jobs with a batch in progress.
func (e exportJobServiceImpl) deleteJob(ctx context.Context, ent *entity.ExportJobEntity) (int, bool, error) {
	lockName := JobLockName(ent.Id)
	acquired, _, err := e.lockService.AcquireLock(ctx, lockName, LockOptions{})
	if err != nil {
		return 0, false, err
	}
	if !acquired {
		log.Infof("Export job %s is busy and was not deleted", ent.Id)
		return 0, false, nil
	}
	defer func() {
		if err := e.lockService.ReleaseLock(ctx, lockName); err != nil {
			log.Warnf("Failed to release lock of export job %s: %v", ent.Id, err)
		}
	}()

	files, err := e.fileRepo.GetFilesByJob(ctx, ent.Id)
	if err != nil {
		return 0, false, err
	}
	if err := os.RemoveAll(JobDirectory(e.exportDir, ent.Id)); err != nil {
		return 0, false, fmt.Errorf("failed to delete files of export job %s: %w", ent.Id, err)
	}
	if e.archiveStorage != nil {
		if err := e.archiveStorage.RemoveJobObjects(ctx, ent.Id); err != nil {
			log.Warnf("Failed to delete stored archive of export job %s: %v", ent.Id, err)
		}
	}
	if err := e.jobRepo.DeleteJob(ctx, ent.Id); err != nil {
		return 0, false, err
	}
	log.Infof("Export job %s deleted with %d files", ent.Id, len(files))
	return len(files), true, nil
}

func (e exportJobServiceImpl) getJob(ctx context.Context, jobId string) (*entity.ExportJobEntity, error) {
	ent, err := e.jobRepo.GetJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, &exception.CustomError{
			Status:  http.StatusNotFound,
			Code:    exception.ExportJobNotFound,
			Message: exception.ExportJobNotFoundMsg,
			Params:  map[string]interface{}{"jobId": jobId},
		}
	}
	return ent, nil
}

func statusConflictError(operation string, jobId string, status string) error {
	return &exception.CustomError{
		Status:  http.StatusConflict,
		Code:    exception.ExportJobStatusConflict,
		Message: exception.ExportJobStatusConflictMsg,
		Params:  map[string]interface{}{"operation": operation, "jobId": jobId, "status": status},
	}
}

func ExportOrderNames(plan *view.ExportPlan) []string {
	order := ExportOrder(plan)
	names := make([]string, 0, len(order))
	for _, ent := range order {
		names = append(names, ent.Name)
	}
	return names
}
