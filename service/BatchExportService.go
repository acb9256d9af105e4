// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Netcracker/qubership-data-exporter/archive"
	"github.com/Netcracker/qubership-data-exporter/crypto"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/metrics"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/service/logger"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/Netcracker/qubership-data-exporter/writer"
	"github.com/gosimple/slug"
	"github.com/iancoleman/orderedmap"
	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvariantViolation = errors.New("export invariant violated")
	ErrParentNotReady     = fmt.Errorf("%w: parent entity is not exported yet", ErrInvariantViolation)
	// ErrAnonymizationSaltMissing fails anonymized jobs when no salt is configured.
	ErrAnonymizationSaltMissing = errors.New("anonymization salt is not configured")
)

const (
	exportJobType       = "export"
	batchLockMargin     = 2 * time.Minute
	batchPerfMargin     = 5 * time.Second
	parentKeyCacheSize  = 256
	parentKeyCacheTTL   = 30 * time.Minute
	defaultBudget       = 25 * time.Second
	defaultPageSize     = 500
	defaultErrorLength  = 1000
	exportFileExtension = ".csv"
)

type BatchExportConfig struct {
	PageSize       int
	TimeBudget     time.Duration
	ExportDir      string
	Delimiter      rune
	Enclosure      rune
	Bom            bool
	FlushEvery     int
	CreateArchive  bool
	CreateManifest bool
	AnonymizeSalt  string
	MaxErrorLength int
}

type BatchExportService interface {
	// RunBatch advances the job until it is exhausted or the time budget is spent.
	// Export failures are reported in the result, the returned error is reserved for storage problems.
	RunBatch(ctx context.Context, jobId string) (*view.BatchResult, error)
}

func NewBatchExportService(jobRepo repository.ExportJobRepository,
	fileRepo repository.ExportFileRepository,
	sourceRepo repository.SourceRepository,
	fileService ExportFileService,
	logService ExportLogService,
	lockService LockService,
	archiveStorage ArchiveStorageService,
	config BatchExportConfig) BatchExportService {
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if config.TimeBudget <= 0 {
		config.TimeBudget = defaultBudget
	}
	if config.MaxErrorLength <= 0 {
		config.MaxErrorLength = defaultErrorLength
	}
	if config.Delimiter == 0 {
		config.Delimiter = writer.DefaultDelimiter
	}
	if config.Enclosure == 0 {
		config.Enclosure = writer.DefaultEnclosure
	}
	keyCache := libcache.LRU.New(parentKeyCacheSize)
	keyCache.SetTTL(parentKeyCacheTTL)
	return &batchExportServiceImpl{
		jobRepo:        jobRepo,
		fileRepo:       fileRepo,
		sourceRepo:     sourceRepo,
		fileService:    fileService,
		logService:     logService,
		lockService:    lockService,
		archiveStorage: archiveStorage,
		filterService:  NewFilterService(),
		keyCache:       keyCache,
		config:         config,
		now:            time.Now,
	}
}

type batchExportServiceImpl struct {
	jobRepo        repository.ExportJobRepository
	fileRepo       repository.ExportFileRepository
	sourceRepo     repository.SourceRepository
	fileService    ExportFileService
	logService     ExportLogService
	lockService    LockService
	archiveStorage ArchiveStorageService
	filterService  FilterService
	keyCache       libcache.Cache
	config         BatchExportConfig
	now            func() time.Time
}

// batchRun is the state of one invocation.
type batchRun struct {
	job     *entity.ExportJobEntity
	order   []view.PlanEntity
	filters view.ExportFilters
	opts    writer.Options
	start   time.Time
	result  *view.BatchResult
}

func JobLockName(jobId string) string {
	return "export_job_" + jobId
}

// JobDirectory is where all files of a job are written.
func JobDirectory(exportDir string, jobId string) string {
	return filepath.Join(exportDir, jobId)
}

func (b *batchExportServiceImpl) RunBatch(ctx context.Context, jobId string) (*view.BatchResult, error) {
	// a disconnected caller must not fail the job, the budget bounds the run
	ctx = context.WithoutCancel(ctx)
	start := b.now()

	lockName := JobLockName(jobId)
	acquired, _, err := b.lockService.AcquireLock(ctx, lockName, LockOptions{Lease: b.config.TimeBudget + batchLockMargin})
	if err != nil {
		return nil, err
	}
	if !acquired {
		job, err := b.getJob(ctx, jobId)
		if err != nil {
			return nil, err
		}
		log.Debugf("Export job %s is already being processed", jobId)
		return &view.BatchResult{Status: view.ExportJobStatus(job.Status), CurrentEntity: job.CurrentEntity, Busy: true}, nil
	}
	defer func() {
		if err := b.lockService.ReleaseLock(ctx, lockName); err != nil {
			log.Warnf("Failed to release lock of export job %s: %v", jobId, err)
		}
	}()

	job, err := b.getJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	status := view.ExportJobStatus(job.Status)
	if status.IsTerminal() || status == view.ExportJobStatusPaused {
		return &view.BatchResult{Status: status, CurrentEntity: job.CurrentEntity, ErrorDetail: job.ErrorDetail}, nil
	}

	jobCtx := logger.WithJob(ctx, exportJobType, jobId)
	result := &view.BatchResult{}
	err = utils.SafeSync(func() error {
		return b.execute(jobCtx, job, start, result)
	})
	if err != nil {
		return b.fail(jobCtx, job, err, result)
	}
	result.Status = view.ExportJobStatus(job.Status)
	result.CurrentEntity = job.CurrentEntity

	elapsed := b.now().Sub(start)
	metrics.BatchDuration.WithLabelValues(job.Status).Observe(elapsed.Seconds())
	utils.PerfLog(elapsed, b.config.TimeBudget+batchPerfMargin, "export batch of job %s (%d rows)", jobId, result.ProcessedDelta)
	return result, nil
}

func (b *batchExportServiceImpl) getJob(ctx context.Context, jobId string) (*entity.ExportJobEntity, error) {
	job, err := b.jobRepo.GetJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &exception.CustomError{
			Status:  http.StatusNotFound,
			Code:    exception.ExportJobNotFound,
			Message: exception.ExportJobNotFoundMsg,
			Params:  map[string]interface{}{"jobId": jobId},
		}
	}
	return job, nil
}

func (b *batchExportServiceImpl) execute(ctx context.Context, job *entity.ExportJobEntity, start time.Time, result *view.BatchResult) error {
	if view.ExportJobStatus(job.Status) == view.ExportJobStatusPending {
		startedAt := b.now()
		job.Status = string(view.ExportJobStatusRunning)
		job.StartedAt = &startedAt
		if err := b.jobRepo.UpdateJob(ctx, job); err != nil {
			return err
		}
		b.logService.Log(ctx, job.Id, LogLevelInfo, "export started", map[string]interface{}{"entities": len(job.Plan.Entities)})
		logger.Info(ctx, "Export started")
	}

	order := ExportOrder(&job.Plan)
	if len(order) == 0 {
		return fmt.Errorf("export plan of job %s has no entities", job.Id)
	}
	filters, err := b.filterService.ParseFilters(job.Filters)
	if err != nil {
		return err
	}
	opts, err := b.writerOptions(job)
	if err != nil {
		return err
	}
	run := &batchRun{
		job:     job,
		order:   order,
		filters: *filters,
		opts:    opts,
		start:   start,
		result:  result,
	}

	idx := 0
	if job.CurrentEntity != "" {
		if idx = indexOfEntity(order, job.CurrentEntity); idx < 0 {
			logger.Warnf(ctx, "Current entity %s is not part of the plan, starting over", job.CurrentEntity)
			idx = 0
		}
	}
	for ; idx < len(order); idx++ {
		ent := order[idx]
		if job.CurrentEntity != ent.Name {
			if err := b.moveTo(ctx, job, ent.Name); err != nil {
				return err
			}
		}
		finished, err := b.exportEntity(logger.WithEntity(ctx, ent.Name), run, idx)
		if err != nil {
			return err
		}
		if !finished {
			return nil
		}
		if idx+1 < len(order) {
			if err := b.moveTo(ctx, job, order[idx+1].Name); err != nil {
				return err
			}
			if b.shouldYield(run) {
				return nil
			}
		}
	}
	return b.complete(ctx, run)
}

// moveTo makes name the current entity with a fresh cursor and persists it.
func (b *batchExportServiceImpl) moveTo(ctx context.Context, job *entity.ExportJobEntity, name string) error {
	job.CurrentEntity = name
	job.SetCheckpoint(name, 0, view.FileCheckpoint{})
	return b.jobRepo.UpdateJobProgress(ctx, job)
}

// shouldYield is checked after every persisted step.
func (b *batchExportServiceImpl) shouldYield(run *batchRun) bool {
	if view.ExportJobStatus(run.job.Status) != view.ExportJobStatusRunning {
		return true
	}
	return b.now().Sub(run.start) >= b.config.TimeBudget
}

func (b *batchExportServiceImpl) exportEntity(ctx context.Context, run *batchRun, idx int) (bool, error) {
	job := run.job
	ent := run.order[idx]

	var parentKeys []string
	if !ent.Root {
		keys, err := b.parentKeys(run, idx)
		if err != nil {
			return false, err
		}
		parentKeys = keys
	}

	path := b.entityPath(job.Id, ent.Name)
	w := writer.NewCsvWriter(run.opts)
	if err := w.Resume(path, job.CheckpointOf(ent.Name), ent.Columns); err != nil {
		return false, err
	}
	closed := false
	defer func() {
		if !closed {
			if err := w.Abort(); err != nil {
				logger.Warnf(ctx, "Failed to release export file %s: %v", path, err)
			}
		}
	}()

	cursor := job.CursorOf(ent.Name)
	for {
		rows, err := b.fetchPage(ctx, run, ent, parentKeys, cursor)
		if err != nil {
			return false, err
		}
		next, err := advanceCursor(ent, cursor, rows)
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			if err := w.WriteRow(row); err != nil {
				return false, err
			}
		}
		cursor = next
		written := int64(len(rows))
		job.ProcessedCount += written
		run.result.ProcessedDelta += written
		metrics.ExportedRows.WithLabelValues(ent.Name).Add(float64(written))

		if len(rows) < b.config.PageSize {
			if err := w.Close(); err != nil {
				return false, err
			}
			closed = true
			job.SetCheckpoint(ent.Name, cursor, view.FileCheckpoint{Offset: w.Size(), Rows: w.RowCount()})
			file, err := b.fileService.RegisterFile(ctx, RegisteredFile{
				JobId:      job.Id,
				EntityName: ent.Name,
				Path:       path,
				RowCount:   w.RowCount(),
				Size:       w.Size(),
				Checksum:   w.Checksum(),
			})
			if err != nil {
				return false, err
			}
			b.logService.Log(ctx, job.Id, LogLevelInfo, "entity exported",
				map[string]interface{}{"entity": ent.Name, "rows": w.RowCount(), "fileId": file.Id})
			logger.Infof(ctx, "Entity exported: %d rows, %d bytes", w.RowCount(), w.Size())
			return true, nil
		}

		checkpoint, err := w.Checkpoint()
		if err != nil {
			return false, err
		}
		job.SetCheckpoint(ent.Name, cursor, checkpoint)
		if err := b.jobRepo.UpdateJobProgress(ctx, job); err != nil {
			return false, err
		}
		if b.shouldYield(run) {
			logger.Debugf(ctx, "Yielding at cursor %d with %d rows written", cursor, checkpoint.Rows)
			return false, nil
		}
	}
}

func (b *batchExportServiceImpl) fetchPage(ctx context.Context, run *batchRun, ent view.PlanEntity, parentKeys []string, cursor int64) ([]*orderedmap.OrderedMap, error) {
	if ent.Root {
		return b.sourceRepo.GetPage(ctx, ent, run.filters, cursor, b.config.PageSize)
	}
	if len(parentKeys) == 0 {
		return nil, nil
	}
	return b.sourceRepo.GetChildPage(ctx, ent, parentKeys, cursor, b.config.PageSize)
}

// parentKeys reads the join values of a dependent back from its parent's finished file.
func (b *batchExportServiceImpl) parentKeys(run *batchRun, idx int) ([]string, error) {
	ent := run.order[idx]
	parentIdx := indexOfEntity(run.order, ent.Parent)
	if parentIdx < 0 {
		return nil, fmt.Errorf("%w: parent %s of %s is not part of the plan", ErrInvariantViolation, ent.Parent, ent.Name)
	}
	if parentIdx >= idx {
		return nil, fmt.Errorf("%w: %s depends on %s", ErrParentNotReady, ent.Name, ent.Parent)
	}
	parent := run.order[parentIdx]
	candidates := []string{ent.ParentKey, ent.ForeignKey, parent.PrimaryKey}
	cacheKey := run.job.Id + "/" + parent.Name + "/" + strings.Join(candidates, ",")
	if cached, ok := b.keyCache.Load(cacheKey); ok {
		return cached.([]string), nil
	}

	path := b.entityPath(run.job.Id, parent.Name)
	values, column, err := writer.ReadColumn(path, run.opts.ReadOptions(), candidates...)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file of %s is missing", ErrParentNotReady, parent.Name)
		}
		return nil, fmt.Errorf("failed to read keys of %s: %w", parent.Name, err)
	}
	if column == "" {
		return nil, fmt.Errorf("%w: file of %s has none of the key columns %v", ErrInvariantViolation, parent.Name, candidates)
	}
	keys := utils.UniqueOrdered(values)
	b.keyCache.Store(cacheKey, keys)
	return keys, nil
}

func advanceCursor(ent view.PlanEntity, cursor int64, rows []*orderedmap.OrderedMap) (int64, error) {
	if !ent.HasPrimaryKey() {
		return cursor + int64(len(rows)), nil
	}
	last := cursor
	for _, row := range rows {
		raw, _ := row.Get(ent.PrimaryKey)
		id, err := parseKey(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: row of %s has no usable primary key %s: %v", ErrInvariantViolation, ent.Name, ent.PrimaryKey, err)
		}
		if id <= last {
			return 0, fmt.Errorf("%w: primary key of %s went from %d to %d", ErrInvariantViolation, ent.Name, last, id)
		}
		last = id
	}
	return last, nil
}

func parseKey(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	case nil:
		return 0, errors.New("value is empty")
	}
	return 0, fmt.Errorf("unsupported key type %T", v)
}

func (b *batchExportServiceImpl) complete(ctx context.Context, run *batchRun) error {
	job := run.job
	if b.config.CreateArchive {
		if err := b.createArchive(ctx, run); err != nil {
			return err
		}
	}
	completedAt := b.now()
	job.Status = string(view.ExportJobStatusCompleted)
	job.CompletedAt = &completedAt
	job.CurrentEntity = ""
	if err := b.jobRepo.UpdateJob(ctx, job); err != nil {
		return err
	}
	metrics.ExportJobsFinished.WithLabelValues(job.Status).Inc()
	b.logService.Log(ctx, job.Id, LogLevelInfo, "export completed",
		map[string]interface{}{"processedCount": job.ProcessedCount, "entities": len(run.order)})
	logger.Infof(ctx, "Export completed: %d rows", job.ProcessedCount)
	return nil
}

func (b *batchExportServiceImpl) createArchive(ctx context.Context, run *batchRun) error {
	job := run.job
	files, err := b.fileRepo.GetFilesByJob(ctx, job.Id)
	if err != nil {
		return err
	}
	byEntity := make(map[string]entity.ExportFileEntity, len(files))
	for _, f := range files {
		byEntity[f.EntityName] = f
	}

	entries := make([]archive.Entry, 0, len(run.order)+1)
	manifest := make([]archive.ManifestRow, 0, len(run.order))
	var totalRows int64
	for _, ent := range run.order {
		f, exists := byEntity[ent.Name]
		if !exists {
			return fmt.Errorf("%w: file of %s is not registered", ErrInvariantViolation, ent.Name)
		}
		entries = append(entries, archive.Entry{Name: f.FileName, Path: f.Path})
		manifest = append(manifest, archive.ManifestRow{Entity: ent.Name, FileName: f.FileName, Rows: f.RowCount, Size: f.Size, Checksum: f.Checksum})
		totalRows += f.RowCount
	}
	if b.config.CreateManifest {
		content, err := archive.BuildManifest(manifest)
		if err != nil {
			return fmt.Errorf("failed to build manifest: %w", err)
		}
		entries = append(entries, archive.Entry{Name: archive.ManifestFileName, Content: content})
	}

	fileName := slug.Make(fmt.Sprintf("export %s %s %s", job.ExportFamily, job.DetailLevel, job.CreatedAt.Format("2006-01-02 15 04"))) + ".zip"
	path := filepath.Join(JobDirectory(b.config.ExportDir, job.Id), fileName)
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, 0600); err != nil {
			return err
		}
	}
	size, err := archive.CreateZipArchive(path, entries)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, 0400); err != nil {
		return err
	}
	checksum, err := crypto.CreateFileSHA256Hash(path)
	if err != nil {
		return err
	}
	file, err := b.fileService.RegisterFile(ctx, RegisteredFile{
		JobId:      job.Id,
		EntityName: view.ArchiveEntityName,
		Path:       path,
		RowCount:   totalRows,
		Size:       size,
		Checksum:   checksum,
	})
	if err != nil {
		return err
	}
	logger.Infof(ctx, "Archive %s created, %d bytes", fileName, size)

	if b.archiveStorage != nil && b.archiveStorage.IsEnabled() {
		objectKey, err := b.archiveStorage.UploadArchive(ctx, job.Id, path, fileName)
		if err != nil {
			logger.Warnf(ctx, "Archive upload failed, only the local copy is available: %v", err)
			b.logService.Log(ctx, job.Id, LogLevelWarning, "archive upload failed", map[string]interface{}{"error": err.Error()})
			return nil
		}
		if err := b.fileService.SetObjectKey(ctx, file.Id, objectKey); err != nil {
			return err
		}
	}
	return nil
}

func (b *batchExportServiceImpl) fail(ctx context.Context, job *entity.ExportJobEntity, cause error, result *view.BatchResult) (*view.BatchResult, error) {
	detail := truncateError(cause.Error(), b.config.MaxErrorLength)
	failedAt := b.now()
	job.Status = string(view.ExportJobStatusFailed)
	job.ErrorDetail = detail
	job.CompletedAt = &failedAt
	if err := b.jobRepo.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark export job %s as failed (%s): %w", job.Id, detail, err)
	}
	metrics.ExportJobsFinished.WithLabelValues(job.Status).Inc()
	b.logService.Log(ctx, job.Id, LogLevelError, "export failed",
		map[string]interface{}{"entity": job.CurrentEntity, "error": detail})
	logger.Errorf(ctx, "Export failed at entity %s: %s", job.CurrentEntity, detail)
	return &view.BatchResult{
		Status:         view.ExportJobStatusFailed,
		ProcessedDelta: result.ProcessedDelta,
		CurrentEntity:  job.CurrentEntity,
		ErrorDetail:    detail,
	}, nil
}

func (b *batchExportServiceImpl) writerOptions(job *entity.ExportJobEntity) (writer.Options, error) {
	opts := writer.Options{
		Delimiter:  b.config.Delimiter,
		Enclosure:  b.config.Enclosure,
		Bom:        b.config.Bom,
		FlushEvery: b.config.FlushEvery,
	}
	if job.Anonymize {
		if b.config.AnonymizeSalt == "" {
			return opts, ErrAnonymizationSaltMissing
		}
		opts.Anonymizer = writer.NewAnonymizer(b.config.AnonymizeSalt)
	}
	return opts, nil
}

func (b *batchExportServiceImpl) entityPath(jobId string, entityName string) string {
	return filepath.Join(JobDirectory(b.config.ExportDir, jobId), entityName+exportFileExtension)
}

func indexOfEntity(order []view.PlanEntity, name string) int {
	for i, e := range order {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func truncateError(msg string, limit int) string {
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit])
}
