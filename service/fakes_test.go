package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/Netcracker/qubership-data-exporter/writer"
	"github.com/iancoleman/orderedmap"
)

// fakeSchema is an in-memory shop schema.
type fakeSchema struct {
	columns     map[string][]string
	primaryKeys map[string]string
	err         error
}

func (f *fakeSchema) TableExists(_ context.Context, table string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, exists := f.columns[table]
	return exists, nil
}

func (f *fakeSchema) GetColumnNames(_ context.Context, table string) ([]string, error) {
	return f.columns[table], nil
}

func (f *fakeSchema) GetPrimaryKey(_ context.Context, table string) (string, error) {
	return f.primaryKeys[table], nil
}

func (f *fakeSchema) FindTablesWithColumn(_ context.Context, column string) ([]string, error) {
	result := make([]string, 0)
	for table, columns := range f.columns {
		if utils.SliceContains(columns, column) {
			result = append(result, table)
		}
	}
	sort.Strings(result)
	return result, nil
}

// fakeSource serves rows of in-memory tables the way the shop database would.
type fakeSource struct {
	mu       sync.Mutex
	tables   map[string][]*orderedmap.OrderedMap
	requests map[string]int
	failOn   map[string]error
	// pages, when set for an entity, are returned as is, one per request
	pages      map[string][][]*orderedmap.OrderedMap
	beforePage func(table string, n int)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tables:   make(map[string][]*orderedmap.OrderedMap),
		requests: make(map[string]int),
		failOn:   make(map[string]error),
		pages:    make(map[string][][]*orderedmap.OrderedMap),
	}
}

func (f *fakeSource) add(table string, columns []string, values ...[]interface{}) {
	for _, v := range values {
		row := orderedmap.New()
		for i, c := range columns {
			row.Set(c, v[i])
		}
		f.tables[table] = append(f.tables[table], row)
	}
}

func (f *fakeSource) requestCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[table]
}

func (f *fakeSource) begin(table string) (int, error) {
	f.mu.Lock()
	f.requests[table]++
	n, err, hook := f.requests[table], f.failOn[table], f.beforePage
	f.mu.Unlock()
	if hook != nil {
		hook(table, n)
	}
	return n, err
}

func (f *fakeSource) GetPage(_ context.Context, ent view.PlanEntity, filters view.ExportFilters, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error) {
	n, err := f.begin(ent.Name)
	if err != nil {
		return nil, err
	}
	if pages, exists := f.pages[ent.Name]; exists {
		if n > len(pages) {
			return nil, nil
		}
		return pages[n-1], nil
	}
	matching := make([]*orderedmap.OrderedMap, 0)
	for _, row := range f.tables[ent.Name] {
		id := keyOf(row, ent.PrimaryKey)
		if id <= cursor || (filters.MinId > 0 && id < filters.MinId) || (filters.MaxId > 0 && id > filters.MaxId) {
			continue
		}
		matching = append(matching, row)
	}
	sortByKey(matching, ent.PrimaryKey)
	return limitRows(matching, 0, pageSize), nil
}

func (f *fakeSource) GetChildPage(_ context.Context, ent view.PlanEntity, parentKeys []string, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error) {
	if _, err := f.begin(ent.Name); err != nil {
		return nil, err
	}
	matching := make([]*orderedmap.OrderedMap, 0)
	for _, row := range f.tables[ent.Name] {
		fk, _ := row.Get(ent.ForeignKey)
		if !utils.SliceContains(parentKeys, writer.FormatValue(fk)) {
			continue
		}
		if ent.HasPrimaryKey() && keyOf(row, ent.PrimaryKey) <= cursor {
			continue
		}
		matching = append(matching, row)
	}
	if ent.HasPrimaryKey() {
		sortByKey(matching, ent.PrimaryKey)
		return limitRows(matching, 0, pageSize), nil
	}
	return limitRows(matching, int(cursor), pageSize), nil
}

func (f *fakeSource) CountRows(_ context.Context, ent view.PlanEntity, filters view.ExportFilters) (int64, error) {
	if err := f.failOn[ent.Name]; err != nil {
		return 0, err
	}
	var count int64
	for _, row := range f.tables[ent.Name] {
		if filters.MinId > 0 && keyOf(row, ent.PrimaryKey) < filters.MinId {
			continue
		}
		count++
	}
	return count, nil
}

func keyOf(row *orderedmap.OrderedMap, column string) int64 {
	v, _ := row.Get(column)
	id, _ := parseKey(v)
	return id
}

func sortByKey(rows []*orderedmap.OrderedMap, column string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return keyOf(rows[i], column) < keyOf(rows[j], column)
	})
}

func limitRows(rows []*orderedmap.OrderedMap, offset int, limit int) []*orderedmap.OrderedMap {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// fakeJobRepo stores copies, so that a job only changes through the repository.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.ExportJobEntity
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*entity.ExportJobEntity)}
}

func copyJob(ent *entity.ExportJobEntity) *entity.ExportJobEntity {
	c := *ent
	c.Cursors = make(map[string]int64, len(ent.Cursors))
	for k, v := range ent.Cursors {
		c.Cursors[k] = v
	}
	c.Checkpoints = make(map[string]view.FileCheckpoint, len(ent.Checkpoints))
	for k, v := range ent.Checkpoints {
		c.Checkpoints[k] = v
	}
	return &c
}

func (f *fakeJobRepo) CreateJob(_ context.Context, ent *entity.ExportJobEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.jobs[ent.Id]; exists {
		return errors.New("duplicate job id")
	}
	f.jobs[ent.Id] = copyJob(ent)
	return nil
}

func (f *fakeJobRepo) UpdateJob(_ context.Context, ent *entity.ExportJobEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.jobs[ent.Id]; !exists {
		return errors.New("job no longer exists")
	}
	ent.UpdatedAt = time.Now()
	f.jobs[ent.Id] = copyJob(ent)
	return nil
}

func (f *fakeJobRepo) UpdateJobProgress(_ context.Context, ent *entity.ExportJobEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, exists := f.jobs[ent.Id]
	if !exists {
		return errors.New("job no longer exists")
	}
	c := copyJob(ent)
	stored.ProcessedCount = c.ProcessedCount
	stored.CurrentEntity = c.CurrentEntity
	stored.Cursors = c.Cursors
	stored.Checkpoints = c.Checkpoints
	stored.UpdatedAt = time.Now()
	ent.Status = stored.Status
	return nil
}

func (f *fakeJobRepo) UpdateJobStatus(_ context.Context, jobId string, fromStatuses []string, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, exists := f.jobs[jobId]
	if !exists || !utils.SliceContains(fromStatuses, stored.Status) {
		return false, nil
	}
	stored.Status = status
	return true, nil
}

func (f *fakeJobRepo) GetJob(_ context.Context, jobId string) (*entity.ExportJobEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, exists := f.jobs[jobId]
	if !exists {
		return nil, nil
	}
	return copyJob(stored), nil
}

func (f *fakeJobRepo) GetJobs(_ context.Context, statuses []string, limit int) ([]entity.ExportJobEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]entity.ExportJobEntity, 0)
	for _, j := range f.jobs {
		if len(statuses) == 0 || utils.SliceContains(statuses, j.Status) {
			result = append(result, *copyJob(j))
		}
	}
	sort.Slice(result, func(i, k int) bool { return result[i].CreatedAt.After(result[k].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeJobRepo) GetJobsCreatedBefore(_ context.Context, before time.Time) ([]entity.ExportJobEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]entity.ExportJobEntity, 0)
	for _, j := range f.jobs {
		if j.CreatedAt.Before(before) {
			result = append(result, *copyJob(j))
		}
	}
	return result, nil
}

func (f *fakeJobRepo) CountJobsByStatus(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]int)
	for _, j := range f.jobs {
		result[j.Status]++
	}
	return result, nil
}

func (f *fakeJobRepo) DeleteJob(_ context.Context, jobId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobId)
	return nil
}

func (f *fakeJobRepo) stored(jobId string) *entity.ExportJobEntity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobId]
}

type fakeFileRepo struct {
	mu    sync.Mutex
	files map[string]*entity.ExportFileEntity
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*entity.ExportFileEntity)}
}

func (f *fakeFileRepo) SaveFile(_ context.Context, ent *entity.ExportFileEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.files {
		if existing.JobId == ent.JobId && existing.EntityName == ent.EntityName {
			delete(f.files, id)
		}
	}
	c := *ent
	f.files[ent.Id] = &c
	return nil
}

func (f *fakeFileRepo) GetFile(_ context.Context, fileId string) (*entity.ExportFileEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent, exists := f.files[fileId]
	if !exists {
		return nil, nil
	}
	c := *ent
	return &c, nil
}

func (f *fakeFileRepo) GetFilesByJob(_ context.Context, jobId string) ([]entity.ExportFileEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]entity.ExportFileEntity, 0)
	for _, ent := range f.files {
		if ent.JobId == jobId {
			result = append(result, *ent)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (f *fakeFileRepo) ConsumeDownloadToken(_ context.Context, fileId string, token string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent, exists := f.files[fileId]
	if !exists || ent.DownloadToken == "" || ent.DownloadToken != token || !ent.DownloadExpiresAt.After(now) {
		return false, nil
	}
	ent.DownloadToken = ""
	ent.DownloadCount++
	return true, nil
}

func (f *fakeFileRepo) UpdateDownloadToken(_ context.Context, fileId string, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ent, exists := f.files[fileId]; exists {
		ent.DownloadToken = token
		ent.DownloadExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeFileRepo) UpdateObjectKey(_ context.Context, fileId string, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ent, exists := f.files[fileId]; exists {
		ent.ObjectKey = objectKey
	}
	return nil
}

func (f *fakeFileRepo) byEntity(jobId string, entityName string) *entity.ExportFileEntity {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ent := range f.files {
		if ent.JobId == jobId && ent.EntityName == entityName {
			c := *ent
			return &c
		}
	}
	return nil
}

type fakeLogRepo struct {
	mu   sync.Mutex
	logs []entity.ExportLogEntity
}

func (f *fakeLogRepo) SaveLog(_ context.Context, ent *entity.ExportLogEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent.Id = int64(len(f.logs) + 1)
	f.logs = append(f.logs, *ent)
	return nil
}

func (f *fakeLogRepo) GetLogsByJob(_ context.Context, jobId string) ([]entity.ExportLogEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]entity.ExportLogEntity, 0)
	for _, l := range f.logs {
		if l.JobId == jobId {
			result = append(result, l)
		}
	}
	return result, nil
}

func (f *fakeLogRepo) messages(jobId string) []string {
	logs, _ := f.GetLogsByJob(context.Background(), jobId)
	result := make([]string, 0, len(logs))
	for _, l := range logs {
		result = append(result, l.Message)
	}
	return result
}

type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[string]*entity.ExportLockEntity
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{locks: make(map[string]*entity.ExportLockEntity)}
}

func (f *fakeLockRepo) TryAcquireLock(_ context.Context, lockName string, owner string, lease time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if existing, exists := f.locks[lockName]; exists && existing.ExpiresAt.After(now) {
		return false, nil
	}
	f.locks[lockName] = &entity.ExportLockEntity{Name: lockName, Owner: owner, LeasedAt: now, ExpiresAt: now.Add(lease)}
	return true, nil
}

func (f *fakeLockRepo) ExtendLock(_ context.Context, lockName string, owner string, lease time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, exists := f.locks[lockName]
	if !exists || existing.Owner != owner {
		return repository.ErrLockLost
	}
	existing.ExpiresAt = time.Now().Add(lease)
	return nil
}

func (f *fakeLockRepo) ReleaseLock(_ context.Context, lockName string, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, exists := f.locks[lockName]; exists && existing.Owner == owner {
		delete(f.locks, lockName)
	}
	return nil
}

func (f *fakeLockRepo) GetLock(_ context.Context, lockName string) (*entity.ExportLockEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, exists := f.locks[lockName]
	if !exists {
		return nil, repository.ErrLockNotFound
	}
	c := *existing
	return &c, nil
}

// stepClock moves forward by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}
