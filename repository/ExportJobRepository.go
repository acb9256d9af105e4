package repository

import (
	"context"
	"time"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
)

type ExportJobRepository interface {
	CreateJob(ctx context.Context, ent *entity.ExportJobEntity) error
	UpdateJob(ctx context.Context, ent *entity.ExportJobEntity) error
	// UpdateJobProgress stores the checkpoint columns only and refreshes ent.Status from the stored row.
	UpdateJobProgress(ctx context.Context, ent *entity.ExportJobEntity) error
	// UpdateJobStatus switches the status only when the job is currently in one of fromStatuses.
	UpdateJobStatus(ctx context.Context, jobId string, fromStatuses []string, status string) (bool, error)
	GetJob(ctx context.Context, jobId string) (*entity.ExportJobEntity, error)
	GetJobs(ctx context.Context, statuses []string, limit int) ([]entity.ExportJobEntity, error)
	GetJobsCreatedBefore(ctx context.Context, before time.Time) ([]entity.ExportJobEntity, error)
	CountJobsByStatus(ctx context.Context) (map[string]int, error)
	DeleteJob(ctx context.Context, jobId string) error
}

func NewExportJobRepository(cp db.ConnectionProvider) ExportJobRepository {
	return &exportJobRepositoryImpl{cp: cp}
}

type exportJobRepositoryImpl struct {
	cp db.ConnectionProvider
}

func (e exportJobRepositoryImpl) CreateJob(ctx context.Context, ent *entity.ExportJobEntity) error {
	_, err := e.cp.GetConnection().ModelContext(ctx, ent).Insert()
	if err != nil {
		return errors.Wrapf(err, "failed to insert export job %s", ent.Id)
	}
	return nil
}

func (e exportJobRepositoryImpl) UpdateJob(ctx context.Context, ent *entity.ExportJobEntity) error {
	ent.UpdatedAt = time.Now()
	result, err := e.cp.GetConnection().ModelContext(ctx, ent).WherePK().Update()
	if err != nil {
		return errors.Wrapf(err, "failed to update export job %s", ent.Id)
	}
	if result.RowsAffected() == 0 {
		return errors.Errorf("export job %s no longer exists", ent.Id)
	}
	return nil
}

func (e exportJobRepositoryImpl) UpdateJobProgress(ctx context.Context, ent *entity.ExportJobEntity) error {
	ent.UpdatedAt = time.Now()
	result, err := e.cp.GetConnection().ModelContext(ctx, ent).
		Column("processed_count", "current_entity", "cursors", "checkpoints", "updated_at").
		WherePK().
		Returning("status").
		Update()
	if err != nil {
		return errors.Wrapf(err, "failed to store progress of export job %s", ent.Id)
	}
	if result.RowsAffected() == 0 {
		return errors.Errorf("export job %s no longer exists", ent.Id)
	}
	return nil
}

func (e exportJobRepositoryImpl) UpdateJobStatus(ctx context.Context, jobId string, fromStatuses []string, status string) (bool, error) {
	result, err := e.cp.GetConnection().ModelContext(ctx, &entity.ExportJobEntity{}).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", jobId).
		Where("status in (?)", pg.In(fromStatuses)).
		Update()
	if err != nil {
		return false, errors.Wrapf(err, "failed to update status of export job %s", jobId)
	}
	return result.RowsAffected() > 0, nil
}

func (e exportJobRepositoryImpl) GetJob(ctx context.Context, jobId string) (*entity.ExportJobEntity, error) {
	ent := new(entity.ExportJobEntity)
	err := e.cp.GetConnection().ModelContext(ctx, ent).
		Where("id = ?", jobId).
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get export job %s", jobId)
	}
	return ent, nil
}

func (e exportJobRepositoryImpl) GetJobs(ctx context.Context, statuses []string, limit int) ([]entity.ExportJobEntity, error) {
	var result []entity.ExportJobEntity
	query := e.cp.GetConnection().ModelContext(ctx, &result).
		Order("created_at DESC")
	if len(statuses) > 0 {
		query.Where("status in (?)", pg.In(statuses))
	}
	if limit > 0 {
		query.Limit(limit)
	}
	if err := query.Select(); err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list export jobs")
	}
	return result, nil
}

func (e exportJobRepositoryImpl) GetJobsCreatedBefore(ctx context.Context, before time.Time) ([]entity.ExportJobEntity, error) {
	var result []entity.ExportJobEntity
	err := e.cp.GetConnection().ModelContext(ctx, &result).
		Where("created_at < ?", before).
		Order("created_at ASC").
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list outdated export jobs")
	}
	return result, nil
}

func (e exportJobRepositoryImpl) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := e.cp.GetConnection().ModelContext(ctx, (*entity.ExportJobEntity)(nil)).
		Column("status").
		ColumnExpr("count(*) as count").
		Group("status").
		Select(&rows)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count export jobs")
	}
	result := make(map[string]int, len(rows))
	for _, r := range rows {
		result[r.Status] = r.Count
	}
	return result, nil
}

func (e exportJobRepositoryImpl) DeleteJob(ctx context.Context, jobId string) error {
	return e.cp.GetConnection().RunInTransaction(ctx, func(tx *pg.Tx) error {
		if _, err := tx.ModelContext(ctx, &entity.ExportFileEntity{}).Where("job_id = ?", jobId).Delete(); err != nil {
			return errors.Wrap(err, "failed to delete export files")
		}
		if _, err := tx.ModelContext(ctx, &entity.ExportLogEntity{}).Where("job_id = ?", jobId).Delete(); err != nil {
			return errors.Wrap(err, "failed to delete export logs")
		}
		if _, err := tx.ModelContext(ctx, &entity.ExportJobEntity{}).Where("id = ?", jobId).Delete(); err != nil {
			return errors.Wrap(err, "failed to delete export job")
		}
		return nil
	})
}
