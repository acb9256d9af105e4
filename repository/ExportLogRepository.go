package repository

import (
	"context"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
)

type ExportLogRepository interface {
	SaveLog(ctx context.Context, ent *entity.ExportLogEntity) error
	GetLogsByJob(ctx context.Context, jobId string) ([]entity.ExportLogEntity, error)
}

func NewExportLogRepository(cp db.ConnectionProvider) ExportLogRepository {
	return &exportLogRepositoryImpl{cp: cp}
}

type exportLogRepositoryImpl struct {
	cp db.ConnectionProvider
}

func (e exportLogRepositoryImpl) SaveLog(ctx context.Context, ent *entity.ExportLogEntity) error {
	_, err := e.cp.GetConnection().ModelContext(ctx, ent).Insert()
	return errors.Wrap(err, "failed to insert export log")
}

func (e exportLogRepositoryImpl) GetLogsByJob(ctx context.Context, jobId string) ([]entity.ExportLogEntity, error) {
	var result []entity.ExportLogEntity
	err := e.cp.GetConnection().ModelContext(ctx, &result).
		Where("job_id = ?", jobId).
		Order("id ASC").
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list logs of export job %s", jobId)
	}
	return result, nil
}
