package repository

import (
	"context"
	"time"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
)

type ExportFileRepository interface {
	// SaveFile replaces any earlier registration of the same job entity.
	SaveFile(ctx context.Context, ent *entity.ExportFileEntity) error
	GetFile(ctx context.Context, fileId string) (*entity.ExportFileEntity, error)
	GetFilesByJob(ctx context.Context, jobId string) ([]entity.ExportFileEntity, error)
	// ConsumeDownloadToken marks the token used; false means it is unknown, used or expired.
	ConsumeDownloadToken(ctx context.Context, fileId string, token string, now time.Time) (bool, error)
	UpdateDownloadToken(ctx context.Context, fileId string, token string, expiresAt time.Time) error
	UpdateObjectKey(ctx context.Context, fileId string, objectKey string) error
}

func NewExportFileRepository(cp db.ConnectionProvider) ExportFileRepository {
	return &exportFileRepositoryImpl{cp: cp}
}

type exportFileRepositoryImpl struct {
	cp db.ConnectionProvider
}

func (e exportFileRepositoryImpl) SaveFile(ctx context.Context, ent *entity.ExportFileEntity) error {
	return e.cp.GetConnection().RunInTransaction(ctx, func(tx *pg.Tx) error {
		_, err := tx.ModelContext(ctx, &entity.ExportFileEntity{}).
			Where("job_id = ?", ent.JobId).
			Where("entity_name = ?", ent.EntityName).
			Delete()
		if err != nil {
			return errors.Wrap(err, "failed to delete previous export file registration")
		}
		if _, err := tx.ModelContext(ctx, ent).Insert(); err != nil {
			return errors.Wrapf(err, "failed to register export file %s", ent.FileName)
		}
		return nil
	})
}

func (e exportFileRepositoryImpl) GetFile(ctx context.Context, fileId string) (*entity.ExportFileEntity, error) {
	ent := new(entity.ExportFileEntity)
	err := e.cp.GetConnection().ModelContext(ctx, ent).
		Where("id = ?", fileId).
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get export file %s", fileId)
	}
	return ent, nil
}

func (e exportFileRepositoryImpl) GetFilesByJob(ctx context.Context, jobId string) ([]entity.ExportFileEntity, error) {
	var result []entity.ExportFileEntity
	err := e.cp.GetConnection().ModelContext(ctx, &result).
		Where("job_id = ?", jobId).
		Order("created_at ASC").
		Select()
	if err != nil {
		if err == pg.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list files of export job %s", jobId)
	}
	return result, nil
}

func (e exportFileRepositoryImpl) ConsumeDownloadToken(ctx context.Context, fileId string, token string, now time.Time) (bool, error) {
	result, err := e.cp.GetConnection().ModelContext(ctx, &entity.ExportFileEntity{}).
		Set("download_count = download_count + 1").
		Set("download_token = ''").
		Where("id = ?", fileId).
		Where("download_token = ?", token).
		Where("download_token != ''").
		Where("download_expires_at > ?", now).
		Update()
	if err != nil {
		return false, errors.Wrapf(err, "failed to consume download token of file %s", fileId)
	}
	return result.RowsAffected() == 1, nil
}

func (e exportFileRepositoryImpl) UpdateDownloadToken(ctx context.Context, fileId string, token string, expiresAt time.Time) error {
	_, err := e.cp.GetConnection().ModelContext(ctx, &entity.ExportFileEntity{}).
		Set("download_token = ?", token).
		Set("download_expires_at = ?", expiresAt).
		Where("id = ?", fileId).
		Update()
	if err != nil {
		return errors.Wrapf(err, "failed to renew download token of file %s", fileId)
	}
	return nil
}

func (e exportFileRepositoryImpl) UpdateObjectKey(ctx context.Context, fileId string, objectKey string) error {
	_, err := e.cp.GetConnection().ModelContext(ctx, &entity.ExportFileEntity{}).
		Set("object_key = ?", objectKey).
		Where("id = ?", fileId).
		Update()
	return errors.Wrapf(err, "failed to set object key of file %s", fileId)
}
