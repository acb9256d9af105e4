package service

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Netcracker/qubership-data-exporter/crypto"
	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type RegisteredFile struct {
	JobId      string
	EntityName string
	Path       string
	RowCount   int64
	Size       int64
	Checksum   string
}

type ExportFileService interface {
	// RegisterFile records a finished file with a fresh single-use download token.
	RegisterFile(ctx context.Context, file RegisteredFile) (*entity.ExportFileEntity, error)
	SetObjectKey(ctx context.Context, fileId string, objectKey string) error
	GetJobFiles(ctx context.Context, jobId string) (*view.ExportFiles, error)
	RenewDownloadToken(ctx context.Context, fileId string) (*view.ExportFile, error)
	// GetDownloadableFile consumes the token. The caller must close Content when it is set.
	GetDownloadableFile(ctx context.Context, fileId string, token string) (*view.DownloadableFile, error)
}

func NewExportFileService(fileRepo repository.ExportFileRepository, archiveStorage ArchiveStorageService, downloadTTL time.Duration) ExportFileService {
	return &exportFileServiceImpl{
		fileRepo:       fileRepo,
		archiveStorage: archiveStorage,
		downloadTTL:    downloadTTL,
		now:            time.Now,
	}
}

type exportFileServiceImpl struct {
	fileRepo       repository.ExportFileRepository
	archiveStorage ArchiveStorageService
	downloadTTL    time.Duration
	now            func() time.Time
}

func (e exportFileServiceImpl) RegisterFile(ctx context.Context, file RegisteredFile) (*entity.ExportFileEntity, error) {
	token, err := crypto.CreateRandomHash()
	if err != nil {
		return nil, err
	}
	now := e.now()
	ent := &entity.ExportFileEntity{
		Id:                uuid.New().String(),
		JobId:             file.JobId,
		EntityName:        file.EntityName,
		Path:              file.Path,
		FileName:          filepath.Base(file.Path),
		Size:              file.Size,
		RowCount:          file.RowCount,
		Checksum:          file.Checksum,
		DownloadToken:     token,
		DownloadExpiresAt: now.Add(e.downloadTTL),
		CreatedAt:         now,
	}
	if err := e.fileRepo.SaveFile(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

func (e exportFileServiceImpl) SetObjectKey(ctx context.Context, fileId string, objectKey string) error {
	return e.fileRepo.UpdateObjectKey(ctx, fileId, objectKey)
}

func (e exportFileServiceImpl) GetJobFiles(ctx context.Context, jobId string) (*view.ExportFiles, error) {
	ents, err := e.fileRepo.GetFilesByJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	result := &view.ExportFiles{Files: make([]view.ExportFile, 0, len(ents))}
	for i := range ents {
		result.Files = append(result.Files, *e.makeFileView(&ents[i]))
	}
	return result, nil
}

func (e exportFileServiceImpl) RenewDownloadToken(ctx context.Context, fileId string) (*view.ExportFile, error) {
	ent, err := e.getFile(ctx, fileId)
	if err != nil {
		return nil, err
	}
	token, err := crypto.CreateRandomHash()
	if err != nil {
		return nil, err
	}
	ent.DownloadToken = token
	ent.DownloadExpiresAt = e.now().Add(e.downloadTTL)
	if err := e.fileRepo.UpdateDownloadToken(ctx, fileId, ent.DownloadToken, ent.DownloadExpiresAt); err != nil {
		return nil, err
	}
	return e.makeFileView(ent), nil
}

func (e exportFileServiceImpl) GetDownloadableFile(ctx context.Context, fileId string, token string) (*view.DownloadableFile, error) {
	if token == "" {
		return nil, downloadTokenError()
	}
	ent, err := e.getFile(ctx, fileId)
	if err != nil {
		return nil, err
	}
	result := &view.DownloadableFile{
		Path:     ent.Path,
		FileName: ent.FileName,
		Size:     ent.Size,
		Checksum: ent.Checksum,
	}
	if _, statErr := os.Stat(ent.Path); statErr != nil {
		if ent.ObjectKey == "" || e.archiveStorage == nil || !e.archiveStorage.IsEnabled() {
			log.Warnf("Export file %s is not available: %v", ent.Path, statErr)
			return nil, &exception.CustomError{
				Status:  http.StatusGone,
				Code:    exception.ExportFileNotAvailable,
				Message: exception.ExportFileNotAvailableMsg,
				Params:  map[string]interface{}{"fileName": ent.FileName},
			}
		}
		result.Path = ""
	}

	consumed, err := e.fileRepo.ConsumeDownloadToken(ctx, fileId, token, e.now())
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, downloadTokenError()
	}
	if result.Path == "" {
		content, size, err := e.archiveStorage.GetArchive(ctx, ent.ObjectKey)
		if err != nil {
			return nil, err
		}
		result.Content = content
		result.Size = size
	}
	return result, nil
}

func (e exportFileServiceImpl) getFile(ctx context.Context, fileId string) (*entity.ExportFileEntity, error) {
	ent, err := e.fileRepo.GetFile(ctx, fileId)
	if err != nil {
		return nil, err
	}
	if ent == nil {
		return nil, &exception.CustomError{
			Status:  http.StatusNotFound,
			Code:    exception.ExportFileNotFound,
			Message: exception.ExportFileNotFoundMsg,
			Params:  map[string]interface{}{"fileId": fileId},
		}
	}
	return ent, nil
}

func (e exportFileServiceImpl) makeFileView(ent *entity.ExportFileEntity) *view.ExportFile {
	expiresIn := 0
	if ent.DownloadToken != "" {
		expiresIn = utils.GetRemainingSeconds(ent.DownloadExpiresAt)
	}
	fileView := entity.MakeExportFileView(ent, expiresIn)
	if expiresIn == 0 {
		fileView.DownloadToken = ""
	}
	return fileView
}

func downloadTokenError() error {
	return &exception.CustomError{
		Status:  http.StatusForbidden,
		Code:    exception.DownloadTokenInvalid,
		Message: exception.DownloadTokenInvalidMsg,
	}
}
