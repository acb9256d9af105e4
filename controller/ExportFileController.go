package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/metrics"
	"github.com/Netcracker/qubership-data-exporter/service"
	"github.com/Netcracker/qubership-data-exporter/utils"
	log "github.com/sirupsen/logrus"
)

const ChecksumHeader = "X-Checksum-Sha256"

type ExportFileController interface {
	RenewDownloadToken(w http.ResponseWriter, r *http.Request)
	// DownloadExportFile is authorized by the download token only.
	DownloadExportFile(w http.ResponseWriter, r *http.Request)
}

func NewExportFileController(fileService service.ExportFileService) ExportFileController {
	return &exportFileControllerImpl{fileService: fileService}
}

type exportFileControllerImpl struct {
	fileService service.ExportFileService
}

func (e exportFileControllerImpl) RenewDownloadToken(w http.ResponseWriter, r *http.Request) {
	file, err := e.fileService.RenewDownloadToken(r.Context(), getStringParam(r, "fileId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to renew download token", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, file)
}

func (e exportFileControllerImpl) DownloadExportFile(w http.ResponseWriter, r *http.Request) {
	fileId := getStringParam(r, "fileId")
	file, err := e.fileService.GetDownloadableFile(r.Context(), fileId, r.URL.Query().Get("token"))
	if err != nil {
		metrics.FileDownloads.WithLabelValues(downloadResult(err)).Inc()
		utils.RespondWithError(w, "Failed to download export file", err)
		return
	}
	content := file.Content
	if content == nil {
		f, err := os.Open(file.Path)
		if err != nil {
			metrics.FileDownloads.WithLabelValues("error").Inc()
			utils.RespondWithError(w, "Failed to open export file", err)
			return
		}
		content = f
	}
	defer content.Close()

	w.Header().Set("Content-Type", contentTypeOf(file.FileName))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", file.FileName, url.PathEscape(file.FileName)))
	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	if file.Checksum != "" {
		w.Header().Set(ChecksumHeader, file.Checksum)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		metrics.FileDownloads.WithLabelValues("error").Inc()
		log.Errorf("Failed to send export file %s: %v", fileId, err)
		return
	}
	metrics.FileDownloads.WithLabelValues("ok").Inc()
}

func downloadResult(err error) string {
	var customError *exception.CustomError
	if errors.As(err, &customError) {
		switch customError.Code {
		case exception.DownloadTokenInvalid:
			return "denied"
		case exception.ExportFileNotAvailable:
			return "gone"
		case exception.ExportFileNotFound:
			return "not_found"
		}
	}
	return "error"
}

func contentTypeOf(fileName string) string {
	switch filepath.Ext(fileName) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}
