package service

import (
	"context"
	"strings"
	"time"

	"github.com/Netcracker/qubership-data-exporter/entity"
	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/Netcracker/qubership-data-exporter/writer"
	log "github.com/sirupsen/logrus"
)

const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

var piiLogKeys = []string{"email", "phone", "firstname", "lastname", "address", "postcode", "password"}

type ExportLogService interface {
	// Log appends a job log record. Storage failures are only reported to the service log.
	Log(ctx context.Context, jobId string, level string, message string, details map[string]interface{})
	GetLogs(ctx context.Context, jobId string, limit int, page int) (*view.ExportLogs, error)
}

func NewExportLogService(logRepo repository.ExportLogRepository) ExportLogService {
	return &exportLogServiceImpl{logRepo: logRepo}
}

type exportLogServiceImpl struct {
	logRepo repository.ExportLogRepository
}

func (e exportLogServiceImpl) Log(ctx context.Context, jobId string, level string, message string, details map[string]interface{}) {
	ent := &entity.ExportLogEntity{
		JobId:     jobId,
		Level:     level,
		Message:   message,
		Context:   stripPii(details),
		CreatedAt: time.Now(),
	}
	if err := e.logRepo.SaveLog(ctx, ent); err != nil {
		log.Errorf("Failed to store log record of export job %s: %v", jobId, err)
	}
}

func (e exportLogServiceImpl) GetLogs(ctx context.Context, jobId string, limit int, page int) (*view.ExportLogs, error) {
	ents, err := e.logRepo.GetLogsByJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	start, end := utils.PaginateList(len(ents), limit, page)
	result := &view.ExportLogs{Logs: make([]view.ExportLog, 0, end-start)}
	for _, ent := range ents[start:end] {
		result.Logs = append(result.Logs, entity.MakeExportLogView(ent))
	}
	return result, nil
}

func stripPii(details map[string]interface{}) map[string]interface{} {
	if len(details) == 0 {
		return nil
	}
	result := make(map[string]interface{}, len(details))
	for k, v := range details {
		if isPiiLogKey(k) {
			continue
		}
		result[k] = v
	}
	return result
}

func isPiiLogKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range piiLogKeys {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return writer.IsPiiColumn(key)
}
