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

package controller

import (
	"net/http"

	"github.com/Netcracker/qubership-data-exporter/context"
	"github.com/Netcracker/qubership-data-exporter/exception"
	"github.com/Netcracker/qubership-data-exporter/service"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
)

type ExportController interface {
	CreateExport(w http.ResponseWriter, r *http.Request)
	EstimateExport(w http.ResponseWriter, r *http.Request)
	GetExports(w http.ResponseWriter, r *http.Request)
	GetExport(w http.ResponseWriter, r *http.Request)
	GetExportProgress(w http.ResponseWriter, r *http.Request)
	RunExportBatch(w http.ResponseWriter, r *http.Request)
	PauseExport(w http.ResponseWriter, r *http.Request)
	ResumeExport(w http.ResponseWriter, r *http.Request)
	DeleteExport(w http.ResponseWriter, r *http.Request)
	GetExportFiles(w http.ResponseWriter, r *http.Request)
	GetExportLogs(w http.ResponseWriter, r *http.Request)
}

func NewExportController(jobService service.ExportJobService,
	batchService service.BatchExportService,
	fileService service.ExportFileService,
	logService service.ExportLogService) ExportController {
	return &exportControllerImpl{
		jobService:   jobService,
		batchService: batchService,
		fileService:  fileService,
		logService:   logService,
	}
}

type exportControllerImpl struct {
	jobService   service.ExportJobService
	batchService service.BatchExportService
	fileService  service.ExportFileService
	logService   service.ExportLogService
}

func (e exportControllerImpl) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req view.CreateExportReq
	if customErr := readJsonBody(r, &req); customErr != nil {
		utils.RespondWithCustomError(w, customErr)
		return
	}
	job, err := e.jobService.CreateJob(r.Context(), req, context.Create(r).GetUserId())
	if err != nil {
		utils.RespondWithError(w, "Failed to create export job", err)
		return
	}
	utils.RespondWithJson(w, http.StatusCreated, job)
}

func (e exportControllerImpl) EstimateExport(w http.ResponseWriter, r *http.Request) {
	var req view.CreateExportReq
	if customErr := readJsonBody(r, &req); customErr != nil {
		utils.RespondWithCustomError(w, customErr)
		return
	}
	estimate, err := e.jobService.EstimateRecords(r.Context(), req)
	if err != nil {
		utils.RespondWithError(w, "Failed to estimate export", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, estimate)
}

func (e exportControllerImpl) GetExports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !isKnownStatus(view.ExportJobStatus(status)) {
		utils.RespondWithCustomError(w, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.InvalidParameterValue,
			Message: exception.InvalidParameterValueMsg,
			Params:  map[string]interface{}{"param": "status", "value": status},
		})
		return
	}
	limit, customErr := getLimitQueryParam(r)
	if customErr != nil {
		utils.RespondWithCustomError(w, customErr)
		return
	}
	jobs, err := e.jobService.GetJobs(r.Context(), status, limit)
	if err != nil {
		utils.RespondWithError(w, "Failed to get export jobs", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, jobs)
}

func (e exportControllerImpl) GetExport(w http.ResponseWriter, r *http.Request) {
	job, err := e.jobService.GetJob(r.Context(), getStringParam(r, "jobId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to get export job", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, job)
}

func (e exportControllerImpl) GetExportProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := e.jobService.GetProgress(r.Context(), getStringParam(r, "jobId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to get export progress", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, progress)
}

func (e exportControllerImpl) RunExportBatch(w http.ResponseWriter, r *http.Request) {
	result, err := e.batchService.RunBatch(r.Context(), getStringParam(r, "jobId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to run export batch", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, result)
}

func (e exportControllerImpl) PauseExport(w http.ResponseWriter, r *http.Request) {
	job, err := e.jobService.PauseJob(r.Context(), getStringParam(r, "jobId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to pause export job", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, job)
}

func (e exportControllerImpl) ResumeExport(w http.ResponseWriter, r *http.Request) {
	job, err := e.jobService.ResumeJob(r.Context(), getStringParam(r, "jobId"))
	if err != nil {
		utils.RespondWithError(w, "Failed to resume export job", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, job)
}

func (e exportControllerImpl) DeleteExport(w http.ResponseWriter, r *http.Request) {
	if err := e.jobService.DeleteJob(r.Context(), getStringParam(r, "jobId")); err != nil {
		utils.RespondWithError(w, "Failed to delete export job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e exportControllerImpl) GetExportFiles(w http.ResponseWriter, r *http.Request) {
	jobId := getStringParam(r, "jobId")
	if _, err := e.jobService.GetJob(r.Context(), jobId); err != nil {
		utils.RespondWithError(w, "Failed to get export files", err)
		return
	}
	files, err := e.fileService.GetJobFiles(r.Context(), jobId)
	if err != nil {
		utils.RespondWithError(w, "Failed to get export files", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, files)
}

func (e exportControllerImpl) GetExportLogs(w http.ResponseWriter, r *http.Request) {
	jobId := getStringParam(r, "jobId")
	limit, customErr := getLimitQueryParam(r)
	if customErr != nil {
		utils.RespondWithCustomError(w, customErr)
		return
	}
	page, customErr := getPageQueryParam(r)
	if customErr != nil {
		utils.RespondWithCustomError(w, customErr)
		return
	}
	if _, err := e.jobService.GetJob(r.Context(), jobId); err != nil {
		utils.RespondWithError(w, "Failed to get export logs", err)
		return
	}
	logs, err := e.logService.GetLogs(r.Context(), jobId, limit, page)
	if err != nil {
		utils.RespondWithError(w, "Failed to get export logs", err)
		return
	}
	utils.RespondWithJson(w, http.StatusOK, logs)
}

func isKnownStatus(status view.ExportJobStatus) bool {
	switch status {
	case view.ExportJobStatusPending, view.ExportJobStatusRunning, view.ExportJobStatusPaused,
		view.ExportJobStatusCompleted, view.ExportJobStatusFailed:
		return true
	}
	return false
}
