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
	"github.com/Netcracker/qubership-data-exporter/service"
	"github.com/Netcracker/qubership-data-exporter/utils"
	log "github.com/sirupsen/logrus"
)

type AdminController interface {
	PurgeExports(w http.ResponseWriter, r *http.Request)
}

func NewAdminController(jobService service.ExportJobService) AdminController {
	return &adminControllerImpl{jobService: jobService}
}

type adminControllerImpl struct {
	jobService service.ExportJobService
}

func (a adminControllerImpl) PurgeExports(w http.ResponseWriter, r *http.Request) {
	report, err := a.jobService.PurgeAll(r.Context(), r.URL.Query().Get("confirm"))
	if err != nil {
		utils.RespondWithError(w, "Failed to purge exports", err)
		return
	}
	log.Infof("Purge requested by %s", context.Create(r).GetUserId())
	utils.RespondWithJson(w, http.StatusOK, report)
}
