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

package entity

import (
	"time"

	"github.com/Netcracker/qubership-data-exporter/view"
)

type ExportJobEntity struct {
	tableName struct{} `pg:"export_job"`

	Id             string                         `pg:"id, pk, type:varchar"`
	ExportFamily   string                         `pg:"export_family, type:varchar, notnull"`
	DetailLevel    string                         `pg:"detail_level, type:varchar, notnull"`
	Anonymize      bool                           `pg:"anonymize, type:boolean, use_zero"`
	Filters        view.FilterSet                 `pg:"filters, type:jsonb"`
	Plan           view.ExportPlan                `pg:"plan, type:jsonb"`
	PlanHash       string                         `pg:"plan_hash, type:varchar"`
	Status         string                         `pg:"status, type:varchar, notnull"`
	TotalEstimate  int64                          `pg:"total_estimate, type:bigint, use_zero"`
	ProcessedCount int64                          `pg:"processed_count, type:bigint, use_zero"`
	CurrentEntity  string                         `pg:"current_entity, type:varchar"`
	Cursors        map[string]int64               `pg:"cursors, type:jsonb"`
	Checkpoints    map[string]view.FileCheckpoint `pg:"checkpoints, type:jsonb"`
	ErrorDetail    string                         `pg:"error_detail, type:varchar"`
	CreatedBy      string                         `pg:"created_by, type:varchar"`
	CreatedAt      time.Time                      `pg:"created_at, type:timestamp without time zone, notnull"`
	StartedAt      *time.Time                     `pg:"started_at, type:timestamp without time zone"`
	CompletedAt    *time.Time                     `pg:"completed_at, type:timestamp without time zone"`
	UpdatedAt      time.Time                      `pg:"updated_at, type:timestamp without time zone, notnull"`
}

func (e *ExportJobEntity) CursorOf(entityName string) int64 {
	if e.Cursors == nil {
		return 0
	}
	return e.Cursors[entityName]
}

func (e *ExportJobEntity) CheckpointOf(entityName string) view.FileCheckpoint {
	if e.Checkpoints == nil {
		return view.FileCheckpoint{}
	}
	return e.Checkpoints[entityName]
}

func (e *ExportJobEntity) SetCheckpoint(entityName string, cursor int64, checkpoint view.FileCheckpoint) {
	if e.Cursors == nil {
		e.Cursors = make(map[string]int64)
	}
	if e.Checkpoints == nil {
		e.Checkpoints = make(map[string]view.FileCheckpoint)
	}
	e.Cursors[entityName] = cursor
	e.Checkpoints[entityName] = checkpoint
}

func MakeExportJobView(ent *ExportJobEntity) *view.ExportJob {
	return &view.ExportJob{
		Id:             ent.Id,
		ExportFamily:   view.ExportFamily(ent.ExportFamily),
		DetailLevel:    view.DetailLevel(ent.DetailLevel),
		Anonymize:      ent.Anonymize,
		Filters:        ent.Filters,
		Status:         view.ExportJobStatus(ent.Status),
		TotalEstimate:  ent.TotalEstimate,
		ProcessedCount: ent.ProcessedCount,
		CurrentEntity:  ent.CurrentEntity,
		Cursors:        ent.Cursors,
		Entities:       ent.Plan.EntityNames(),
		PlanHash:       ent.PlanHash,
		ErrorDetail:    ent.ErrorDetail,
		CreatedBy:      ent.CreatedBy,
		CreatedAt:      ent.CreatedAt,
		StartedAt:      ent.StartedAt,
		CompletedAt:    ent.CompletedAt,
		UpdatedAt:      ent.UpdatedAt,
	}
}

func MakeExportProgressView(ent *ExportJobEntity) *view.ExportProgress {
	percent := 0.0
	status := view.ExportJobStatus(ent.Status)
	if status == view.ExportJobStatusCompleted {
		percent = 100
	} else if ent.TotalEstimate > 0 {
		percent = float64(ent.ProcessedCount) * 100 / float64(ent.TotalEstimate)
		if percent > 99 {
			// the total is an estimate, only completion means 100%
			percent = 99
		}
	}
	return &view.ExportProgress{
		Status:          status,
		ProcessedCount:  ent.ProcessedCount,
		TotalEstimate:   ent.TotalEstimate,
		CurrentEntity:   ent.CurrentEntity,
		ProgressPercent: percent,
		ErrorDetail:     ent.ErrorDetail,
	}
}
