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

package view

import (
	"fmt"
	"time"
)

type ExportFamily string

const (
	ExportFamilyCustomers ExportFamily = "customers"
	ExportFamilyOrders    ExportFamily = "orders"
	ExportFamilyFull      ExportFamily = "full"
)

func ParseExportFamily(s string) (ExportFamily, error) {
	switch ExportFamily(s) {
	case ExportFamilyCustomers, ExportFamilyOrders, ExportFamilyFull:
		return ExportFamily(s), nil
	}
	return "", fmt.Errorf("unknown export family '%s'", s)
}

type DetailLevel string

const (
	DetailLevelEssential DetailLevel = "essential"
	DetailLevelComplete  DetailLevel = "complete"
	DetailLevelUltra     DetailLevel = "ultra"
)

func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case DetailLevelEssential, DetailLevelComplete, DetailLevelUltra:
		return DetailLevel(s), nil
	}
	return "", fmt.Errorf("unknown detail level '%s'", s)
}

type ExportJobStatus string

const (
	ExportJobStatusPending   ExportJobStatus = "pending"
	ExportJobStatusRunning   ExportJobStatus = "running"
	ExportJobStatusPaused    ExportJobStatus = "paused"
	ExportJobStatusCompleted ExportJobStatus = "completed"
	ExportJobStatusFailed    ExportJobStatus = "failed"
)

func (s ExportJobStatus) IsTerminal() bool {
	return s == ExportJobStatusCompleted || s == ExportJobStatusFailed
}

type ExportJob struct {
	Id             string           `json:"id"`
	ExportFamily   ExportFamily     `json:"exportFamily"`
	DetailLevel    DetailLevel      `json:"detailLevel"`
	Anonymize      bool             `json:"anonymize"`
	Filters        FilterSet        `json:"filters,omitempty"`
	Status         ExportJobStatus  `json:"status"`
	TotalEstimate  int64            `json:"totalEstimate"`
	ProcessedCount int64            `json:"processedCount"`
	CurrentEntity  string           `json:"currentEntity,omitempty"`
	Cursors        map[string]int64 `json:"cursors,omitempty"`
	Entities       []string         `json:"entities"`
	PlanHash       string           `json:"planHash"`
	ErrorDetail    string           `json:"errorDetail,omitempty"`
	CreatedBy      string           `json:"createdBy,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

type ExportJobs struct {
	Jobs []ExportJob `json:"jobs"`
}

type CreateExportReq struct {
	ExportFamily string    `json:"exportFamily" validate:"required,oneof=customers orders full"`
	DetailLevel  string    `json:"detailLevel" validate:"required,oneof=essential complete ultra"`
	Anonymize    *bool     `json:"anonymize,omitempty"`
	Filters      FilterSet `json:"filters,omitempty"`
}

type ExportEstimate struct {
	ExportFamily  ExportFamily `json:"exportFamily"`
	DetailLevel   DetailLevel  `json:"detailLevel"`
	Entities      []string     `json:"entities"`
	TotalEstimate int64        `json:"totalEstimate"`
}

type ExportProgress struct {
	Status          ExportJobStatus `json:"status"`
	ProcessedCount  int64           `json:"processedCount"`
	TotalEstimate   int64           `json:"totalEstimate"`
	CurrentEntity   string          `json:"currentEntity,omitempty"`
	ProgressPercent float64         `json:"progressPercent"`
	ErrorDetail     string          `json:"errorDetail,omitempty"`
}

// BatchResult is the outcome of a single runBatch invocation.
type BatchResult struct {
	Status         ExportJobStatus `json:"status"`
	ProcessedDelta int64           `json:"processedDelta"`
	CurrentEntity  string          `json:"currentEntity,omitempty"`
	ErrorDetail    string          `json:"errorDetail,omitempty"`
	Busy           bool            `json:"busy,omitempty"`
}

type PurgeReport struct {
	DeletedJobs  int `json:"deletedJobs"`
	DeletedFiles int `json:"deletedFiles"`
}
