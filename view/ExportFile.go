package view

import (
	"io"
	"time"
)

const ArchiveEntityName = "archive"

type ExportFile struct {
	Id            string    `json:"id"`
	JobId         string    `json:"jobId"`
	EntityName    string    `json:"entityName"`
	FileName      string    `json:"fileName"`
	Size          int64     `json:"size"`
	RowCount      int64     `json:"rowCount"`
	Checksum      string    `json:"checksum"`
	DownloadToken string    `json:"downloadToken,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ExpiresIn     int       `json:"expiresInSeconds"`
	DownloadCount int       `json:"downloadCount"`
	ObjectKey     string    `json:"objectKey,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ExportFiles struct {
	Files []ExportFile `json:"files"`
}

// DownloadableFile is served either from Path or, when the local copy is gone, from Content.
type DownloadableFile struct {
	Path     string
	Content  io.ReadCloser
	FileName string
	Size     int64
	Checksum string
}

type ExportLog struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type ExportLogs struct {
	Logs []ExportLog `json:"logs"`
}
