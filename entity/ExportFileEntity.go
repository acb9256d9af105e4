package entity

import (
	"time"

	"github.com/Netcracker/qubership-data-exporter/view"
)

type ExportFileEntity struct {
	tableName struct{} `pg:"export_file"`

	Id                string    `pg:"id, pk, type:varchar"`
	JobId             string    `pg:"job_id, type:varchar, notnull"`
	EntityName        string    `pg:"entity_name, type:varchar, notnull"`
	Path              string    `pg:"path, type:varchar, notnull"`
	FileName          string    `pg:"file_name, type:varchar, notnull"`
	Size              int64     `pg:"size, type:bigint, use_zero"`
	RowCount          int64     `pg:"row_count, type:bigint, use_zero"`
	Checksum          string    `pg:"checksum, type:varchar"`
	DownloadToken     string    `pg:"download_token, type:varchar"`
	DownloadExpiresAt time.Time `pg:"download_expires_at, type:timestamp without time zone"`
	DownloadCount     int       `pg:"download_count, type:integer, use_zero"`
	ObjectKey         string    `pg:"object_key, type:varchar"`
	CreatedAt         time.Time `pg:"created_at, type:timestamp without time zone, notnull"`
}

func MakeExportFileView(ent *ExportFileEntity, expiresIn int) *view.ExportFile {
	return &view.ExportFile{
		Id:            ent.Id,
		JobId:         ent.JobId,
		EntityName:    ent.EntityName,
		FileName:      ent.FileName,
		Size:          ent.Size,
		RowCount:      ent.RowCount,
		Checksum:      ent.Checksum,
		DownloadToken: ent.DownloadToken,
		ExpiresAt:     ent.DownloadExpiresAt,
		ExpiresIn:     expiresIn,
		DownloadCount: ent.DownloadCount,
		ObjectKey:     ent.ObjectKey,
		CreatedAt:     ent.CreatedAt,
	}
}

type ExportLogEntity struct {
	tableName struct{} `pg:"export_log"`

	Id        int64                  `pg:"id, pk, type:bigserial"`
	JobId     string                 `pg:"job_id, type:varchar, notnull"`
	Level     string                 `pg:"level, type:varchar, notnull"`
	Message   string                 `pg:"message, type:varchar, notnull"`
	Context   map[string]interface{} `pg:"context, type:jsonb"`
	CreatedAt time.Time              `pg:"created_at, type:timestamp without time zone, notnull"`
}

func MakeExportLogView(ent ExportLogEntity) view.ExportLog {
	return view.ExportLog{
		Level:     ent.Level,
		Message:   ent.Message,
		Context:   ent.Context,
		CreatedAt: ent.CreatedAt,
	}
}
