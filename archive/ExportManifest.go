package archive

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const ManifestFileName = "manifest.xlsx"

const manifestSheet = "Sheet1"

type ManifestRow struct {
	Entity   string
	FileName string
	Rows     int64
	Size     int64
	Checksum string
}

var manifestHeader = []interface{}{"Entity", "File", "Rows", "Size (bytes)", "SHA-256"}

// BuildManifest renders the list of exported files as a single sheet workbook.
func BuildManifest(rows []ManifestRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(manifestSheet, "A1", &manifestHeader); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(manifestSheet, 1, 1, style); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{row.Entity, row.FileName, row.Rows, row.Size, row.Checksum}
		if err := f.SetSheetRow(manifestSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write manifest row for %s: %w", row.Entity, err)
		}
	}
	if err := f.SetColWidth(manifestSheet, "A", "B", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(manifestSheet, "E", "E", 70); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
