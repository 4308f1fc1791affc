package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"woboard/internal"
)

const exportSheet = "work_orders"

// ExportItemsToXLSX writes one row per extraction: every record field in
// AllFields order, then the board item id and status.
func ExportItemsToXLSX(rows []internal.ItemExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return err
	}

	headers := make([]any, 0, len(internal.AllFields)+4)
	headers = append(headers, "document_id", "part")
	for _, field := range internal.AllFields {
		headers = append(headers, string(field))
	}
	headers = append(headers, "item_id", "status")
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]any, 0, len(headers))
		values = append(values, row.DocumentID, row.Part)
		for _, field := range internal.AllFields {
			values = append(values, displayValue(row.Fields, field))
		}
		values = append(values, derefString(row.ItemID), row.Status)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func displayValue(fields map[string]string, field internal.Field) string {
	if v, ok := fields[string(field)]; ok && v != "" {
		return v
	}
	return internal.NotAvailable
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
