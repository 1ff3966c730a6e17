package transaction

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheetName is used when the caller does not name the sheet.
	DefaultSheetName = "Consolidated Sales"

	// ExportFilename is the suggested download filename for exports.
	ExportFilename = "Receipt_Data_Export.xlsx"
)

// Exporter serializes records into a downloadable tabular file
type Exporter interface {
	// Export produces the file contents for the given records
	Export(records []*Record, sheetName string) ([]byte, error)
}

// ExcelExporter implements the Exporter interface producing XLSX
// workbooks. It is a plain serializer with no business logic.
type ExcelExporter struct{}

// NewExcelExporter creates a new ExcelExporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

var exportHeader = []interface{}{
	"FS No", "Date", "Buyer TIN", "Merchant TIN", "Machine ID",
	"Product", "Qty", "Price", "Total",
}

// Export writes one header row plus one row per record
func (e *ExcelExporter) Export(records []*Record, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("computing cell for row %d: %w", i+2, err)
		}
		row := []interface{}{
			r.FSNo, r.Date, r.BuyerTIN, r.MerchantTIN, r.MachineID,
			r.Item, r.Qty, r.UnitPrice, r.LineTotal,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
