package export

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tradeglob/pkg/market"
)

// excelExporter Excel（xlsx）格式导出器。
type excelExporter struct {
	opts  Options
	sheet string
}

func newExcelExporter(opts Options) *excelExporter {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "OHLCV"
	}
	return &excelExporter{opts: opts, sheet: sheet}
}

func (e *excelExporter) Format() Format {
	return FormatExcel
}

func (e *excelExporter) Export(t *market.Table, path string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return market.WrapError(market.ErrExport, "create output directory failed", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	// 新建工作簿自带 Sheet1，改名为目标表名。
	if err := f.SetSheetName("Sheet1", e.sheet); err != nil {
		return market.WrapError(market.ErrExport, "rename sheet failed", err)
	}

	header := make([]any, 0, len(t.Columns())+1)
	header = append(header, "time")
	for _, name := range t.ColumnNames() {
		header = append(header, name)
	}
	if err := e.writeRow(f, 1, header); err != nil {
		return err
	}

	keys := t.Columns()
	for row := 0; row < t.Rows(); row++ {
		record := make([]any, 0, len(keys)+1)
		record = append(record, formatTime(t.Index[row], e.opts))
		for _, key := range keys {
			if v, ok := cellValue(t.Value(row, key), e.opts); ok {
				record = append(record, v)
			} else {
				record = append(record, nil)
			}
		}
		if err := e.writeRow(f, row+2, record); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return market.WrapError(market.ErrExport, "save xlsx file failed", err)
	}
	return nil
}

func (e *excelExporter) writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return market.WrapError(market.ErrExport, "compute cell name failed", err)
	}
	if err := f.SetSheetRow(e.sheet, cell, &values); err != nil {
		return market.WrapError(market.ErrExport, "write xlsx row failed", err)
	}
	return nil
}
