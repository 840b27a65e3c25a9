package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"tradeglob/pkg/market"
)

// csvExporter CSV 格式导出器。首列为时间，其余列按表的列顺序。
// 缺失值输出为空单元格，除非配置了填充值。
type csvExporter struct {
	opts Options
}

func (e *csvExporter) Format() Format {
	return FormatCSV
}

func (e *csvExporter) Export(t *market.Table, path string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return market.WrapError(market.ErrExport, "create output directory failed", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return market.WrapError(market.ErrExport, "create csv file failed", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)

	header := append([]string{"time"}, t.ColumnNames()...)
	if err := w.Write(header); err != nil {
		return market.WrapError(market.ErrExport, "write csv header failed", err)
	}

	keys := t.Columns()
	record := make([]string, len(keys)+1)
	for row := 0; row < t.Rows(); row++ {
		record[0] = formatTime(t.Index[row], e.opts)
		for i, key := range keys {
			if v, ok := cellValue(t.Value(row, key), e.opts); ok {
				record[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				record[i+1] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return market.WrapError(market.ErrExport, "write csv row failed", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return market.WrapError(market.ErrExport, "flush csv failed", err)
	}
	return nil
}
