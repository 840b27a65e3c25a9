package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"tradeglob/pkg/market"
)

// jsonExporter JSON 格式导出器。输出记录数组，每行一个对象，
// 时间列名为 time。缺失值输出为 null，除非配置了填充值。
type jsonExporter struct {
	opts Options
}

func (e *jsonExporter) Format() Format {
	return FormatJSON
}

func (e *jsonExporter) Export(t *market.Table, path string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return market.WrapError(market.ErrExport, "create output directory failed", err)
	}

	keys := t.Columns()
	records := make([]map[string]any, 0, t.Rows())
	for row := 0; row < t.Rows(); row++ {
		record := make(map[string]any, len(keys)+1)
		record["time"] = formatTime(t.Index[row], e.opts)
		for _, key := range keys {
			if v, ok := cellValue(t.Value(row, key), e.opts); ok {
				record[t.ColumnName(key)] = v
			} else {
				record[t.ColumnName(key)] = nil
			}
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return market.WrapError(market.ErrExport, "serialize json failed", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return market.WrapError(market.ErrExport, "write json file failed", err)
	}
	return nil
}
