package export

import (
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"tradeglob/pkg/market"
)

// arrowExporter Arrow IPC（Feather V2）格式导出器，
// 面向需要零拷贝读入数据分析工具链的场景。
type arrowExporter struct {
	opts Options
}

func (e *arrowExporter) Format() Format {
	return FormatArrow
}

func (e *arrowExporter) Export(t *market.Table, path string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return market.WrapError(market.ErrExport, "create output directory failed", err)
	}

	keys := t.Columns()
	fields := make([]arrow.Field, 0, len(keys)+1)
	fields = append(fields, arrow.Field{Name: "time", Type: arrow.FixedWidthTypes.Timestamp_ms})
	for _, key := range keys {
		fields = append(fields, arrow.Field{
			Name:     t.ColumnName(key),
			Type:     arrow.PrimitiveTypes.Float64,
			Nullable: true,
		})
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	timeBuilder := builder.Field(0).(*array.TimestampBuilder)
	for row := 0; row < t.Rows(); row++ {
		timeBuilder.Append(arrow.Timestamp(t.Index[row].UnixMilli()))
	}
	for i, key := range keys {
		colBuilder := builder.Field(i + 1).(*array.Float64Builder)
		for row := 0; row < t.Rows(); row++ {
			if v, ok := cellValue(t.Value(row, key), e.opts); ok {
				colBuilder.Append(v)
			} else {
				colBuilder.AppendNull()
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	file, err := os.Create(path)
	if err != nil {
		return market.WrapError(market.ErrExport, "create arrow file failed", err)
	}
	defer file.Close()

	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(schema))
	if err != nil {
		return market.WrapError(market.ErrExport, "create arrow writer failed", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return market.WrapError(market.ErrExport, "write arrow record failed", err)
	}
	if err := writer.Close(); err != nil {
		return market.WrapError(market.ErrExport, "close arrow writer failed", err)
	}
	return nil
}
