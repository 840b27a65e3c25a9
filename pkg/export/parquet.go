package export

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/parquet-go/parquet-go/compress/gzip"
	"github.com/parquet-go/parquet-go/compress/snappy"
	"github.com/parquet-go/parquet-go/compress/uncompressed"

	"tradeglob/pkg/market"
)

// parquetExporter Parquet 格式导出器。列结构在运行时根据表的
// 列集合构建：毫秒时间戳列加每个数据列的可空 double 列。
type parquetExporter struct {
	opts  Options
	codec compress.Codec
}

func newParquetExporter(opts Options) (*parquetExporter, error) {
	var codec compress.Codec
	switch opts.Compression {
	case "", "snappy":
		codec = &snappy.Codec{}
	case "gzip":
		codec = &gzip.Codec{}
	case "uncompressed", "none":
		codec = &uncompressed.Codec{}
	default:
		return nil, market.NewErrorf(market.ErrExport, "unsupported parquet compression: %s", opts.Compression)
	}
	return &parquetExporter{opts: opts, codec: codec}, nil
}

func (e *parquetExporter) Format() Format {
	return FormatParquet
}

func (e *parquetExporter) Export(t *market.Table, path string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return market.WrapError(market.ErrExport, "create output directory failed", err)
	}

	keys := t.Columns()
	group := parquet.Group{
		"time": parquet.Timestamp(parquet.Millisecond),
	}
	for _, key := range keys {
		group[t.ColumnName(key)] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
	schema := parquet.NewSchema("ohlcv", group)

	file, err := os.Create(path)
	if err != nil {
		return market.WrapError(market.ErrExport, "create parquet file failed", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[map[string]any](file, schema,
		parquet.Compression(e.codec))

	rows := make([]map[string]any, 0, t.Rows())
	for row := 0; row < t.Rows(); row++ {
		record := make(map[string]any, len(keys)+1)
		record["time"] = t.Index[row].UnixMilli()
		for _, key := range keys {
			if v, ok := cellValue(t.Value(row, key), e.opts); ok {
				record[t.ColumnName(key)] = v
			} else {
				record[t.ColumnName(key)] = nil
			}
		}
		rows = append(rows, record)
	}

	if _, err := writer.Write(rows); err != nil {
		return market.WrapError(market.ErrExport, "write parquet rows failed", err)
	}
	if err := writer.Close(); err != nil {
		return market.WrapError(market.ErrExport, "close parquet writer failed", err)
	}
	return nil
}
