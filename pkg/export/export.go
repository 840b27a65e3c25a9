// Package export 将对齐后的行情结果表写出为多种文件格式：
// csv、json、parquet、excel 与 arrow。各格式写出相互独立，
// 一种格式失败不影响其他格式。
package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"tradeglob/pkg/config"
	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
)

// Format 导出格式。
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatExcel   Format = "excel"
	FormatArrow   Format = "arrow"
)

// Extension 返回格式对应的文件扩展名。
func (f Format) Extension() string {
	switch f {
	case FormatExcel:
		return ".xlsx"
	case FormatArrow:
		return ".arrow"
	default:
		return "." + string(f)
	}
}

// Valid 判断格式是否受支持。
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatParquet, FormatExcel, FormatArrow:
		return true
	}
	return false
}

// ParseFormat 解析格式名称，接受扩展名别名（xlsx、feather 等）。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	case "arrow", "feather", "ipc":
		return FormatArrow, nil
	default:
		return "", market.NewErrorf(market.ErrExport, "unsupported export format: %s", s)
	}
}

// Options 导出选项。部分选项只对特定格式有意义，
// 对其他格式设置会在构建导出器时报错。
type Options struct {
	// TimeFormat 时间列的文本格式（csv/excel/json）。
	TimeFormat string
	// FillMissing 非空时用该值替换缺失值（NaN）。
	FillMissing *float64
	// SheetName Excel 工作表名称，仅 excel 格式有效。
	SheetName string
	// Compression parquet 压缩算法（snappy/gzip/uncompressed），仅 parquet 格式有效。
	Compression string
}

const defaultTimeFormat = "2006-01-02 15:04:05"

// Exporter 单一格式的导出器。
type Exporter interface {
	// Export 将结果表写出到指定路径。
	Export(t *market.Table, path string) error
	// Format 返回导出器的格式。
	Format() Format
}

// ForFormat 按格式创建导出器。
func ForFormat(format Format, opts Options) (Exporter, error) {
	if opts.TimeFormat == "" {
		opts.TimeFormat = defaultTimeFormat
	}
	if err := checkOptions(format, opts); err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return &csvExporter{opts: opts}, nil
	case FormatJSON:
		return &jsonExporter{opts: opts}, nil
	case FormatParquet:
		return newParquetExporter(opts)
	case FormatExcel:
		return newExcelExporter(opts), nil
	case FormatArrow:
		return &arrowExporter{opts: opts}, nil
	default:
		return nil, market.NewErrorf(market.ErrExport, "unsupported export format: %s", format)
	}
}

// checkOptions 拒绝对格式无意义的选项。
func checkOptions(format Format, opts Options) error {
	if opts.SheetName != "" && format != FormatExcel {
		return market.NewErrorf(market.ErrExport, "sheet_name is only valid for excel, not %s", format)
	}
	if opts.Compression != "" && format != FormatParquet {
		return market.NewErrorf(market.ErrExport, "compression is only valid for parquet, not %s", format)
	}
	return nil
}

// MultiFormat 将同一张表写出为多种格式。
// 每种格式独立成败，返回值按格式记录各自的错误（成功为 nil）。
type MultiFormat struct {
	formats []Format
	opts    Options
	dir     string
}

// NewMultiFormat 按导出配置创建多格式导出器。
func NewMultiFormat(cfg config.ExportConfig) (*MultiFormat, error) {
	formats := make([]Format, 0, len(cfg.Formats))
	for _, name := range cfg.Formats {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}

	opts := Options{TimeFormat: cfg.TimeFormat}
	if cfg.FillMissing != 0 {
		fill := cfg.FillMissing
		opts.FillMissing = &fill
	}

	return &MultiFormat{formats: formats, opts: opts, dir: cfg.OutputDir}, nil
}

// Export 将表写出为所有配置的格式，文件名为 baseName 加各自扩展名。
// 返回每种格式的写出结果。
func (m *MultiFormat) Export(t *market.Table, baseName string) map[Format]error {
	log := logger.WithComponent("export")
	results := make(map[Format]error, len(m.formats))

	for _, format := range m.formats {
		path := filepath.Join(m.dir, baseName+format.Extension())
		exp, err := ForFormat(format, m.opts)
		if err == nil {
			err = exp.Export(t, path)
		}
		results[format] = err
		if err != nil {
			log.Errorf("导出 %s 失败: %v", format, err)
		} else {
			log.Infof("已导出 %s", path)
		}
	}
	return results
}

// cellValue 按选项处理单元格的缺失值。返回值与是否有效。
func cellValue(v float64, opts Options) (float64, bool) {
	if !math.IsNaN(v) {
		return v, true
	}
	if opts.FillMissing != nil {
		return *opts.FillMissing, true
	}
	return 0, false
}

// checkTable 校验待导出的表。
func checkTable(t *market.Table) error {
	if t == nil || t.Rows() == 0 {
		return market.NewError(market.ErrExport, "nothing to export: table is empty")
	}
	return nil
}

// formatTime 按选项格式化时间。
func formatTime(ts time.Time, opts Options) string {
	return ts.Format(opts.TimeFormat)
}

// DefaultBaseName 生成默认导出文件名，形如 NASDAQ_AAPL_D_20260826。
func DefaultBaseName(exchange, symbol string, interval market.Interval, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s", exchange, symbol, interval.Code(), now.Format("20060102"))
}
