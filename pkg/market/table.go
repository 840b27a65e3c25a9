package market

import (
	"math"
	"sort"
	"time"
)

// Field 表示K线的单个字段名。
type Field string

// K线的五个标准字段。
const (
	FieldOpen   Field = "open"
	FieldHigh   Field = "high"
	FieldLow    Field = "low"
	FieldClose  Field = "close"
	FieldVolume Field = "volume"
)

// AllFields 按固定顺序返回全部五个字段。
func AllFields() []Field {
	return []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}
}

// ValidField 判断字段名是否合法。
func ValidField(f Field) bool {
	switch f {
	case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume:
		return true
	}
	return false
}

// ColumnKey 以 (标的, 字段) 二元组定位合并表格中的一列。
type ColumnKey struct {
	Symbol string `json:"symbol"`
	Field  Field  `json:"field"`
}

// Table 是多标的合并后的时间索引表格。
// 行索引为所有标的时间戳的有序并集；列按请求时的标的顺序排列，
// 与各标的完成获取的先后无关。缺失值以 NaN 填充。
type Table struct {
	Index []time.Time             `json:"index"`
	Keys  []ColumnKey             `json:"keys"`
	Data  map[ColumnKey][]float64 `json:"data"`

	// closeOnly 标记表格为"每个标的一列收盘价"的简化形态，
	// 此时列名省略字段后缀。
	closeOnly bool
}

// BuildTable 将多个序列按请求顺序合并为一张表格。
// fields 指定每个标的展开的字段；仅包含 close 时生成简化形态。
func BuildTable(series []*Series, fields []Field) *Table {
	if len(fields) == 0 {
		fields = []Field{FieldClose}
	}

	t := &Table{
		Data:      make(map[ColumnKey][]float64),
		closeOnly: len(fields) == 1 && fields[0] == FieldClose,
	}

	// 行索引：时间戳有序并集。
	seen := make(map[int64]bool)
	for _, s := range series {
		if s == nil {
			continue
		}
		for _, b := range s.Bars {
			ts := b.Timestamp.UnixNano()
			if !seen[ts] {
				seen[ts] = true
				t.Index = append(t.Index, b.Timestamp)
			}
		}
	}
	sort.Slice(t.Index, func(i, j int) bool { return t.Index[i].Before(t.Index[j]) })

	rowOf := make(map[int64]int, len(t.Index))
	for i, ts := range t.Index {
		rowOf[ts.UnixNano()] = i
	}

	// 列：按输入顺序逐标的、逐字段展开。
	for _, s := range series {
		if s == nil {
			continue
		}
		for _, f := range fields {
			key := ColumnKey{Symbol: s.Symbol, Field: f}
			col := make([]float64, len(t.Index))
			for i := range col {
				col[i] = math.NaN()
			}
			for _, b := range s.Bars {
				row, ok := rowOf[b.Timestamp.UnixNano()]
				if !ok {
					continue
				}
				switch f {
				case FieldOpen:
					col[row] = b.Open
				case FieldHigh:
					col[row] = b.High
				case FieldLow:
					col[row] = b.Low
				case FieldClose:
					col[row] = b.Close
				case FieldVolume:
					col[row] = float64(b.Volume)
				}
			}
			t.Keys = append(t.Keys, key)
			t.Data[key] = col
		}
	}

	return t
}

// Rows 返回表格的行数。
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Columns 返回按输入顺序排列的列键。
func (t *Table) Columns() []ColumnKey {
	out := make([]ColumnKey, len(t.Keys))
	copy(out, t.Keys)
	return out
}

// CloseOnly 返回表格是否为收盘价简化形态。
func (t *Table) CloseOnly() bool {
	return t.closeOnly
}

// ColumnName 返回某列的显示名：简化形态下为标的名，
// 否则为 "标的_字段" 形式。
func (t *Table) ColumnName(key ColumnKey) string {
	if t.closeOnly {
		return key.Symbol
	}
	return key.Symbol + "_" + string(key.Field)
}

// ColumnNames 返回所有列的显示名。
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Keys))
	for i, k := range t.Keys {
		out[i] = t.ColumnName(k)
	}
	return out
}

// Column 按 (标的, 字段) 取出一列数据。不存在时返回 nil。
func (t *Table) Column(symbol string, field Field) []float64 {
	return t.Data[ColumnKey{Symbol: symbol, Field: field}]
}

// Value 返回指定行列的值。越界或列不存在时返回 NaN。
func (t *Table) Value(row int, key ColumnKey) float64 {
	col, ok := t.Data[key]
	if !ok || row < 0 || row >= len(col) {
		return math.NaN()
	}
	return col[row]
}

// FilterRange 返回行索引落在 [start, end] 闭区间内的子表格。
// 零值时间表示对应边界不限制。
func (t *Table) FilterRange(start, end time.Time) *Table {
	out := &Table{
		Keys:      t.Columns(),
		Data:      make(map[ColumnKey][]float64, len(t.Keys)),
		closeOnly: t.closeOnly,
	}
	var rows []int
	for i, ts := range t.Index {
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		rows = append(rows, i)
		out.Index = append(out.Index, ts)
	}
	for key, col := range t.Data {
		sub := make([]float64, len(rows))
		for j, i := range rows {
			sub[j] = col[i]
		}
		out.Data[key] = sub
	}
	return out
}
