package market

import (
	"github.com/google/uuid"
)

// BatchFailure 记录批量请求中单个标的的失败。
type BatchFailure struct {
	Symbol string `json:"symbol"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// BatchResult 是一次批量获取的结果。批量请求从不整体失败：
// 部分成功是正常结果，失败标的以清单形式随结果返回。
type BatchResult struct {
	BatchID   string             `json:"batch_id"`
	Requested []string           `json:"requested"`
	Table     *Table             `json:"-"`
	Series    map[string]*Series `json:"-"`
	Failures  []BatchFailure     `json:"failures,omitempty"`
}

// NewBatchResult 创建带唯一批次ID的空批量结果。
func NewBatchResult(symbols []string) *BatchResult {
	requested := make([]string, len(symbols))
	copy(requested, symbols)
	return &BatchResult{
		BatchID:   uuid.New().String(),
		Requested: requested,
		Series:    make(map[string]*Series),
	}
}

// AddSuccess 记录一个成功获取的标的序列。
func (br *BatchResult) AddSuccess(s *Series) {
	if s != nil {
		br.Series[s.Symbol] = s
	}
}

// AddFailure 记录一个失败标的及其原因。
func (br *BatchResult) AddFailure(symbol string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	br.Failures = append(br.Failures, BatchFailure{Symbol: symbol, Err: err, Reason: reason})
}

// Succeeded 按请求顺序返回成功获取的标的列表。
func (br *BatchResult) Succeeded() []string {
	var out []string
	for _, sym := range br.Requested {
		if _, ok := br.Series[sym]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// FailedSymbols 返回失败标的列表。
func (br *BatchResult) FailedSymbols() []string {
	out := make([]string, len(br.Failures))
	for i, f := range br.Failures {
		out[i] = f.Symbol
	}
	return out
}

// AllFailed 判断是否所有标的都失败了。
func (br *BatchResult) AllFailed() bool {
	return len(br.Series) == 0 && len(br.Failures) > 0
}
