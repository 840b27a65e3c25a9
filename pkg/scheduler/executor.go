package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tradeglob/pkg/export"
	"tradeglob/pkg/fetcher"
	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
)

// RefreshExecutor 刷新执行器：强制拉取任务标的并回写缓存，
// 可选地将结果表导出为配置的文件格式。
type RefreshExecutor struct {
	fetcher  *fetcher.Fetcher
	exporter *export.MultiFormat
	log      *logrus.Entry
}

// NewRefreshExecutor 创建刷新执行器。exporter 传 nil 则不导出。
func NewRefreshExecutor(f *fetcher.Fetcher, exporter *export.MultiFormat) *RefreshExecutor {
	return &RefreshExecutor{
		fetcher:  f,
		exporter: exporter,
		log:      logger.WithComponent("refresh-executor"),
	}
}

// Execute 实现 Executor 接口。逐标的强制刷新，
// 部分失败不中断，全部失败才算任务失败。
func (e *RefreshExecutor) Execute(ctx context.Context, job *Job) error {
	interval, err := market.ParseInterval(job.Config.Interval)
	if err != nil {
		return err
	}

	var refreshed []*market.Series
	var failed []string
	for _, symbol := range job.Config.Symbols {
		req := market.NewRequest(symbol, job.Config.Exchange, interval, job.Config.NBars)
		series, err := e.fetcher.Refresh(ctx, req)
		if err != nil {
			e.log.Warnf("刷新 %s 失败: %v", symbol, err)
			failed = append(failed, symbol)
			continue
		}
		refreshed = append(refreshed, series)
	}

	if len(refreshed) == 0 {
		return fmt.Errorf("所有标的刷新失败: %s", strings.Join(failed, ", "))
	}

	if job.Config.Export && e.exporter != nil {
		table := market.BuildTable(refreshed, market.AllFields())
		baseName := fmt.Sprintf("%s_%s", job.Config.Name, time.Now().Format("20060102_150405"))
		for format, err := range e.exporter.Export(table, baseName) {
			if err != nil {
				e.log.Warnf("任务 %s 导出 %s 失败: %v", job.Config.Name, format, err)
			}
		}
	}

	e.log.Infof("任务 %s 刷新完成: %d 成功, %d 失败",
		job.Config.Name, len(refreshed), len(failed))
	return nil
}

var _ Executor = (*RefreshExecutor)(nil)
