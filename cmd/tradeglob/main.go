// tradeglob 命令行工具：获取历史K线并导出为文件。
//
// 示例：
//
//	tradeglob -symbols AAPL,MSFT -exchange NASDAQ -interval D -nbars 300 -formats csv,parquet
//	tradeglob -search apple
//	tradeglob -invalidate AAPL
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tradeglob/pkg/cache"
	"tradeglob/pkg/config"
	"tradeglob/pkg/export"
	"tradeglob/pkg/fetcher"
	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
	"tradeglob/pkg/provider"
	"tradeglob/pkg/provider/decorators"
	"tradeglob/pkg/provider/httpapi"
	"tradeglob/pkg/provider/mock"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径（可选）")
		symbols    = flag.String("symbols", "", "标的列表，逗号分隔")
		exchange   = flag.String("exchange", "", "交易所代码")
		interval   = flag.String("interval", "D", "K线粒度（1, 5, 1H, D, W, M 等）")
		nBars      = flag.Int("nbars", 0, "K线数量（给定日期范围时可省略）")
		start      = flag.String("start", "", "起始日期 (YYYY-MM-DD)")
		end        = flag.String("end", "", "结束日期 (YYYY-MM-DD)")
		formats    = flag.String("formats", "", "导出格式列表，逗号分隔（覆盖配置）")
		outDir     = flag.String("out", "", "导出目录（覆盖配置）")
		allFields  = flag.Bool("all-fields", false, "导出全部 OHLCV 字段而非仅收盘价")
		noCache    = flag.Bool("no-cache", false, "跳过缓存读写")
		refresh    = flag.Bool("refresh", false, "强制刷新（绕过缓存查询并覆盖回写）")
		strict     = flag.Bool("strict", false, "严格质量检查：违规直接失败")
		search     = flag.String("search", "", "按关键字搜索标的后退出")
		invalidate = flag.String("invalidate", "", "失效指定标的的缓存后退出")
		logLevel   = flag.String("log-level", "", "日志级别（覆盖配置）")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *strict {
		cfg.SetStrict(true)
	}
	if *logLevel != "" {
		cfg.SetLogLevel(*logLevel)
	}
	if *formats != "" {
		cfg.Export.Formats = strings.Split(*formats, ",")
	}
	if *outDir != "" {
		cfg.Export.OutputDir = *outDir
	}

	logger.Init(cfg.Logger)

	ctx := context.Background()
	f, err := buildFetcher(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	switch {
	case *search != "":
		runSearch(ctx, f, *search, *exchange)
	case *invalidate != "":
		runInvalidate(ctx, f, *invalidate, *exchange)
	default:
		runFetch(ctx, f, cfg, fetchArgs{
			symbols:   *symbols,
			exchange:  *exchange,
			interval:  *interval,
			nBars:     *nBars,
			start:     *start,
			end:       *end,
			allFields: *allFields,
			noCache:   *noCache,
			refresh:   *refresh,
		})
	}
}

// buildFetcher 按配置装配提供商、装饰器链、缓存与编排器。
func buildFetcher(ctx context.Context, cfg *config.Config) (*fetcher.Fetcher, error) {
	var base provider.HistoricalProvider
	switch cfg.Provider.Name {
	case "mock":
		base = mock.NewProvider()
	default:
		base = httpapi.NewProvider(ctx, httpapi.ClientConfig{
			BaseURL:   cfg.Provider.BaseURL,
			Username:  cfg.Provider.Username,
			Password:  cfg.Provider.Password,
			Timeout:   cfg.Provider.Timeout,
			RateLimit: cfg.Provider.RateLimit,
			UserAgent: cfg.Provider.UserAgent,
		})
	}

	p := decorators.NewChain().
		Add(func(p provider.HistoricalProvider) provider.HistoricalProvider {
			return decorators.NewFrequencyControlProvider(p, decorators.FrequencyControlConfig{
				MinInterval: cfg.Provider.RateLimit,
				Enabled:     true,
			})
		}).
		Add(func(p provider.HistoricalProvider) provider.HistoricalProvider {
			return decorators.NewCircuitBreakerProvider(p, decorators.DefaultCircuitBreakerConfig())
		}).
		Apply(base)

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return fetcher.New(p, c, cfg), nil
}

type fetchArgs struct {
	symbols   string
	exchange  string
	interval  string
	nBars     int
	start     string
	end       string
	allFields bool
	noCache   bool
	refresh   bool
}

func runFetch(ctx context.Context, f *fetcher.Fetcher, cfg *config.Config, args fetchArgs) {
	if args.symbols == "" || args.exchange == "" {
		fmt.Fprintln(os.Stderr, "必须指定 -symbols 与 -exchange")
		flag.Usage()
		os.Exit(2)
	}

	interval, err := market.ParseInterval(args.interval)
	if err != nil {
		fatal(err)
	}
	startTime, endTime, err := parseRange(args.start, args.end)
	if err != nil {
		fatal(err)
	}

	symbolList := strings.Split(args.symbols, ",")

	var fields []market.Field
	if args.allFields {
		fields = market.AllFields()
	}

	var table *market.Table
	if args.refresh && len(symbolList) == 1 {
		req := market.NewRequest(symbolList[0], args.exchange, interval, args.nBars)
		req.Start, req.End = startTime, endTime
		series, err := f.Refresh(ctx, req)
		if err != nil {
			fatal(err)
		}
		table = market.BuildTable([]*market.Series{series}, fields)
	} else {
		result, err := f.GetMultiple(ctx, symbolList, args.exchange, interval, fetcher.BatchOptions{
			NBars:   args.nBars,
			Start:   startTime,
			End:     endTime,
			Fields:  fields,
			NoCache: args.noCache,
		})
		if err != nil {
			fatal(err)
		}
		for _, failure := range result.Failures {
			fmt.Fprintf(os.Stderr, "警告: %s 获取失败: %v\n", failure.Symbol, failure.Err)
		}
		table = result.Table
	}

	exporter, err := export.NewMultiFormat(cfg.Export)
	if err != nil {
		fatal(err)
	}

	baseName := export.DefaultBaseName(args.exchange, strings.Join(symbolList, "-"), interval, time.Now())
	failed := false
	for format, err := range exporter.Export(table, baseName) {
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "导出 %s 失败: %v\n", format, err)
		}
	}

	fmt.Printf("完成: %d 行 × %d 列\n", table.Rows(), len(table.Columns()))
	if failed {
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, f *fetcher.Fetcher, query, exchange string) {
	matches, err := f.SearchSymbol(ctx, query, exchange)
	if err != nil {
		fatal(err)
	}
	for _, m := range matches {
		fmt.Printf("%-12s %-10s %-8s %s\n", m.Symbol, m.Exchange, m.Type, m.Description)
	}
}

func runInvalidate(ctx context.Context, f *fetcher.Fetcher, symbol, exchange string) {
	count, err := f.InvalidateCache(ctx, symbol, exchange)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("已失效 %d 个缓存条目\n", count)
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	var startTime, endTime time.Time
	var err error
	if start != "" {
		if startTime, err = time.Parse(dateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("无效的起始日期 %q: %w", start, err)
		}
	}
	if end != "" {
		if endTime, err = time.Parse(dateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("无效的结束日期 %q: %w", end, err)
		}
	}
	return startTime, endTime, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
