// refresh_daemon 按任务配置定时刷新行情缓存的守护进程。
// 任务配置示例（jobs.yaml）：
//
//	jobs:
//	  - name: us-daily
//	    schedule: "0 0 22 * * 1-5"
//	    symbols: [AAPL, MSFT, GOOG]
//	    exchange: NASDAQ
//	    interval: D
//	    n_bars: 300
//	    export: true
//	    enabled: true
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradeglob/pkg/cache"
	"tradeglob/pkg/config"
	"tradeglob/pkg/export"
	"tradeglob/pkg/fetcher"
	"tradeglob/pkg/logger"
	"tradeglob/pkg/provider"
	"tradeglob/pkg/provider/decorators"
	"tradeglob/pkg/provider/httpapi"
	"tradeglob/pkg/provider/mock"
	"tradeglob/pkg/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "", "主配置文件路径（可选）")
		jobsPath   = flag.String("jobs", "jobs.yaml", "刷新任务配置文件路径")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logger)
	log := logger.WithComponent("refresh-daemon")

	ctx := context.Background()

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
	p := decorators.NewCircuitBreakerProvider(
		decorators.NewFrequencyControlProvider(base, decorators.FrequencyControlConfig{
			MinInterval: cfg.Provider.RateLimit,
			Enabled:     true,
		}),
		decorators.DefaultCircuitBreakerConfig())

	c, err := cache.New(cfg.Cache)
	if err != nil {
		log.Errorf("初始化缓存失败: %v", err)
		os.Exit(1)
	}
	f := fetcher.New(p, c, cfg)
	defer f.Close()

	exporter, err := export.NewMultiFormat(cfg.Export)
	if err != nil {
		log.Errorf("初始化导出器失败: %v", err)
		os.Exit(1)
	}

	sched := scheduler.New(scheduler.NewRefreshExecutor(f, exporter))
	if err := sched.LoadConfig(*jobsPath); err != nil {
		log.Errorf("加载任务配置失败: %v", err)
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		log.Errorf("启动调度器失败: %v", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在停止刷新守护进程...")
	_ = sched.Stop()
}
