// api_server 提供历史行情的 HTTP 查询服务：
// 单标的/批量获取、标的搜索、缓存统计与失效。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tradeglob/pkg/cache"
	"tradeglob/pkg/config"
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
		addr       = flag.String("addr", ":8080", "监听地址")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logger)
	log := logger.WithComponent("api-server")

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

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{fetcher: f, provider: p}
	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ohlcv", s.getOHLCV)
		v1.POST("/ohlcv/batch", s.getBatch)
		v1.POST("/ohlcv/refresh", s.refresh)
		v1.GET("/search", s.search)
		v1.GET("/cache/stats", s.cacheStats)
		v1.DELETE("/cache", s.invalidateCache)
	}

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		log.Infof("API 服务已启动，监听 %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("服务异常退出: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("服务关闭失败: %v", err)
	}
}

type server struct {
	fetcher  *fetcher.Fetcher
	provider provider.HistoricalProvider
}

func (s *server) health(c *gin.Context) {
	status := http.StatusOK
	healthy := s.provider.IsHealthy()
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "provider": s.provider.Name()})
}

// getOHLCV 处理单标的查询。
// GET /api/v1/ohlcv?symbol=AAPL&exchange=NASDAQ&interval=D&n_bars=100
func (s *server) getOHLCV(c *gin.Context) {
	req, err := requestFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := s.fetcher.GetOHLCV(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

type batchRequest struct {
	Symbols  []string `json:"symbols" binding:"required"`
	Exchange string   `json:"exchange" binding:"required"`
	Interval string   `json:"interval" binding:"required"`
	NBars    int      `json:"n_bars"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Fields   []string `json:"fields"`
	NoCache  bool     `json:"no_cache"`
}

// getBatch 处理批量查询，返回对齐后的结果表与失败明细。
func (s *server) getBatch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interval, err := market.ParseInterval(body.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, end, err := parseRange(body.Start, body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var fields []market.Field
	for _, name := range body.Fields {
		f := market.Field(name)
		if !market.ValidField(f) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown field: " + name})
			return
		}
		fields = append(fields, f)
	}

	result, err := s.fetcher.GetMultiple(c.Request.Context(), body.Symbols, body.Exchange, interval,
		fetcher.BatchOptions{
			NBars:   body.NBars,
			Start:   start,
			End:     end,
			Fields:  fields,
			NoCache: body.NoCache,
		})
	if err != nil && (result == nil || result.AllFailed()) {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// refresh 强制刷新单标的缓存。
func (s *server) refresh(c *gin.Context) {
	req, err := requestFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := s.fetcher.Refresh(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *server) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	matches, err := s.fetcher.SearchSymbol(c.Request.Context(), query, c.Query("exchange"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *server) cacheStats(c *gin.Context) {
	stats, ok := s.fetcher.CacheStats()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "stats": stats})
}

func (s *server) invalidateCache(c *gin.Context) {
	count, err := s.fetcher.InvalidateCache(c.Request.Context(), c.Query("symbol"), c.Query("exchange"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invalidated": count})
}

// requestFromQuery 从查询参数构建获取请求。
func requestFromQuery(c *gin.Context) (market.Request, error) {
	interval, err := market.ParseInterval(c.DefaultQuery("interval", "D"))
	if err != nil {
		return market.Request{}, err
	}

	nBars := 0
	if raw := c.Query("n_bars"); raw != "" {
		if nBars, err = strconv.Atoi(raw); err != nil {
			return market.Request{}, fmt.Errorf("invalid n_bars: %q", raw)
		}
	}
	start, end, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return market.Request{}, err
	}

	req := market.NewRequest(c.Query("symbol"), c.Query("exchange"), interval, nBars)
	req.Start, req.End = start, end
	if c.Query("no_cache") == "true" {
		req.UseCache = false
	}
	return req, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	var startTime, endTime time.Time
	var err error
	if start != "" {
		if startTime, err = time.Parse(dateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %q", start)
		}
	}
	if end != "" {
		if endTime, err = time.Parse(dateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %q", end)
		}
	}
	return startTime, endTime, nil
}

// statusFor 将业务错误码映射为 HTTP 状态码。
func statusFor(err error) int {
	switch market.CodeOf(err) {
	case market.ErrValidation:
		return http.StatusBadRequest
	case market.ErrNoData:
		return http.StatusNotFound
	case market.ErrAuth:
		return http.StatusUnauthorized
	case market.ErrTimeout:
		return http.StatusGatewayTimeout
	case market.ErrCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
