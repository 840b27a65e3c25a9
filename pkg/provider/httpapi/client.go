package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"tradeglob/pkg/logger"
	"tradeglob/pkg/market"
)

// ClientConfig HTTP 客户端配置。
type ClientConfig struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	Username  string        `json:"username" mapstructure:"username"`
	Password  string        `json:"password" mapstructure:"password"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit time.Duration `json:"rate_limit" mapstructure:"rate_limit"`
	UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
}

// DefaultClientConfig 返回默认客户端配置。BaseURL 必须由调用方提供。
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   60 * time.Second,
		RateLimit: 200 * time.Millisecond,
		UserAgent: "TradeGlob/1.0",
	}
}

// client 对数据源 HTTP API 的底层封装，负责连接复用、
// 限流间隔和认证令牌管理。
type client struct {
	httpClient  *http.Client
	config      ClientConfig
	log         *logrus.Entry
	requestMu   sync.Mutex
	lastRequest time.Time
	token       string
}

func newClient(config ClientConfig) *client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultClientConfig().UserAgent
	}

	return &client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				MaxConnsPerHost:     10,
			},
			Timeout: config.Timeout,
		},
		config: config,
		log:    logger.WithComponent("httpapi"),
	}
}

// authenticate 使用用户名密码换取访问令牌。
// 未配置凭据或认证失败时降级为匿名访问，只记录警告。
func (c *client) authenticate(ctx context.Context) {
	if c.config.Username == "" || c.config.Password == "" {
		c.log.Info("未配置凭据，使用匿名访问")
		return
	}

	form := url.Values{}
	form.Set("username", c.config.Username)
	form.Set("password", c.config.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		c.log.Warnf("认证请求构建失败，降级为匿名访问: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("认证失败，降级为匿名访问: %v", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.log.Warnf("认证失败（状态码 %d），降级为匿名访问", resp.StatusCode)
		return
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		c.log.Warn("认证响应缺少令牌，降级为匿名访问")
		return
	}

	c.token = token
	c.log.Info("认证成功")
}

// get 执行一次 GET 请求并返回响应体。单次往返，不重试。
func (c *client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	c.enforceRateLimit()

	fullURL := c.config.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, market.WrapError(market.ErrConnection, "create request failed", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, market.WrapError(market.ErrTimeout, "request timed out", err)
		}
		return nil, market.WrapError(market.ErrConnection, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, market.WrapError(market.ErrConnection, "read response failed", err)
	}

	c.log.Debugf("GET %s 完成，状态 %d，耗时 %v，响应 %d 字节",
		path, resp.StatusCode, time.Since(start), len(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, market.NewErrorf(market.ErrAuth, "authentication rejected (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, market.NewErrorf(market.ErrConnection, "server error (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, market.NewError(market.ErrConnection, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}

// enforceRateLimit 保证相邻请求之间的最小间隔。
func (c *client) enforceRateLimit() {
	if c.config.RateLimit <= 0 {
		return
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	if elapsed := time.Since(c.lastRequest); elapsed < c.config.RateLimit {
		time.Sleep(c.config.RateLimit - elapsed)
	}
	c.lastRequest = time.Now()
}

func (c *client) close() {
	c.httpClient.CloseIdleConnections()
}
