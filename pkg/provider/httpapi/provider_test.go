package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeglob/pkg/market"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewProvider(context.Background(), ClientConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func historyBody(n int) string {
	ts, os, hs, ls, cs, vs := "", "", "", "", "", ""
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i > 0 {
			ts, os, hs, ls, cs, vs = ts+",", os+",", hs+",", ls+",", cs+",", vs+","
		}
		c := 100.0 + float64(i)
		ts += fmt.Sprintf("%d", base.AddDate(0, 0, i).Unix())
		os += fmt.Sprintf("%g", c-0.5)
		hs += fmt.Sprintf("%g", c+1)
		ls += fmt.Sprintf("%g", c-1)
		cs += fmt.Sprintf("%g", c)
		vs += "1000"
	}
	return fmt.Sprintf(`{"s":"ok","t":[%s],"o":[%s],"h":[%s],"l":[%s],"c":[%s],"v":[%s]}`,
		ts, os, hs, ls, cs, vs)
}

func TestFetchBars(t *testing.T) {
	var gotQuery map[string]string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/history", r.URL.Path)
		gotQuery = map[string]string{
			"symbol":     r.URL.Query().Get("symbol"),
			"resolution": r.URL.Query().Get("resolution"),
		}
		fmt.Fprint(w, historyBody(3))
	}))

	bars, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 10)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "NASDAQ:AAPL", gotQuery["symbol"])
	assert.Equal(t, "D", gotQuery["resolution"])

	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.InDelta(t, 100.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 101.0, bars[0].High, 1e-9)
	assert.Equal(t, int64(1000), bars[0].Volume)
}

func TestFetchBarsTrimsToRequestedCount(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, historyBody(10))
	}))

	// 数据源多返回时只保留最近的 nBars 根
	bars, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 4)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	assert.InDelta(t, 109.0, bars[3].Close, 1e-9)
	assert.InDelta(t, 106.0, bars[0].Close, 1e-9)
}

func TestFetchBarsNoData(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"no_data"}`)
	}))

	_, err := p.FetchBars(context.Background(), "DELISTED", "NASDAQ", market.IntervalDaily, 10)
	require.Error(t, err)
	assert.True(t, market.IsCode(err, market.ErrNoData))
	assert.False(t, market.IsRetryable(err), "空数据是终态，不重试")
}

func TestFetchBarsSourceError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"error","errmsg":"invalid symbol"}`)
	}))

	_, err := p.FetchBars(context.Background(), "???", "NASDAQ", market.IntervalDaily, 10)
	require.Error(t, err)
	assert.True(t, market.IsCode(err, market.ErrConnection))
	assert.Contains(t, err.Error(), "invalid symbol")
}

func TestFetchBarsColumnMismatch(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"ok","t":[1,2],"o":[1],"h":[1,2],"l":[1,2],"c":[1,2]}`)
	}))

	_, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 10)
	require.Error(t, err)
	assert.True(t, market.IsCode(err, market.ErrConnection))
}

func TestFetchBarsStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		code      market.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, market.ErrAuth, false},
		{http.StatusForbidden, market.ErrAuth, false},
		{http.StatusTooManyRequests, market.ErrConnection, true},
		{http.StatusInternalServerError, market.ErrConnection, true},
		{http.StatusBadGateway, market.ErrConnection, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 10)
			require.Error(t, err)
			assert.True(t, market.IsCode(err, tt.code))
			assert.Equal(t, tt.retryable, market.IsRetryable(err))
		})
	}
}

func TestFetchBarsInvalidCount(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("请求数量非法时不应发起请求")
	}))

	_, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 0)
	require.Error(t, err)
	assert.True(t, market.IsCode(err, market.ErrValidation))
}

func TestAuthTokenAttached(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user", r.PostForm.Get("username"))
			fmt.Fprint(w, `{"access_token":"tok-123"}`)
		case "/history":
			authHeader = r.Header.Get("Authorization")
			fmt.Fprint(w, historyBody(1))
		}
	}))
	defer server.Close()

	p := NewProvider(context.Background(), ClientConfig{
		BaseURL:  server.URL,
		Username: "user",
		Password: "pass",
		Timeout:  5 * time.Second,
	})
	defer p.Close()

	_, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", authHeader)
}

func TestAuthFailureDegradesToAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.WriteHeader(http.StatusUnauthorized)
		case "/history":
			assert.Empty(t, r.Header.Get("Authorization"))
			fmt.Fprint(w, historyBody(1))
		}
	}))
	defer server.Close()

	p := NewProvider(context.Background(), ClientConfig{
		BaseURL:  server.URL,
		Username: "user",
		Password: "wrong",
		Timeout:  5 * time.Second,
	})
	defer p.Close()

	// 认证失败只降级，不阻止后续请求
	bars, err := p.FetchBars(context.Background(), "AAPL", "NASDAQ", market.IntervalDaily, 1)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestSearchSymbol(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/symbol_search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("text"))
		assert.Equal(t, "NASDAQ", r.URL.Query().Get("exchange"))
		fmt.Fprint(w, `[{"symbol":"AAPL","exchange":"NASDAQ","description":"Apple Inc.","type":"stock","currency_code":"USD"}]`)
	}))

	matches, err := p.SearchSymbol(context.Background(), "apple", "NASDAQ")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "AAPL", matches[0].Symbol)
	assert.Equal(t, "Apple Inc.", matches[0].Description)
	assert.Equal(t, "USD", matches[0].Currency)
}

func TestSearchSymbolNoMatches(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	_, err := p.SearchSymbol(context.Background(), "zzzz", "")
	require.Error(t, err)
	assert.True(t, market.IsCode(err, market.ErrNoData))
}

func TestFetchBarsWithoutVolumeColumn(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"s":"ok","t":[1767312000],"o":[1.1],"h":[1.2],"l":[1.0],"c":[1.15]}`)
	}))

	// 外汇类标的没有成交量列
	bars, err := p.FetchBars(context.Background(), "EURUSD", "FX", market.IntervalDaily, 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(0), bars[0].Volume)
	assert.InDelta(t, 1.15, bars[0].Close, 1e-9)
}
