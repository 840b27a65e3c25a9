package export

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"tradeglob/pkg/market"
)

// InfluxConfig InfluxDB 写入配置。
type InfluxConfig struct {
	URL         string `json:"url" mapstructure:"url"`
	Token       string `json:"token" mapstructure:"token"`
	Org         string `json:"org" mapstructure:"org"`
	Bucket      string `json:"bucket" mapstructure:"bucket"`
	Measurement string `json:"measurement" mapstructure:"measurement"`
}

// InfluxSink 将K线序列写入 InfluxDB，供可视化面板消费。
// 与文件导出器不同，写入目标是时序数据库而非本地文件。
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	config   InfluxConfig
}

// NewInfluxSink 创建 InfluxDB 写入器。
func NewInfluxSink(config InfluxConfig) *InfluxSink {
	if config.Measurement == "" {
		config.Measurement = "ohlcv"
	}
	client := influxdb2.NewClient(config.URL, config.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(config.Org, config.Bucket),
		config:   config,
	}
}

// WriteSeries 将序列逐根写入，标的与交易所作为标签。
func (s *InfluxSink) WriteSeries(ctx context.Context, series *market.Series) error {
	if series == nil || series.Empty() {
		return market.NewError(market.ErrExport, "nothing to write: series is empty")
	}

	tags := map[string]string{
		"symbol":   series.Symbol,
		"exchange": series.Exchange,
		"interval": series.Interval.Code(),
	}
	for _, bar := range series.Bars {
		point := influxdb2.NewPoint(s.config.Measurement, tags,
			map[string]interface{}{
				"open":   bar.Open,
				"high":   bar.High,
				"low":    bar.Low,
				"close":  bar.Close,
				"volume": bar.Volume,
			}, bar.Timestamp)
		if err := s.writeAPI.WritePoint(ctx, point); err != nil {
			return market.WrapError(market.ErrExport, "influxdb write failed", err)
		}
	}
	return nil
}

// Ping 检查数据库连通性。
func (s *InfluxSink) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := s.client.Ping(ctx); err != nil {
		return market.WrapError(market.ErrConnection, "influxdb ping failed", err)
	}
	return nil
}

// Close 关闭数据库连接。
func (s *InfluxSink) Close() {
	s.client.Close()
}
