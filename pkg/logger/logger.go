// Package logger 提供基于 logrus 的全局日志器。
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Entry 是 logrus.Entry 的别名，便于调用方声明字段日志器。
type Entry = logrus.Entry

// Config 日志配置。
type Config struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // text, json
	Output string `json:"output" mapstructure:"output"` // console 或日志文件路径
}

var std *logrus.Logger

// Init 按配置初始化全局日志器。重复调用会覆盖之前的设置。
func Init(config Config) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FullTimestamp:   true,
		})
	}

	l.SetOutput(resolveOutput(config.Output))
	std = l
}

func resolveOutput(output string) io.Writer {
	switch output {
	case "", "console", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stdout
	}
	return f
}

// InitFromEnv 从环境变量初始化全局日志器。
// LOG_LEVEL / LOG_FORMAT 缺省时分别取 info 与 text；DEBUG=1 时取 debug。
func InitFromEnv() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		if os.Getenv("DEBUG") == "1" {
			level = "debug"
		} else {
			level = "info"
		}
	}
	Init(Config{Level: level, Format: os.Getenv("LOG_FORMAT")})
}

// GetLogger 返回全局日志器，未初始化时按环境变量惰性初始化。
func GetLogger() *logrus.Logger {
	if std == nil {
		InitFromEnv()
	}
	return std
}

// WithComponent 创建带组件名字段的日志器。
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// SetLevel 动态调整全局日志级别。
func SetLevel(level string) {
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l = logrus.InfoLevel
	}
	GetLogger().SetLevel(l)
}

// Debugf 格式化调试日志。
func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }

// Infof 格式化信息日志。
func Infof(format string, args ...interface{}) { GetLogger().Infof(format, args...) }

// Warnf 格式化警告日志。
func Warnf(format string, args ...interface{}) { GetLogger().Warnf(format, args...) }

// Errorf 格式化错误日志。
func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }
