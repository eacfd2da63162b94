package config

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger 根据日志配置创建 logger；pretty 使用 zerolog 的控制台格式，json 输出一行一条记录。
func NewLogger(cfg LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
