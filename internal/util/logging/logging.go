// Package logging 负责构建 zap 日志器。
// 控制台输出 JSON 格式；可选同时写入文件并由 lumberjack 负责轮转。
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 日志构建选项
type Options struct {
	// Level 日志级别: debug, info, warn, error
	Level string
	// File 日志文件路径；为空时仅输出到控制台
	File string
	// MaxSizeMB 单个日志文件最大大小（MB），仅文件输出时生效
	MaxSizeMB int
	// MaxBackups 保留的轮转文件数量
	MaxBackups int
	// MaxAgeDays 轮转文件保留天数
	MaxAgeDays int
}

// New 构建 zap 日志器
// 级别非法时回退到 info；构建失败时回退到 Nop 以保证主流程不受影响。
func New(opts Options) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(opts.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl),
	}

	// 文件输出走 lumberjack 轮转，避免长时间运行撑爆磁盘
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    defaultInt(opts.MaxSizeMB, 100),
			MaxBackups: defaultInt(opts.MaxBackups, 5),
			MaxAge:     defaultInt(opts.MaxAgeDays, 7),
			Compress:   true,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), lvl))
	}

	return zap.New(zapcore.NewTee(cores...))
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
