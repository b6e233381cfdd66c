// Package logger builds the process logger: console output, optionally teed
// with a rotating JSON file.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Mode       string `koanf:"mode" validate:"omitempty,oneof=development production"`
	Level      string `koanf:"level"`
	FileEnable bool   `koanf:"file_enable"`
	Filename   string `koanf:"filename" validate:"required_if=FileEnable true"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// New returns the logger and a sync func to call on shutdown.
func New(cfg Config) (*zap.Logger, func(), error) {
	var zcfg zap.Config
	if cfg.Mode == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		parsed, err := zap.ParseAtomicLevel(lvl)
		if err != nil {
			return nil, nil, fmt.Errorf("logger: level %q: %w", lvl, err)
		}
		zcfg.Level = parsed
	}

	if !cfg.FileEnable {
		zcfg.OutputPaths = []string{"stdout"}
		l, err := zcfg.Build(zap.AddCaller())
		if err != nil {
			return nil, nil, fmt.Errorf("logger: build: %w", err)
		}
		return l, func() { _ = l.Sync() }, nil
	}

	rotate := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    orDefault(cfg.MaxSizeMB, 64),
		MaxBackups: orDefault(cfg.MaxBackups, 7),
		MaxAge:     orDefault(cfg.MaxAgeDays, 7),
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotate),
			zcfg.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zcfg.Level,
		),
	)
	l := zap.New(core, zap.AddCaller())
	return l, func() {
		_ = l.Sync()
		_ = rotate.Close()
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
