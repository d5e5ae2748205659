package logger

import (
	"mysql_practice_backend/internal/config"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局日志，未初始化时为 Nop，便于测试直接使用
var Log = zap.NewNop()

var atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

func InitLogger(cfg *config.Config) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	filename := cfg.Log.File
	if filename == "" {
		filename = "logs/app.log"
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	consoleWriter := zapcore.AddSync(os.Stdout)

	SetLevel(levelFor(cfg))

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			fileWriter,
			atomicLevel,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			consoleWriter,
			atomicLevel,
		),
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// SetLevel 运行时调整日志级别（配置热更新时调用）
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// ApplyConfig 根据新配置刷新日志级别
func ApplyConfig(cfg *config.Config) {
	SetLevel(levelFor(cfg))
}

func levelFor(cfg *config.Config) zapcore.Level {
	if cfg.Server.Mode == "debug" && cfg.Log.Level == "" {
		return zap.DebugLevel
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zap.InfoLevel
	}
	return level
}
