package logger

import (
	"mysql_practice_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want zap.AtomicLevel
	}{
		{"explicit warn", config.Config{Log: config.LogConfig{Level: "warn"}}, zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"debug mode without level", config.Config{Server: config.ServerConfig{Mode: "debug"}}, zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"garbage falls back to info", config.Config{Log: config.LogConfig{Level: "loud"}}, zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want.Level(), levelFor(&tc.cfg))
		})
	}
}

func TestApplyConfig(t *testing.T) {
	ApplyConfig(&config.Config{Log: config.LogConfig{Level: "error"}})
	assert.Equal(t, zap.ErrorLevel, atomicLevel.Level())

	ApplyConfig(&config.Config{Log: config.LogConfig{Level: "info"}})
	assert.Equal(t, zap.InfoLevel, atomicLevel.Level())
}
