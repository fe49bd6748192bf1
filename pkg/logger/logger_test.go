package logger

import (
	"lms_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want zapcore.Level
	}{
		{name: "release default", cfg: config.Config{Server: config.ServerConfig{Mode: "release"}}, want: zap.InfoLevel},
		{name: "debug mode", cfg: config.Config{Server: config.ServerConfig{Mode: "debug"}}, want: zap.DebugLevel},
		{name: "explicit level wins", cfg: config.Config{Server: config.ServerConfig{Mode: "debug"}, Log: config.LogConfig{Level: "WARN"}}, want: zap.WarnLevel},
		{name: "garbage level falls back", cfg: config.Config{Log: config.LogConfig{Level: "loud"}}, want: zap.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLevel(&tt.cfg))
		})
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(zap.ErrorLevel)
	assert.Equal(t, zap.ErrorLevel, Level())
	SetLevel(zap.InfoLevel)
	assert.Equal(t, zap.InfoLevel, Level())
}
