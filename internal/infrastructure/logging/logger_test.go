package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "warn", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = New(Config{Level: "nope"})
	assert.Error(t, err)
}

func TestNewFromLevel(t *testing.T) {
	assert.True(t, NewFromLevel("debug", false).Core().Enabled(zapcore.DebugLevel))
	assert.False(t, NewFromLevel("bogus", false).Core().Enabled(zapcore.DebugLevel))
	assert.True(t, NewDevelopment().Core().Enabled(zapcore.DebugLevel))
	assert.False(t, NewDefault().Core().Enabled(zapcore.DebugLevel))
}

func TestComponent(t *testing.T) {
	child := NewNop().Component("runner")
	require.NotNil(t, child)
	child.Info("discarded")
}
