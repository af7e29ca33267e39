package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/lfkit/internal/config"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format must be"},
		{"no output", func(c *Config) { c.Output = "" }, "output is required"},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }, "sampling tick"},
		{"zero tick ignored when disabled", func(c *Config) { c.Sampling.Enabled = false; c.Sampling.Tick = 0 }, ""},
		{"unknown sampling level", func(c *Config) { c.Sampling.Levels["loud"] = LevelSamplingConfig{} }, "sampling level"},
		{"sampled errors", func(c *Config) { c.Sampling.Levels["error"] = LevelSamplingConfig{Initial: 1} }, "never sampled"},
		{"negative initial", func(c *Config) { c.Sampling.Levels["info"] = LevelSamplingConfig{Initial: -1} }, "must be >= 0"},
		{"negative caller skip", func(c *Config) { c.Caller.Enabled = true; c.Caller.Skip = -1 }, "caller skip"},
		{"empty field value", func(c *Config) { c.Fields["env"] = "" }, "empty value"},
		{"empty field key", func(c *Config) { c.Fields[""] = "x" }, "key cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_PerLevel(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[string]LevelSamplingConfig{
			"debug": {Initial: 2, Thereafter: 0},
			"info":  {Initial: 5, Thereafter: 0},
		},
	})
	logger := zap.New(sampled)

	for i := 0; i < 20; i++ {
		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")
	}

	assert.Equal(t, 2, observed.FilterMessage("debug message").Len())
	assert.Equal(t, 5, observed.FilterMessage("info message").Len())
	assert.Equal(t, 20, observed.FilterMessage("warn message").Len(), "unconfigured levels pass through")
	assert.Equal(t, 20, observed.FilterMessage("error message").Len(), "errors are never sampled")
}

func TestNewSampledCore_WithKeepsFiltering(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  map[string]LevelSamplingConfig{"info": {Initial: 1, Thereafter: 0}},
	})
	logger := zap.New(sampled).With(zap.String("component", "test"))

	for i := 0; i < 3; i++ {
		logger.Info("info message")
		logger.Error("error message")
	}

	assert.Equal(t, 1, observed.FilterMessage("info message").Len())
	assert.Equal(t, 3, observed.FilterMessage("error message").Len())
	assert.Equal(t, "test", observed.FilterMessage("error message").All()[0].ContextMap()["component"])
}
