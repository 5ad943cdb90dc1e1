package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("rcsfx"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "rcsfx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer or endpoint")
}

func TestNew_FileSinkExportsMetrics(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, LogWriter: &buf, BatchTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	counter, err := p.Meter("rcsfx/test").Int64Counter("thrusters.fired")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "thrusters.fired")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestFromSettings(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromSettings(config.OTelConfig{
		Enabled:      true,
		ServiceName:  "rcsfx",
		BatchTimeout: 2 * time.Second,
		Endpoint:     "localhost:4318",
		Insecure:     true,
	}, &buf)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "rcsfx", cfg.ServiceName)
	assert.Equal(t, 2*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Same(t, &buf, cfg.LogWriter)
}
