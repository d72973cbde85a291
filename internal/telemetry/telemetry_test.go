package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/argusverify/argus/internal/model"
	"github.com/stretchr/testify/require"
)

func TestConfigureTracingWithNoEndpointIsNoop(t *testing.T) {
	shutdown, err := ConfigureTracing(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestMetricsRecordRunIncrementsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRun(model.VerdictVerified, "lean", 250*time.Millisecond)
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordRepairAttempt()

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNewMetricsCanBeConstructedMoreThanOnce(t *testing.T) {
	require.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
