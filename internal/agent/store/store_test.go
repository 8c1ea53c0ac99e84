package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

type fakeHost struct {
	memErr error
	cpuErr error
}

func (f fakeHost) VirtualMemory(context.Context) (uint64, uint64, error) {
	return 1024, 512, f.memErr
}

func (f fakeHost) CPUPercent(context.Context) ([]float64, error) {
	return []float64{12.5, 40}, f.cpuErr
}

func byName(events []models.MetricEvent) map[string]models.MetricEvent {
	out := make(map[string]models.MetricEvent, len(events))
	for _, e := range events {
		out[e.Name] = e
	}
	return out
}

func TestCollectProducesRuntimeAndHostEvents(t *testing.T) {
	c := NewCollectorWithHost(fakeHost{})

	events, err := c.Collect(context.Background())
	require.NoError(t, err)

	got := byName(events)
	for _, name := range []string{"runtime_Alloc", "runtime_HeapAlloc", "agent_RandomValue", "agent_PollCount", "host_TotalMemory", "host_FreeMemory", "host_CPUutilization1", "host_CPUutilization2"} {
		assert.Contains(t, got, name)
	}

	assert.Equal(t, float64(1024), got["host_TotalMemory"].Value)
	assert.Equal(t, models.UnitPercent, got["host_CPUutilization2"].Unit)

	typ, ok := got["agent_PollCount"].MetadataValue("type")
	assert.True(t, ok)
	assert.Equal(t, TypeCounter, typ)
}

func TestCollectIncrementsPollCount(t *testing.T) {
	c := NewCollectorWithHost(fakeHost{})

	for i := 0; i < 3; i++ {
		_, err := c.Collect(context.Background())
		require.NoError(t, err)
	}

	events, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), c.PollCount())
	assert.Equal(t, float64(4), byName(events)["agent_PollCount"].Value)
}

func TestCollectHostFailureKeepsRuntimeEvents(t *testing.T) {
	c := NewCollectorWithHost(fakeHost{memErr: errors.New("no /proc")})

	events, err := c.Collect(context.Background())
	assert.Error(t, err)

	got := byName(events)
	assert.Contains(t, got, "runtime_Sys")
	assert.NotContains(t, got, "host_TotalMemory")
}

func TestCollectEventsHaveUniqueIDs(t *testing.T) {
	c := NewCollectorWithHost(fakeHost{})

	events, err := c.Collect(context.Background())
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		_, dup := seen[e.ID]
		assert.False(t, dup, "duplicate id %s", e.ID)
		seen[e.ID] = struct{}{}
	}
}
