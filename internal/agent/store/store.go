package store

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/levinOo/go-telemetry-project/internal/models"
)

const (
	TypeGauge   = "gauge"
	TypeCounter = "counter"

	runtimePrefix = "runtime_"
	hostPrefix    = "host_"
	agentPrefix   = "agent_"
)

type runtimeGauge struct {
	name string
	unit string
	read func(*runtime.MemStats) float64
}

var runtimeGauges = []runtimeGauge{
	{"Alloc", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.Alloc) }},
	{"BuckHashSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.BuckHashSys) }},
	{"Frees", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.Frees) }},
	{"GCCPUFraction", models.UnitPercent, func(s *runtime.MemStats) float64 { return s.GCCPUFraction }},
	{"GCSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.GCSys) }},
	{"HeapAlloc", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.HeapAlloc) }},
	{"HeapIdle", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.HeapIdle) }},
	{"HeapInuse", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.HeapInuse) }},
	{"HeapObjects", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.HeapObjects) }},
	{"HeapReleased", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.HeapReleased) }},
	{"HeapSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.HeapSys) }},
	{"LastGC", models.UnitNone, func(s *runtime.MemStats) float64 { return float64(s.LastGC) }},
	{"Lookups", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.Lookups) }},
	{"MCacheInuse", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.MCacheInuse) }},
	{"MCacheSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.MCacheSys) }},
	{"MSpanInuse", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.MSpanInuse) }},
	{"MSpanSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.MSpanSys) }},
	{"Mallocs", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.Mallocs) }},
	{"NextGC", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.NextGC) }},
	{"NumForcedGC", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.NumForcedGC) }},
	{"NumGC", models.UnitCount, func(s *runtime.MemStats) float64 { return float64(s.NumGC) }},
	{"OtherSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.OtherSys) }},
	{"PauseTotalNs", models.UnitNone, func(s *runtime.MemStats) float64 { return float64(s.PauseTotalNs) }},
	{"StackInuse", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.StackInuse) }},
	{"StackSys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.StackSys) }},
	{"Sys", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.Sys) }},
	{"TotalAlloc", models.UnitBytes, func(s *runtime.MemStats) float64 { return float64(s.TotalAlloc) }},
}

// HostStats reads host-level memory and CPU statistics.
type HostStats interface {
	VirtualMemory(ctx context.Context) (total, available uint64, err error)
	CPUPercent(ctx context.Context) ([]float64, error)
}

type gopsutilStats struct{}

func (gopsutilStats) VirtualMemory(ctx context.Context) (uint64, uint64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return v.Total, v.Available, nil
}

func (gopsutilStats) CPUPercent(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

// Collector turns runtime and host statistics into telemetry events.
type Collector struct {
	mu        sync.Mutex
	pollCount int64
	rnd       *rand.Rand
	host      HostStats
	hostname  string
}

func NewCollector() *Collector {
	return NewCollectorWithHost(gopsutilStats{})
}

func NewCollectorWithHost(host HostStats) *Collector {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	return &Collector{
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		host:     host,
		hostname: hostname,
	}
}

// PollCount returns how many times Collect has run.
func (c *Collector) PollCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCount
}

// Collect samples runtime MemStats and host stats. Host stat failures are
// returned alongside the runtime events, which are always produced.
func (c *Collector) Collect(ctx context.Context) ([]models.MetricEvent, error) {
	c.mu.Lock()
	c.pollCount++
	pollCount := c.pollCount
	random := c.rnd.Float64()
	c.mu.Unlock()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	now := time.Now().UTC()
	events := make([]models.MetricEvent, 0, len(runtimeGauges)+8)

	for _, g := range runtimeGauges {
		events = append(events, c.event(runtimePrefix+g.name, TypeGauge, g.read(&stats), g.unit, now))
	}
	events = append(events,
		c.event(agentPrefix+"RandomValue", TypeGauge, random, models.UnitNone, now),
		c.event(agentPrefix+"PollCount", TypeCounter, float64(pollCount), models.UnitCount, now),
	)

	hostEvents, err := c.collectHost(ctx, now)
	events = append(events, hostEvents...)

	return events, err
}

func (c *Collector) collectHost(ctx context.Context, now time.Time) ([]models.MetricEvent, error) {
	var events []models.MetricEvent

	total, available, err := c.host.VirtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read host memory: %w", err)
	}
	events = append(events,
		c.event(hostPrefix+"TotalMemory", TypeGauge, float64(total), models.UnitBytes, now),
		c.event(hostPrefix+"FreeMemory", TypeGauge, float64(available), models.UnitBytes, now),
	)

	percents, err := c.host.CPUPercent(ctx)
	if err != nil {
		return events, fmt.Errorf("failed to read cpu utilization: %w", err)
	}
	for i, p := range percents {
		events = append(events, c.event(hostPrefix+"CPUutilization"+strconv.Itoa(i+1), TypeGauge, p, models.UnitPercent, now))
	}

	return events, nil
}

func (c *Collector) event(name, metricType string, value float64, unit string, at time.Time) models.MetricEvent {
	return models.NewMetricEvent(name,
		models.WithValue(value, unit),
		models.WithCreatedAt(at),
		models.WithMetadata(map[string]string{
			"type": metricType,
			"host": c.hostname,
		}),
	)
}
