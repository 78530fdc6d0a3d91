// Package metrics provides in-memory request statistics for the backend client.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Operation names for the collector, one per backend call.
const (
	OpListChats     = "list_chats"
	OpCreateChat    = "create_chat"
	OpListMessages  = "list_messages"
	OpSendMessage   = "send_message"
	OpListDocuments = "list_documents"
	OpUpload        = "upload_document"
	OpSearch        = "search"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Op          string
	Count       int64
	Errors      int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the collected statistics at a point in time.
// Operations is sorted by operation name and omits operations never recorded.
type Snapshot struct {
	UptimeSeconds float64
	Operations    []OperationSnapshot
}

// Op returns the snapshot of a single operation.
func (s Snapshot) Op(name string) (OperationSnapshot, bool) {
	for _, o := range s.Operations {
		if o.Op == name {
			return o, true
		}
	}
	return OperationSnapshot{}, false
}

// Collector aggregates in-memory request statistics.
// All methods are thread-safe. A nil *Collector discards everything.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordRequest records timing for an operation and counts it as failed when err is non-nil.
func (c *Collector) RecordRequest(op string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if err != nil {
		m.Errors++
	}

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning false if no data.
func snapshotOp(op string, m *OperationMetrics) (OperationSnapshot, bool) {
	if m == nil || m.Count == 0 {
		return OperationSnapshot{}, false
	}

	return OperationSnapshot{
		Op:          op,
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}, true
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}
	for op, m := range c.ops {
		if s, ok := snapshotOp(op, m); ok {
			snap.Operations = append(snap.Operations, s)
		}
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Op < snap.Operations[j].Op
	})
	return snap
}
