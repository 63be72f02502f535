package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	started      time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latency      map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:      time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latency:      make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Counter is one series of the snapshot.
type Counter struct {
	Path         string  `json:"path"`
	Method       string  `json:"method"`
	Label        string  `json:"label"`
	Count        int64   `json:"count"`
	AvgLatencyMS float64 `json:"avg_latency_ms,omitempty"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds int64     `json:"uptime_seconds"`
	Requests      []Counter `json:"requests"`
	Errors        []Counter `json:"errors"`
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Requests: []Counter{}, Errors: []Counter{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      make([]Counter, 0, len(m.requestCount)),
		Errors:        make([]Counter, 0, len(m.errorCount)),
	}
	for _, key := range sortedKeys(m.requestCount) {
		counter := splitKey(key, m.requestCount[key])
		counter.AvgLatencyMS = float64(m.latency[key].Microseconds()) / 1000 / float64(m.requestCount[key])
		snap.Requests = append(snap.Requests, counter)
	}
	for _, key := range sortedKeys(m.errorCount) {
		snap.Errors = append(snap.Errors, splitKey(key, m.errorCount[key]))
	}
	return snap
}

func pathKey(path, method, label string) string {
	return path + "|" + method + "|" + label
}

func splitKey(key string, count int64) Counter {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return Counter{Path: parts[0], Method: parts[1], Label: parts[2], Count: count}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
