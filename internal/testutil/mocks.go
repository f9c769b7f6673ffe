package testutil

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tosctl/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts
// calls per label.
type MockMetrics struct {
	mu        sync.Mutex
	Fetches   map[string]int
	Hits      map[string]int
	Misses    map[string]int
	Decisions map[bool]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Fetches:   make(map[string]int),
		Hits:      make(map[string]int),
		Misses:    make(map[string]int),
		Decisions: make(map[bool]int),
	}
}

func (m *MockMetrics) IncFetchesTotal(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches[outcome]++
}

func (m *MockMetrics) ObserveFetchDuration(_ time.Duration) {}

func (m *MockMetrics) IncCacheHits(layer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Hits[layer]++
}

func (m *MockMetrics) IncCacheMisses(layer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Misses[layer]++
}

func (m *MockMetrics) IncDecisions(accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions[accepted]++
}

func (m *MockMetrics) Registry() *prometheus.Registry { return nil }

// MockPrinter implements services.Printer and records emitted events.
type MockPrinter struct {
	mu       sync.Mutex
	Messages []PrintedMessage
	JSON     []interface{}
}

type PrintedMessage struct {
	Message string
	Style   string
}

func (m *MockPrinter) Print(message string, style string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, PrintedMessage{Message: message, Style: style})
}

func (m *MockPrinter) PrintJSON(v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JSON = append(m.JSON, v)
}

// MockCache implements providers.CacheProviderInterface with a plain map.
type MockCache struct {
	mu    sync.Mutex
	Items map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Items: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Items[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Items, key)
}
