package testutil

import (
	"sparkd/internal/providers"
	"sparkd/internal/structures"
	"sync"
	"time"
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

// HasLevel reports whether at least one entry with the given level was logged.
func (m *MockLogger) HasLevel(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level {
			return true
		}
	}
	return false
}

// MockStore implements store.Store in memory with the same Update
// serialization guarantee as the real drivers.
type MockStore struct {
	mu   sync.Mutex
	Data map[string][]byte

	GetErr    error
	SetErr    error
	UpdateErr error

	RestoreCalls int
	PersistCalls int
	CloseCalls   int
}

func NewMockStore() *MockStore {
	return &MockStore{Data: make(map[string][]byte)}
}

func (m *MockStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	val, ok := m.Data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (m *MockStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	out := make([]byte, len(value))
	copy(out, value)
	m.Data[key] = out
	return nil
}

func (m *MockStore) Update(key string, fn func(current []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	next, err := fn(m.Data[key])
	if err != nil {
		return err
	}
	m.Data[key] = next
	return nil
}

func (m *MockStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	return nil
}

func (m *MockStore) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoreCalls++
	return nil
}

func (m *MockStore) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistCalls++
	return nil
}

// PersistCount is safe to poll from assert.Eventually.
func (m *MockStore) PersistCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PersistCalls
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// MockSink implements funnel.EventSink and records every event.
type MockSink struct {
	mu     sync.Mutex
	Events []SinkEvent
}

type SinkEvent struct {
	Name   string
	Params map[string]any
}

func (m *MockSink) Event(name string, params map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, SinkEvent{Name: name, Params: params})
}

// Count returns how many times an event with the given name fired.
func (m *MockSink) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	LikesGranted   int
	MatchesGranted int
	QuotaDenied    map[string]int
	BusinessEvents map[string]int
	CacheHits      int
	CacheMisses    int
	LastBalance    float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		QuotaDenied:    make(map[string]int),
		BusinessEvents: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int)                   {}
func (m *MockMetrics) ObserveRequestDuration(endpoint string, duration time.Duration) {}
func (m *MockMetrics) ObservePersistenceDuration(duration time.Duration)              {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncLikesGranted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LikesGranted++
}

func (m *MockMetrics) IncMatchesGranted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchesGranted++
}

func (m *MockMetrics) IncQuotaDenied(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuotaDenied[kind]++
}

func (m *MockMetrics) IncBusinessEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BusinessEvents[name]++
}

func (m *MockMetrics) SetBalance(amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBalance = amount
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements store.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// TestConfig returns a config with the default funnel knobs used across tests.
func TestConfig() *structures.Config {
	return &structures.Config{
		AppName: "SparkFunnelDaemon",
		Funnel: structures.FunnelConfig{
			MaxFreeLikes:     5,
			MinLikesForMatch: 5,
			MaxFreeMatches:   1,
			MessageCap:       4,
			MatchPolicy:      "fifth-like",
			LikeReward:       25.0,
			GiftAmount:       50.0,
			PopupDelay:       500 * time.Millisecond,
			TypingDelay:      2 * time.Second,
		},
		Checkout: structures.CheckoutConfig{
			Plans: map[string]structures.PlanConfig{
				"plano1": {Name: "1 semana", Price: "R$ 19,90", URL: "https://pay.example.com/plano1"},
				"plano2": {Name: "1 mês", Price: "R$ 39,90", URL: "https://pay.example.com/plano2"},
			},
		},
		Persistence: structures.Persistence{
			Driver:       "file",
			SaveInterval: time.Second,
		},
	}
}
