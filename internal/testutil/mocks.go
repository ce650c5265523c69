package testutil

import (
	"archivist/internal/archive"
	"archivist/internal/models"
	"archivist/internal/providers"
	"archivist/internal/search"
	"archivist/internal/services"
	"slices"
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

// Entries returns the recorded calls of one level.
func (m *MockLogger) Entries(level string) []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []LogEntry
	for _, e := range m.Logs {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
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

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
}

// MockArchiveService implements services.ArchiveServiceInterface over a
// fixed archive. SearchFn overrides the search result when set.
type MockArchiveService struct {
	mu        sync.Mutex
	Archive   *archive.Archive
	Reloading bool
	Replaced  []*archive.Archive
	SearchFn  func(query string, opts search.Options) ([]*models.Tweet, error)
}

func (m *MockArchiveService) Current() (*archive.Archive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Archive == nil {
		return nil, services.ErrNoArchive
	}
	return m.Archive, nil
}

func (m *MockArchiveService) Replace(a *archive.Archive) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Archive = a
	m.Replaced = append(m.Replaced, a)
}

func (m *MockArchiveService) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Archive != nil
}

func (m *MockArchiveService) LoadedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Archive == nil {
		return time.Time{}
	}
	return m.Archive.LoadedAt
}

func (m *MockArchiveService) Counts() archive.Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Archive == nil {
		return archive.Counts{}
	}
	return m.Archive.Counts()
}

func (m *MockArchiveService) BeginReload() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Reloading {
		return false
	}
	m.Reloading = true
	return true
}

func (m *MockArchiveService) EndReload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloading = false
}

func (m *MockArchiveService) Search(query string, opts search.Options) ([]*models.Tweet, error) {
	if m.SearchFn != nil {
		return m.SearchFn(query, opts)
	}
	a, err := m.Current()
	if err != nil {
		return nil, err
	}
	found, err := search.NewEngine().Search(a.Tweets.Sorted(true), query, opts)
	if err != nil {
		return nil, err
	}
	return slices.Collect(found), nil
}

// MockMetrics implements providers.MetricsProviderInterface and keeps the
// last value per label.
type MockMetrics struct {
	mu           sync.Mutex
	Records      map[string]int
	EntryReads   map[string]int
	Ingests      int
	Persistences int
	CacheHits    int
	CacheMisses  int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

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

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persistences++
}

func (m *MockMetrics) ObserveIngestDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ingests++
}

func (m *MockMetrics) IncEntryReads(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EntryReads == nil {
		m.EntryReads = make(map[string]int)
	}
	m.EntryReads[outcome]++
}

func (m *MockMetrics) SetRecordsTotal(kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Records == nil {
		m.Records = make(map[string]int)
	}
	m.Records[kind] = count
}
