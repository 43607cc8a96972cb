package metrics

import (
	"sync"
	"time"
)

// MemoryCollector keeps counts in memory so tests can assert on them.
type MemoryCollector struct {
	mu sync.Mutex

	ChargeAttempts map[string]int
	ThreeDSRetries map[bool]int
	CardUploads    map[bool]int
	Lookups        map[bool]int
	StoreRetries   map[string]int
	Repairs        map[bool]int
	BreakerStates  map[string]string
}

func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		ChargeAttempts: make(map[string]int),
		ThreeDSRetries: make(map[bool]int),
		CardUploads:    make(map[bool]int),
		Lookups:        make(map[bool]int),
		StoreRetries:   make(map[string]int),
		Repairs:        make(map[bool]int),
		BreakerStates:  make(map[string]string),
	}
}

func (m *MemoryCollector) RecordChargeAttempt(biller, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChargeAttempts[biller+"/"+status]++
}

func (m *MemoryCollector) RecordThreeDSRetry(_ string, withThreeD bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ThreeDSRetries[withThreeD]++
}

func (m *MemoryCollector) RecordCardUpload(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CardUploads[success]++
}

func (m *MemoryCollector) RecordLookup(_ string, authRequired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups[authRequired]++
}

func (m *MemoryCollector) RecordStoreWriteRetry(collection, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreRetries[collection+"/"+code]++
}

func (m *MemoryCollector) RecordRepair(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Repairs[success]++
}

func (m *MemoryCollector) RecordBreakerState(name, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BreakerStates[name] = state
}

// Count returns a snapshot read of one of the counter maps under the lock.
func Count[K comparable](m *MemoryCollector, counters map[K]int, key K) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counters[key]
}
