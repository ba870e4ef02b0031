// Package knowledge implements the process-wide, thread-safe KnowledgeBase
// shared by every worker (spec §3, §4.3, §5).
package knowledge

import (
	"sync"
	"time"

	"github.com/jihwankim/cfgfuzz/pkg/configtree"
)

// DefaultConsistentThreshold is the default CONSISTENT_THRESHOLD tunable
// (spec §6).
const DefaultConsistentThreshold = 10

// KnowledgeBase is the shared failure/success memory. All state is created
// at orchestrator start and lives for the run; there is no persistence
// (spec §1 Non-goals, §3).
type KnowledgeBase struct {
	mu                  sync.Mutex
	consistentThreshold int

	failureSet         map[string][]configtree.Leaf
	successSet         map[string][]configtree.Leaf
	failureCount       map[string]int
	consistentItems    map[string]struct{}
	inconsistentItems  map[string]struct{}
	totalRounds        int
}

// New constructs an empty KnowledgeBase with the given CONSISTENT_THRESHOLD.
func New(consistentThreshold int) *KnowledgeBase {
	if consistentThreshold <= 0 {
		consistentThreshold = DefaultConsistentThreshold
	}
	return &KnowledgeBase{
		consistentThreshold: consistentThreshold,
		failureSet:          make(map[string][]configtree.Leaf),
		successSet:          make(map[string][]configtree.Leaf),
		failureCount:        make(map[string]int),
		consistentItems:     make(map[string]struct{}),
		inconsistentItems:   make(map[string]struct{}),
	}
}

// RecordFailure adds value to failure_set[key], increments failure_count[key],
// and inserts key into consistent_items once the counter reaches threshold
// (spec §4.3).
func (kb *KnowledgeBase) RecordFailure(key string, value configtree.Leaf) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.totalRounds++
	if !containsLeaf(kb.failureSet[key], value) {
		kb.failureSet[key] = append(kb.failureSet[key], value)
	}
	kb.failureCount[key]++
	if kb.failureCount[key] >= kb.consistentThreshold {
		kb.consistentItems[key] = struct{}{}
	}
}

// RecordSuccess adds value to success_set[key], inserts key into
// inconsistent_items, and removes key from consistent_items (spec §4.3;
// §9 design note 1 — this update only ever happens on the survival path,
// never speculatively on a failing round).
func (kb *KnowledgeBase) RecordSuccess(key string, value configtree.Leaf) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.totalRounds++
	if !containsLeaf(kb.successSet[key], value) {
		kb.successSet[key] = append(kb.successSet[key], value)
	}
	kb.inconsistentItems[key] = struct{}{}
	delete(kb.consistentItems, key)
}

// IsKnownFailure reports whether value has previously been recorded as a
// failure for key.
func (kb *KnowledgeBase) IsKnownFailure(key string, value configtree.Leaf) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return containsLeaf(kb.failureSet[key], value)
}

// IsKnownSuccess reports whether value has previously been recorded as a
// success for key.
func (kb *KnowledgeBase) IsKnownSuccess(key string, value configtree.Leaf) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return containsLeaf(kb.successSet[key], value)
}

// IsConsistentItem reports whether key is currently consistency-sensitive.
func (kb *KnowledgeBase) IsConsistentItem(key string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	_, ok := kb.consistentItems[key]
	return ok
}

// FailureCount returns the current failure counter for key.
func (kb *KnowledgeBase) FailureCount(key string) int {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.failureCount[key]
}

// Snapshot is an immutable point-in-time view for the Reporter (spec §4.3
// snapshot() operation).
type Snapshot struct {
	GeneratedAt        time.Time
	TotalRounds        int
	ConsistentItems    map[string]int // key -> failure count
	InconsistentItems  []string
	ConsistentThreshold int
}

// Snapshot returns a copy of the KnowledgeBase's reportable state.
func (kb *KnowledgeBase) Snapshot() Snapshot {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	consistent := make(map[string]int, len(kb.consistentItems))
	for k := range kb.consistentItems {
		consistent[k] = kb.failureCount[k]
	}
	inconsistent := make([]string, 0, len(kb.inconsistentItems))
	for k := range kb.inconsistentItems {
		inconsistent = append(inconsistent, k)
	}

	return Snapshot{
		GeneratedAt:         time.Now(),
		TotalRounds:         kb.totalRounds,
		ConsistentItems:     consistent,
		InconsistentItems:   inconsistent,
		ConsistentThreshold: kb.consistentThreshold,
	}
}

func containsLeaf(values []configtree.Leaf, target configtree.Leaf) bool {
	for _, v := range values {
		if configtree.Equal(v, target) {
			return true
		}
	}
	return false
}
