// Package devices holds the bounded registry of recently observed
// transmitters. The capture path writes to it once per accepted frame and the
// broadcast ticker reads it once per period, from different goroutines.
package devices

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultCapacity is the number of devices tracked at once.
	DefaultCapacity = 20

	// DefaultStaleWindow is how long a device stays visible after its last frame.
	DefaultStaleWindow = 10 * time.Second
)

// Record is the last observation of a single device.
type Record struct {
	Addr     Addr
	Strength int
	LastSeen time.Time
}

// Policy decides what happens to an unknown address when the table is full.
type Policy int

const (
	// PolicyDrop discards the new address and keeps every existing record,
	// stale or not.
	PolicyDrop Policy = iota
	// PolicyEvictStale replaces the least recently seen record, but only if
	// that record is already stale. Live devices are never evicted.
	PolicyEvictStale
)

func (p Policy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	case PolicyEvictStale:
		return "evict-stale"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop":
		return PolicyDrop, nil
	case "evict-stale":
		return PolicyEvictStale, nil
	}
	return PolicyDrop, fmt.Errorf("unknown eviction policy %q: expected drop or evict-stale", s)
}

// Outcome reports what Upsert did with an observation.
type Outcome int

const (
	OutcomeUpdated Outcome = iota
	OutcomeInserted
	OutcomeEvicted // inserted after evicting a stale record
	OutcomeDropped // unknown address, table full
	OutcomeIgnored // older than the record's last observation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeInserted:
		return "inserted"
	case OutcomeEvicted:
		return "evicted"
	case OutcomeDropped:
		return "dropped"
	case OutcomeIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Config configures a Table. Zero values take the package defaults.
type Config struct {
	Capacity    int
	Policy      Policy
	StaleWindow time.Duration // only consulted by PolicyEvictStale
}

// Stats counts Upsert outcomes since the table was created.
type Stats struct {
	Inserted uint64 `json:"inserted"`
	Updated  uint64 `json:"updated"`
	Evicted  uint64 `json:"evicted"`
	Dropped  uint64 `json:"dropped"`
	Ignored  uint64 `json:"ignored"`
}

// Table is a fixed-capacity, insertion-ordered set of Records keyed by Addr.
// A single mutex covers the whole table; at this size a linear scan under the
// lock is cheaper than anything cleverer.
type Table struct {
	capacity    int
	policy      Policy
	staleWindow time.Duration

	mu      sync.Mutex
	records []Record
	stats   Stats
}

// NewTable creates an empty table.
func NewTable(cfg Config) *Table {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.StaleWindow <= 0 {
		cfg.StaleWindow = DefaultStaleWindow
	}
	return &Table{
		capacity:    cfg.Capacity,
		policy:      cfg.Policy,
		staleWindow: cfg.StaleWindow,
		records:     make([]Record, 0, cfg.Capacity),
	}
}

// Upsert records an observation of addr at time now.
//
// A known address has its strength and last-seen time overwritten. An unknown
// address is appended while there is room; once the table is full the
// configured Policy decides. Observations older than a record's LastSeen are
// ignored so LastSeen never moves backwards.
func (t *Table) Upsert(addr Addr, rssi int, now time.Time) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.records {
		r := &t.records[i]
		if r.Addr != addr {
			continue
		}
		if now.Before(r.LastSeen) {
			t.stats.Ignored++
			return OutcomeIgnored
		}
		r.Strength = rssi
		r.LastSeen = now
		t.stats.Updated++
		return OutcomeUpdated
	}

	if len(t.records) < t.capacity {
		t.records = append(t.records, Record{Addr: addr, Strength: rssi, LastSeen: now})
		t.stats.Inserted++
		return OutcomeInserted
	}

	if t.policy == PolicyEvictStale {
		if victim := t.oldestLocked(); victim >= 0 && now.Sub(t.records[victim].LastSeen) >= t.staleWindow {
			copy(t.records[victim:], t.records[victim+1:])
			t.records[len(t.records)-1] = Record{Addr: addr, Strength: rssi, LastSeen: now}
			t.stats.Evicted++
			return OutcomeEvicted
		}
	}

	t.stats.Dropped++
	return OutcomeDropped
}

// oldestLocked returns the index of the least recently seen record, or -1.
func (t *Table) oldestLocked() int {
	idx := -1
	for i := range t.records {
		if idx < 0 || t.records[i].LastSeen.Before(t.records[idx].LastSeen) {
			idx = i
		}
	}
	return idx
}

// SnapshotNonStale returns copies of the records seen within window of now,
// in table order. Stale records are skipped but keep their slot.
func (t *Table) SnapshotNonStale(now time.Time, window time.Duration) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if now.Sub(r.LastSeen) < window {
			out = append(out, r)
		}
	}
	return out
}

// Records returns a copy of every record, stale ones included.
func (t *Table) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Capacity returns the maximum number of records.
func (t *Table) Capacity() int {
	return t.capacity
}

// Policy returns the table's capacity policy.
func (t *Table) Policy() Policy {
	return t.policy
}

// Stats returns a copy of the outcome counters.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
