package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Op names a store operation for failure injection.
type Op string

const (
	OpFetch     Op = "fetch"
	OpInsert    Op = "insert"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpList      Op = "list"
	OpIncrement Op = "increment"
)

type failureRule struct {
	op         Op
	collection string
	skip       int
	remaining  int // negative means unlimited
	err        error
}

// MemoryStore keeps collections in process memory. It is safe for
// concurrent use and supports failure injection for tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Record
	order       map[string][]string
	rules       []*failureRule
	calls       map[string]int
	now         func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
		order:       make(map[string][]string),
		calls:       make(map[string]int),
		now:         time.Now,
	}
}

// FailOn makes every op on collection fail with err.
func (m *MemoryStore) FailOn(op Op, collection string, err error) {
	m.addRule(&failureRule{op: op, collection: collection, remaining: -1, err: err})
}

// FailOnce makes only the next op on collection fail with err.
func (m *MemoryStore) FailOnce(op Op, collection string, err error) {
	m.addRule(&failureRule{op: op, collection: collection, remaining: 1, err: err})
}

// FailAfter lets n ops on collection succeed, then fails the rest with err.
func (m *MemoryStore) FailAfter(op Op, collection string, n int, err error) {
	m.addRule(&failureRule{op: op, collection: collection, skip: n, remaining: -1, err: err})
}

// ClearFailures removes every injected failure.
func (m *MemoryStore) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = nil
}

// Calls returns how many times op was attempted on collection.
func (m *MemoryStore) Calls(op Op, collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[callKey(op, collection)]
}

// Len returns the number of records in collection.
func (m *MemoryStore) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

func (m *MemoryStore) addRule(rule *failureRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

func callKey(op Op, collection string) string {
	return string(op) + ":" + collection
}

// check records the call and returns an injected failure, if any. Callers hold m.mu.
func (m *MemoryStore) check(op Op, collection string) error {
	m.calls[callKey(op, collection)]++
	for _, rule := range m.rules {
		if rule.op != op || rule.collection != collection || rule.remaining == 0 {
			continue
		}
		if rule.skip > 0 {
			rule.skip--
			continue
		}
		if rule.remaining > 0 {
			rule.remaining--
		}
		return rule.err
	}
	return nil
}

func (m *MemoryStore) FetchOne(_ context.Context, collection, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpFetch, collection); err != nil {
		return nil, err
	}
	rec, ok := m.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Insert(_ context.Context, collection string, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpInsert, collection); err != nil {
		return "", err
	}
	stored, id := PrepareInsert(rec, m.now())
	if _, exists := m.collections[collection][id]; exists {
		return "", fmt.Errorf("%s/%s: %w", collection, id, ErrDuplicate)
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]Record)
	}
	m.collections[collection][id] = stored
	m.order[collection] = append(m.order[collection], id)
	return id, nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, fields Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpUpdate, collection); err != nil {
		return err
	}
	rec, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	ApplyUpdate(rec, fields, m.now())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpDelete, collection); err != nil {
		return err
	}
	if _, ok := m.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(m.collections[collection], id)
	ids := m.order[collection]
	for i, existing := range ids {
		if existing == id {
			m.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, collection string, filter Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpList, collection); err != nil {
		return nil, err
	}
	var out []Record
	for _, id := range m.order[collection] {
		rec := m.collections[collection][id]
		if rec.Matches(filter) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Increment adds delta to a decimal field under the store lock.
func (m *MemoryStore) Increment(_ context.Context, collection, id, field string, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(OpIncrement, collection); err != nil {
		return decimal.Zero, err
	}
	rec, ok := m.collections[collection][id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	next, err := AddToField(rec, field, delta)
	if err != nil {
		return decimal.Zero, err
	}
	rec["updated_at"] = m.now().UTC().Format(time.RFC3339Nano)
	return next, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
