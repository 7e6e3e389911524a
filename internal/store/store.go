// Package store defines the persistent record store the ledger engine talks
// to, plus the in-memory and YAML-file implementations.
//
// A store holds named collections of records. It offers single-record
// operations only; there is no cross-record transaction available to callers.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collections used by the engine. notifications and profiles belong to
// subsystems outside the ledger but live in the same store.
const (
	CollectionPaymentSources = "payment_sources"
	CollectionTransactions   = "transactions"
	CollectionNotifications  = "notifications"
	CollectionProfiles       = "profiles"
)

var (
	// ErrNotFound is returned by FetchOne, Update, Delete and Increment for a missing id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by Insert when the record carries an id already in use.
	ErrDuplicate = errors.New("record already exists")
)

// Record is one stored document. Values are limited to strings, bools,
// numbers, slices and nested maps.
type Record map[string]any

// Filter selects records whose fields equal the given string values.
type Filter map[string]string

// RecordStore is the boundary to persistence.
type RecordStore interface {
	FetchOne(ctx context.Context, collection, id string) (Record, error)
	// Insert stores rec, assigning an id when rec has none, and returns the id.
	Insert(ctx context.Context, collection string, rec Record) (string, error)
	// Update merges fields into the stored record.
	Update(ctx context.Context, collection, id string, fields Record) error
	Delete(ctx context.Context, collection, id string) error
	// List returns matching records in insertion order.
	List(ctx context.Context, collection string, filter Filter) ([]Record, error)
	Close() error
}

// Incrementer is implemented by stores that can apply field = field + delta
// as one store-side operation. The balance mutator prefers it over
// fetch-then-write.
type Incrementer interface {
	Increment(ctx context.Context, collection, id, field string, delta decimal.Decimal) (decimal.Decimal, error)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// ID returns the record's id field.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Matches reports whether every filter field equals the record's value.
func (r Record) Matches(filter Filter) bool {
	for field, want := range filter {
		v, ok := r[field]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(Record(val).Clone())
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Plain converts nested Record values back into map[string]any in place.
// Decoders that target the named map type, yaml.v3 among them, produce
// nested Records; callers always see plain maps.
func (r Record) Plain() Record {
	for k, v := range r {
		r[k] = plainValue(v)
	}
	return r
}

func plainValue(v any) any {
	switch val := v.(type) {
	case Record:
		return map[string]any(val.Plain())
	case map[string]any:
		return map[string]any(Record(val).Plain())
	case []any:
		for i, item := range val {
			val[i] = plainValue(item)
		}
		return val
	default:
		return val
	}
}

// PrepareInsert copies rec, assigns an id and stamps the timestamps.
func PrepareInsert(rec Record, now time.Time) (Record, string) {
	out := rec.Clone()
	if out == nil {
		out = Record{}
	}
	id := out.ID()
	if id == "" {
		id = uuid.NewString()
		out["id"] = id
	}
	stamp := now.UTC().Format(time.RFC3339Nano)
	out["created_at"] = stamp
	out["updated_at"] = stamp
	return out, id
}

// ApplyUpdate merges fields into rec. The id and created_at are immutable.
func ApplyUpdate(rec, fields Record, now time.Time) {
	for k, v := range fields {
		if k == "id" || k == "created_at" {
			continue
		}
		rec[k] = cloneValue(v)
	}
	rec["updated_at"] = now.UTC().Format(time.RFC3339Nano)
}

// AddToField adds delta to the decimal stored under field.
func AddToField(rec Record, field string, delta decimal.Decimal) (decimal.Decimal, error) {
	current := decimal.Zero
	switch v := rec[field].(type) {
	case nil:
	case string:
		if v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return decimal.Zero, fmt.Errorf("field %s is not a decimal: %w", field, err)
			}
			current = d
		}
	case float64:
		current = decimal.NewFromFloat(v)
	case int:
		current = decimal.NewFromInt(int64(v))
	case int64:
		current = decimal.NewFromInt(v)
	default:
		return decimal.Zero, fmt.Errorf("field %s has unsupported type %T", field, v)
	}
	next := current.Add(delta)
	rec[field] = next.String()
	return next, nil
}
