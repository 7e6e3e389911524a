package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path, logging.NewMockLogger())
	require.NoError(t, err)
	return s, path
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer func() { _ = s.Close() }()

	var _ store.RecordStore = s
	var _ store.Incrementer = s

	id, err := s.Insert(ctx, store.CollectionPaymentSources, store.Record{"name": "HDFC", "amount": "100"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rec, err := s.FetchOne(ctx, store.CollectionPaymentSources, id)
	require.NoError(t, err)
	assert.Equal(t, "HDFC", rec["name"])
	assert.Equal(t, id, rec.ID())
	assert.NotEmpty(t, rec["created_at"])

	require.NoError(t, s.Update(ctx, store.CollectionPaymentSources, id, store.Record{"amount": "150", "id": "other"}))
	rec, err = s.FetchOne(ctx, store.CollectionPaymentSources, id)
	require.NoError(t, err)
	assert.Equal(t, "150", rec["amount"])
	assert.Equal(t, "HDFC", rec["name"])
	assert.Equal(t, id, rec.ID())

	_, err = s.Insert(ctx, store.CollectionPaymentSources, store.Record{"id": id})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.FetchOne(ctx, store.CollectionPaymentSources, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, store.CollectionPaymentSources, "missing", store.Record{}), store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, store.CollectionPaymentSources, "missing"), store.ErrNotFound)

	require.NoError(t, s.Delete(ctx, store.CollectionPaymentSources, id))
	_, err = s.FetchOne(ctx, store.CollectionPaymentSources, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer func() { _ = s.Close() }()

	_, err := s.Insert(ctx, store.CollectionPaymentSources, store.Record{"id": "x"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, store.CollectionTransactions, store.Record{"id": "x"})
	require.NoError(t, err, "the same id may exist in another collection")

	recs, err := s.List(ctx, store.CollectionTransactions, nil)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer func() { _ = s.Close() }()

	for _, r := range []store.Record{
		{"id": "c", "base_source_id": "s1", "is_due": true},
		{"id": "a", "base_source_id": "s1", "is_due": false},
		{"id": "z", "base_source_id": "s2", "is_due": true},
		{"id": "b", "base_source_id": "s1", "is_due": true},
	} {
		_, err := s.Insert(ctx, store.CollectionTransactions, r)
		require.NoError(t, err)
	}

	recs, err := s.List(ctx, store.CollectionTransactions, store.Filter{"base_source_id": "s1"})
	require.NoError(t, err)
	var ids []string
	for _, r := range recs {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	recs, err = s.List(ctx, store.CollectionTransactions, store.Filter{"base_source_id": "s1", "is_due": "true"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStore_Increment(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	defer func() { _ = s.Close() }()

	_, err := s.Insert(ctx, store.CollectionPaymentSources, store.Record{"id": "s1", "amount": "100.50"})
	require.NoError(t, err)

	next, err := s.Increment(ctx, store.CollectionPaymentSources, "s1", "amount", decimal.RequireFromString("-40.25"))
	require.NoError(t, err)
	assert.True(t, next.Equal(decimal.RequireFromString("60.25")), next.String())

	rec, err := s.FetchOne(ctx, store.CollectionPaymentSources, "s1")
	require.NoError(t, err)
	assert.Equal(t, "60.25", rec["amount"])

	_, err = s.Increment(ctx, store.CollectionPaymentSources, "missing", "amount", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Insert(ctx, store.CollectionPaymentSources, store.Record{"id": "bad", "amount": "abc"})
	require.NoError(t, err)
	_, err = s.Increment(ctx, store.CollectionPaymentSources, "bad", "amount", decimal.NewFromInt(1))
	assert.Error(t, err)
	rec, err = s.FetchOne(ctx, store.CollectionPaymentSources, "bad")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec["amount"], "failed increment leaves the record untouched")
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	_, err := s.Insert(ctx, store.CollectionTransactions, store.Record{
		"id":          "t1",
		"audit_trail": []any{map[string]any{"action": "Due Created"}},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err, "migrations already applied must not fail")
	defer func() { _ = reopened.Close() }()

	rec, err := reopened.FetchOne(ctx, store.CollectionTransactions, "t1")
	require.NoError(t, err)
	trail, ok := rec["audit_trail"].([]any)
	require.True(t, ok)
	require.Len(t, trail, 1)
	assert.Equal(t, "Due Created", trail[0].(map[string]any)["action"])
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Insert(context.Background(), store.CollectionProfiles, store.Record{"name": "me"})
	assert.NoError(t, err)
}
