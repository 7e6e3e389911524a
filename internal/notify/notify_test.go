package notify

import (
	"context"
	"errors"
	"testing"

	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier_LevelsByKind(t *testing.T) {
	logger := logging.NewMockLogger()
	n := NewLogNotifier(logger)

	n.Notify(context.Background(), KindSuccess, "Income recorded")
	n.Notify(context.Background(), KindError, "Transaction failed")

	assert.True(t, logger.HasEntry("INFO", "Income recorded"))
	assert.True(t, logger.HasEntry("WARN", "Transaction failed"))
}

func TestStoreNotifier_PersistsAndLogs(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	logger := logging.NewMockLogger()
	n := NewStoreNotifier(s, logger)

	n.Notify(ctx, KindInfo, "Reminder scheduled")

	recs, err := s.List(ctx, store.CollectionNotifications, store.Filter{"kind": "info"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Reminder scheduled", recs[0]["message"])
	assert.Equal(t, false, recs[0]["read"])
	assert.True(t, logger.HasEntry("INFO", "Reminder scheduled"))
}

func TestStoreNotifier_SwallowsStoreFailure(t *testing.T) {
	s := store.NewMemoryStore()
	s.FailOn(store.OpInsert, store.CollectionNotifications, errors.New("disk full"))
	logger := logging.NewMockLogger()

	assert.NotPanics(t, func() {
		NewStoreNotifier(s, logger).Notify(context.Background(), KindSuccess, "done")
	})
	assert.True(t, logger.HasEntry("WARN", "Failed to persist notification"))
	assert.Equal(t, 0, s.Len(store.CollectionNotifications))
}

func TestMockNotifier(t *testing.T) {
	m := NewMockNotifier()
	_, ok := m.Last()
	assert.False(t, ok)

	m.Notify(context.Background(), KindSuccess, "a")
	m.Notify(context.Background(), KindError, "b")
	m.Notify(context.Background(), KindSuccess, "c")

	assert.Equal(t, 2, m.Count(KindSuccess))
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, Message{Kind: KindSuccess, Message: "c"}, last)
	assert.Len(t, m.Messages(), 3)

	m.Clear()
	assert.Empty(t, m.Messages())
}
