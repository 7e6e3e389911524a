package ledger

import (
	"testing"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) addLabelled(t *testing.T, name, display string, opening int64) string {
	t.Helper()
	src, err := f.ledger.AddSource(f.ctx, models.PaymentSource{Name: name, DisplayName: display, UserID: "u1"}, decimal.NewFromInt(opening))
	require.NoError(t, err)
	return src.ID
}

func TestTransfer_RecordsMatchedLegs(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		a := f.addLabelled(t, "hdfc", "HDFC Savings", 500)
		b := f.addLabelled(t, "wallet", "", 50)
		coord := NewTransferCoordinator(f.ledger)

		res, err := coord.Transfer(f.ctx, TransferRequest{FromID: a, ToID: b, Amount: "100", Description: "top up", UserID: "u1"})
		require.NoError(t, err)

		f.assertBalance(t, a, "400")
		f.assertBalance(t, b, "150")

		legs, err := f.ledger.store.List(f.ctx, store.CollectionTransactions, store.Filter{"transfer_id": res.TransferID})
		require.NoError(t, err)
		require.Len(t, legs, 2)

		out, err := f.ledger.Transaction(f.ctx, res.Out.ID)
		require.NoError(t, err)
		in, err := f.ledger.Transaction(f.ctx, res.In.ID)
		require.NoError(t, err)

		for _, leg := range []models.Transaction{out, in} {
			assert.Equal(t, models.CategoryTransfer, leg.Category)
			assert.Equal(t, models.TypeTransfer, leg.Type)
			assert.Equal(t, res.TransferID, leg.TransferID)
			assert.Equal(t, "top up", leg.Description)
			assert.True(t, leg.Amount.Equal(decimal.NewFromInt(100)))
		}
		assert.Equal(t, models.DirectionOut, out.Direction)
		assert.Equal(t, a, out.BaseSourceID)
		assert.Equal(t, "wallet", out.DisplaySource)
		assert.Equal(t, models.DirectionIn, in.Direction)
		assert.Equal(t, b, in.BaseSourceID)
		assert.Equal(t, "HDFC Savings", in.DisplaySource)

		msg, _ := f.notifier.Last()
		assert.Equal(t, "Transferred 100.00 from HDFC Savings to wallet", msg.Message)
	})
}

func TestTransfer_ExplicitLabelsWin(t *testing.T) {
	f := newFixture(t, true)
	a := f.addSource(t, "a", 10)
	b := f.addSource(t, "b", 0)

	res, err := NewTransferCoordinator(f.ledger).Transfer(f.ctx, TransferRequest{
		FromID: a, ToID: b, Amount: "5", FromLabel: "Mine", ToLabel: "Yours",
	})
	require.NoError(t, err)
	assert.Equal(t, "Yours", res.Out.DisplaySource)
	assert.Equal(t, "Mine", res.In.DisplaySource)
}

func TestTransfer_RejectedBeforeEitherLeg(t *testing.T) {
	tests := []struct {
		name string
		req  func(a, b string) TransferRequest
		want error
	}{
		{name: "Insufficient funds", req: func(a, b string) TransferRequest {
			return TransferRequest{FromID: a, ToID: b, Amount: "100.01"}
		}, want: ledgererror.ErrInsufficientBalance},
		{name: "Bad amount", req: func(a, b string) TransferRequest {
			return TransferRequest{FromID: a, ToID: b, Amount: "-3"}
		}, want: ledgererror.ErrInvalidAmount},
		{name: "Missing source", req: func(_, b string) TransferRequest {
			return TransferRequest{ToID: b, Amount: "1"}
		}, want: ledgererror.ErrMissingSource},
		{name: "Missing destination", req: func(a, _ string) TransferRequest {
			return TransferRequest{FromID: a, Amount: "1"}
		}, want: ledgererror.ErrMissingSource},
		{name: "Same source through a routing id", req: func(a, _ string) TransferRequest {
			return TransferRequest{FromID: a, ToID: a + "@gpay", Amount: "1"}
		}, want: ledgererror.ErrSameSource},
		{name: "Unknown destination", req: func(a, _ string) TransferRequest {
			return TransferRequest{FromID: a, ToID: "ghost", Amount: "1"}
		}, want: ledgererror.ErrSourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			a := f.addSource(t, "a", 100)
			b := f.addSource(t, "b", 0)
			inserts := f.mem.Calls(store.OpInsert, store.CollectionTransactions)

			_, err := NewTransferCoordinator(f.ledger).Transfer(f.ctx, tt.req(a, b))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, inserts, f.mem.Calls(store.OpInsert, store.CollectionTransactions))
			f.assertBalance(t, a, "100")
			f.assertBalance(t, b, "0")
		})
	}
}

func TestTransfer_FirstLegFailureLeavesBothSources(t *testing.T) {
	f := newFixture(t, true)
	a := f.addSource(t, "a", 100)
	b := f.addSource(t, "b", 0)
	f.mem.FailOn(store.OpInsert, store.CollectionTransactions, errBoom)

	_, err := NewTransferCoordinator(f.ledger).Transfer(f.ctx, TransferRequest{FromID: a, ToID: b, Amount: "40"})
	assert.ErrorIs(t, err, ledgererror.ErrTransactionFailed)
	assert.NotErrorIs(t, err, ledgererror.ErrPartialTransfer)

	f.mem.ClearFailures()
	f.assertBalance(t, a, "100")
	f.assertBalance(t, b, "0")
}

func TestTransfer_SecondLegFailureKeepsFirstLeg(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		a := f.addSource(t, "a", 100)
		b := f.addSource(t, "b", 0)
		f.mem.FailAfter(store.OpInsert, store.CollectionTransactions, 1, errBoom)

		res, err := NewTransferCoordinator(f.ledger).Transfer(f.ctx, TransferRequest{FromID: a, ToID: b, Amount: "40"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledgererror.ErrPartialTransfer)
		assert.ErrorIs(t, err, ledgererror.ErrTransactionFailed)

		var terr *ledgererror.TransferError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, res.Out.ID, terr.CommittedLeg)
		assert.NotEmpty(t, terr.CommittedLeg)

		f.mem.ClearFailures()
		f.assertBalance(t, a, "60")
		f.assertBalance(t, b, "0")

		out, err := f.ledger.Transaction(f.ctx, terr.CommittedLeg)
		require.NoError(t, err)
		assert.Equal(t, models.DirectionOut, out.Direction)

		msg, _ := f.notifier.Last()
		assert.Equal(t, notify.KindError, msg.Kind)
		assert.Equal(t, "Transfer only partially completed, please retry the remaining leg", msg.Message)

		rep, err := f.ledger.Reconcile(f.ctx, a, false)
		require.NoError(t, err)
		assert.True(t, rep.InSync(), "the committed leg is consistent with its source")
	})
}
