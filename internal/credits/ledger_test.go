package credits

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/adapter/memory"
	"studio/internal/domain"
	"studio/internal/infra"
)

func newLedger(t *testing.T) (*Ledger, *memory.CreditRepository) {
	t.Helper()
	repo := memory.NewCreditRepository()
	return NewLedger(repo, infra.NopLogger()), repo
}

func TestChargeDeductsAndRecords(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	_, err := ledger.TopUp(ctx, "owner", 10, "seed")
	require.NoError(t, err)

	ok, err := ledger.Charge(ctx, "owner", 6, "3 scenes")
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := ledger.GetBalance(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)

	txs, err := ledger.Transactions(ctx, "owner", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(-6), txs[0].Amount)
	assert.Equal(t, "3 scenes", txs[0].Description)
}

func TestChargeRejectsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	_, err := ledger.TopUp(ctx, "owner", 5, "seed")
	require.NoError(t, err)

	ok, err := ledger.Charge(ctx, "owner", 6, "too much")
	require.NoError(t, err)
	assert.False(t, ok)

	balance, _ := ledger.GetBalance(ctx, "owner")
	assert.Equal(t, int64(5), balance)
	txs, _ := ledger.Transactions(ctx, "owner", 10)
	assert.Len(t, txs, 1)
}

func TestChargeUnknownOwner(t *testing.T) {
	ledger, _ := newLedger(t)
	ok, err := ledger.Charge(context.Background(), "ghost", 1, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err := ledger.GetBalance(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestChargeInvalidAmount(t *testing.T) {
	ledger, _ := newLedger(t)
	for _, cost := range []int64{0, -3} {
		_, err := ledger.Charge(context.Background(), "owner", cost, "x")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	_, err := ledger.TopUp(context.Background(), "owner", 0, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestConcurrentChargesNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	_, err := ledger.TopUp(ctx, "owner", 10, "seed")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Charge(ctx, "owner", 3, "race")
			if err == nil && ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), granted.Load())
	balance, _ := ledger.GetBalance(ctx, "owner")
	assert.Equal(t, int64(1), balance)
}

func TestTransactionsSumToBalance(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t)
	ops := []struct {
		topUp  int64
		charge int64
	}{
		{topUp: 20},
		{charge: 7},
		{charge: 30},
		{topUp: 5},
		{charge: 18},
		{charge: 1},
	}
	for _, op := range ops {
		if op.topUp > 0 {
			_, err := ledger.TopUp(ctx, "owner", op.topUp, "top up")
			require.NoError(t, err)
			continue
		}
		_, err := ledger.Charge(ctx, "owner", op.charge, "charge")
		require.NoError(t, err)
	}

	txs, err := ledger.Transactions(ctx, "owner", 200)
	require.NoError(t, err)
	var sum int64
	for _, tx := range txs {
		sum += tx.Amount
	}
	balance, _ := ledger.GetBalance(ctx, "owner")
	assert.Equal(t, balance, sum)
	assert.GreaterOrEqual(t, balance, int64(0))
}

type failingTxRepo struct {
	*memory.CreditRepository
}

func (failingTxRepo) AppendTransaction(context.Context, *domain.CreditTransaction) error {
	return errors.New("disk full")
}

func TestChargeKeepsDeductionWhenLogFails(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewCreditRepository()
	_, _ = inner.Add(ctx, "owner", 4)
	ledger := NewLedger(failingTxRepo{inner}, infra.NopLogger())

	ok, err := ledger.Charge(ctx, "owner", 4, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	balance, _ := ledger.GetBalance(ctx, "owner")
	assert.Zero(t, balance)
}
