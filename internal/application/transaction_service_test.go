package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
	"github.com/finwise/ledger-api/internal/infrastructure/memory"
)

type ledgerFixture struct {
	store    *memory.Store
	accounts *AccountService
	txs      *TransactionService
}

func newLedgerFixture() *ledgerFixture {
	store := memory.NewStore()
	return &ledgerFixture{
		store:    store,
		accounts: NewAccountService(memory.NewAccountRepository(store), nil),
		txs:      NewTransactionService(memory.NewTransactionRepository(store), nil, nil, ""),
	}
}

func (f *ledgerFixture) account(t *testing.T, owner, currency string) *entity.Account {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), owner, "Checking", currency)
	require.NoError(t, err)
	return a
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestPostMovesBalance(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	salary, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "125.50"), Category: "salary"})
	require.NoError(t, err)
	assert.False(t, salary.CreatedAt.IsZero(), "repository stamps created_at")
	assert.False(t, salary.OccurredAt.IsZero(), "occurred_at defaults to now")

	_, err = f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "-40.00"), Category: "groceries"})
	require.NoError(t, err)

	got, err := f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec(t, "85.50")), "balance is %s, want 85.50", got.Balance)

	items, next, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, items, 2)
	assert.Equal(t, "groceries", items[0].Category, "most recent first")
	assert.Equal(t, "salary", items[1].Category)
}

func TestPostRejectsBadAmounts(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	_, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: decimal.Zero, Category: "noop"})
	assert.ErrorIs(t, err, ErrInvalidAmount, "zero amount")

	huge := decimal.New(1, 13) // 10^13, over the posting bound
	_, err = f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: huge, Category: "windfall"})
	assert.ErrorIs(t, err, ErrInvalidAmount, "oversized amount")

	_, err = f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: huge.Neg(), Category: "disaster"})
	assert.ErrorIs(t, err, ErrInvalidAmount, "oversized negative amount")

	// the bound itself is allowed
	_, err = f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: decimal.New(1, 12), Category: "edge"})
	assert.NoError(t, err)
}

func TestPostRejectsSubCentPrecision(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	// finer than the storage scale: would round (0.005 -> 0.01) or
	// collapse to zero (0.004 -> 0.00) once persisted
	for _, s := range []string{"0.004", "0.005", "-10.001", "0.001"} {
		_, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, s), Category: "dust"})
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", s)
	}

	// trailing zeros beyond two places are still whole cents
	posted, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "1.500"), Category: "ok"})
	require.NoError(t, err)
	assert.True(t, posted.Amount.Equal(dec(t, "1.50")))

	got, err := f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec(t, "1.50")), "rejected postings never touch the balance")
}

func TestPostOwnershipIsolation(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	_, err := f.txs.Post(ctx, "owner-2", a.ID, PostInput{Amount: dec(t, "10.00"), Category: "theft"})
	assert.ErrorIs(t, err, ErrNotFound, "posting to someone else's account looks like a missing account")

	posted, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "10.00"), Category: "fees"})
	require.NoError(t, err)

	_, err = f.txs.Get(ctx, "owner-2", posted.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.txs.Reverse(ctx, "owner-2", posted.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, _, err := f.txs.List(ctx, "owner-2", a.ID, repository.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "cross-owner listing returns nothing")
}

func TestReverse(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	orig, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "42.75"), Category: "refundable"})
	require.NoError(t, err)

	rev, err := f.txs.Reverse(ctx, "owner-1", orig.ID)
	require.NoError(t, err)
	assert.True(t, rev.Amount.Equal(dec(t, "-42.75")), "reversal negates the original amount")
	assert.Equal(t, orig.ID, rev.ReversalOf)
	assert.Equal(t, orig.Category, rev.Category)
	assert.True(t, rev.IsReversal())

	got, err := f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.Zero), "balance returns to zero after reversal")

	// original row is untouched
	still, err := f.txs.Get(ctx, "owner-1", orig.ID)
	require.NoError(t, err)
	assert.True(t, still.Amount.Equal(orig.Amount))
	assert.Empty(t, still.ReversalOf)

	// second reversal is refused, balance stays put
	_, err = f.txs.Reverse(ctx, "owner-1", orig.ID)
	assert.ErrorIs(t, err, ErrAlreadyReversed)
	got, err = f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.Zero))
}

func TestReverseMissingTransaction(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.txs.Reverse(context.Background(), "owner-1", "no-such-tx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPagination(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{
			Amount:     dec(t, "1.00"),
			Category:   fmt.Sprintf("cat-%02d", i),
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	firstPage, next, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, firstPage, 10)
	require.NotEmpty(t, next)
	assert.Equal(t, "cat-24", firstPage[0].Category, "newest occurred_at first")

	secondPage, next2, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{Limit: 10, Cursor: next})
	require.NoError(t, err)
	require.Len(t, secondPage, 10)
	require.NotEmpty(t, next2)
	assert.Equal(t, "cat-14", secondPage[0].Category, "second page resumes where the first ended")

	lastPage, next3, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{Limit: 10, Cursor: next2})
	require.NoError(t, err)
	assert.Len(t, lastPage, 5)
	assert.Empty(t, next3, "no cursor past the final page")

	// no overlaps or gaps across pages
	seen := make(map[string]bool)
	for _, page := range [][]entity.Transaction{firstPage, secondPage, lastPage} {
		for _, tx := range page {
			assert.False(t, seen[tx.ID], "transaction %s appeared twice", tx.ID)
			seen[tx.ID] = true
		}
	}
	assert.Len(t, seen, 25)

	// a limit above the 100-row cap clamps to the cap, it does not
	// shrink the page to the default
	all, next4, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, all, 25)
	assert.Empty(t, next4)
}

func TestListTimeWindow(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{
			Amount:     dec(t, "1.00"),
			Category:   fmt.Sprintf("day-%d", i),
			OccurredAt: base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	items, _, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{
		From: base.AddDate(0, 0, 1),
		To:   base.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "day-3", items[0].Category)
	assert.Equal(t, "day-1", items[2].Category)
}

func TestListRejectsMalformedCursor(t *testing.T) {
	f := newLedgerFixture()
	a := f.account(t, "owner-1", "USD")

	_, _, err := f.txs.List(context.Background(), "owner-1", a.ID, repository.ListFilter{Cursor: "garbage!!"})
	assert.ErrorIs(t, err, repository.ErrBadCursor)
}

// Concurrent postings against one account must serialize: the final
// balance equals the sum of all accepted amounts regardless of
// interleaving.
func TestConcurrentPostingsKeepBalanceConsistent(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	const workers = 8
	const perWorker = 50

	rng := rand.New(rand.NewSource(1))
	amounts := make([]decimal.Decimal, workers*perWorker)
	want := decimal.Zero
	for i := range amounts {
		cents := rng.Intn(20001) - 10000 // -100.00 .. 100.00
		if cents == 0 {
			cents = 1
		}
		amounts[i] = decimal.New(int64(cents), -2)
		want = want.Add(amounts[i])
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(amounts))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(batch []decimal.Decimal) {
			defer wg.Done()
			for _, amt := range batch {
				if _, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: amt, Category: "stress"}); err != nil {
					errs <- err
				}
			}
		}(amounts[w*perWorker : (w+1)*perWorker])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("posting failed: %v", err)
	}

	got, err := f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(want), "balance is %s, want %s", got.Balance, want)

	// every accepted posting is listed exactly once
	total := 0
	cursor := ""
	for {
		items, next, err := f.txs.List(ctx, "owner-1", a.ID, repository.ListFilter{Limit: 100, Cursor: cursor})
		require.NoError(t, err)
		total += len(items)
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Equal(t, workers*perWorker, total)
}

func TestConcurrentReversalsOnlyOneWins(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	a := f.account(t, "owner-1", "USD")

	orig, err := f.txs.Post(ctx, "owner-1", a.ID, PostInput{Amount: dec(t, "10.00"), Category: "once"})
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.txs.Reverse(ctx, "owner-1", orig.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	okCount, reversedCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, ErrAlreadyReversed):
			reversedCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, okCount, "exactly one reversal wins")
	assert.Equal(t, racers-1, reversedCount)

	got, err := f.accounts.Get(ctx, "owner-1", a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.Zero))
}

func TestSearchWithoutIndexIsEmpty(t *testing.T) {
	f := newLedgerFixture()

	hits, err := f.txs.Search(context.Background(), "owner-1", "groceries", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
