package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository/memory"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/stretchr/testify/require"
)

func TestStore_RunInTxRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()
	book := model.Book{ID: "b1", SchoolID: "s1", Title: "t", Quantity: 2, Available: 2}

	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		_, err := tx.CreateBook(ctx, book)
		return err
	}))

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBook(ctx, "b1")
		require.NoError(t, err)
		b.Available = 0
		if _, err := tx.UpdateBook(ctx, b); err != nil {
			return err
		}
		if _, err := tx.CreateLoan(ctx, model.Loan{ID: "l1", BookID: "b1", SchoolID: "s1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	books, err := store.ListBooks(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, []model.Book{book}, books)
	loans, err := store.ListLoans(ctx, model.LoanFilter{SchoolID: "s1"})
	require.NoError(t, err)
	require.Empty(t, loans)
}

func TestStore_Timestamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 9, 12, 8, 30, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))

	var loan model.Loan
	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		req, err := tx.CreateRequest(ctx, model.Request{ID: "r1", UserID: "u", BookID: "b", SchoolID: "s1", Status: model.StatusPending})
		require.NoError(t, err)
		require.Equal(t, now, req.CreatedAt)

		_, err = tx.CreateRequest(ctx, model.Request{ID: "r2", UserID: "u", BookID: "b", SchoolID: "s1", Status: model.StatusPending})
		require.ErrorIs(t, err, errs.ErrDuplicateRequest)

		loan, err = tx.CreateLoan(ctx, model.Loan{ID: "l1", UserID: "u", BookID: "b", SchoolID: "s1"})
		return err
	}))
	require.Equal(t, now, loan.StartDate)
	require.True(t, loan.Open())

	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		n, err := tx.CountActiveLoans(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, 1, n)
		l, err := tx.MarkLoanReturned(ctx, "l1")
		require.NoError(t, err)
		require.Equal(t, now, *l.ReturnedAt)
		return nil
	}))

	open, err := store.ListLoans(ctx, model.LoanFilter{SchoolID: "s1", OnlyOpen: true})
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestStore_SubscribeFiltersSchool(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.NewStore()

	ch, err := store.Subscribe(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CreateBook(ctx, model.Book{ID: "other", SchoolID: "s2"}); err != nil {
			return err
		}
		_, err := tx.CreateBook(ctx, model.Book{ID: "mine", SchoolID: "s1"})
		return err
	}))

	select {
	case c := <-ch:
		require.Equal(t, model.Change{Collection: model.CollectionBooks, ID: "mine", SchoolID: "s1"}, c)
	case <-time.After(time.Second):
		t.Fatal("no change")
	}
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestStore_GetUsersBatchBound(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	_, err := store.GetUsers(context.Background(), make([]string, repository.MaxBatchSize+1))
	require.ErrorIs(t, err, errs.ErrBatchTooLarge)
}

func TestStore_RunInTxPanicReleasesLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewStore()

	require.Panics(t, func() {
		_ = store.RunInTx(ctx, func(tx repository.Tx) error {
			panic("handler bug")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- store.RunInTx(ctx, func(tx repository.Tx) error {
			_, err := tx.CreateBook(ctx, model.Book{ID: "b1", SchoolID: "s1", Title: "t", Quantity: 1, Available: 1})
			return err
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("store stayed locked after a panicking transaction")
	}
	books, err := store.ListBooks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, books, 1)
}
