package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository/memory"
	"github.com/Astemirdum/biblio-service/biblio/internal/service"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const school = "school-1"

var (
	staff = model.Identity{UserID: "staff-1", Membership: model.Membership{UserID: "staff-1", SchoolID: school, Role: model.RoleStaff}}
	alice = model.Identity{UserID: "alice", Membership: model.Membership{UserID: "alice", SchoolID: school, Role: model.RoleUser}}
	bob   = model.Identity{UserID: "bob", Membership: model.Membership{UserID: "bob", SchoolID: school, Role: model.RoleUser}}
)

type recorder struct {
	mu     sync.Mutex
	events []kafka.LoanEvent
}

func (r *recorder) Publish(_ context.Context, e kafka.LoanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []kafka.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kafka.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store *memory.Store
	svc   *service.Service
	pub   *recorder
}

func newFixture(t *testing.T, opts ...service.Option) fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recorder{}
	seq := 0
	var mu sync.Mutex
	opts = append([]service.Option{
		service.WithPublisher(pub),
		service.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}, opts...)
	return fixture{store: store, svc: service.NewService(store, zap.NewNop(), opts...), pub: pub}
}

func (f fixture) addBook(t *testing.T, quantity int) model.Book {
	t.Helper()
	b, err := f.svc.AddBook(context.Background(), staff, model.BookInput{
		Title: "Il barone rampante", Author: "Italo Calvino", ISBN: "978-88-04-66830-5", Quantity: quantity,
	})
	require.NoError(t, err)
	return b
}

func (f fixture) book(t *testing.T, id string) model.Book {
	t.Helper()
	books, err := f.svc.ListBooks(context.Background(), staff)
	require.NoError(t, err)
	for _, b := range books {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("book %s not found", id)
	return model.Book{}
}

// requireConsistent checks available == quantity - open loans for every book.
func (f fixture) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	books, err := f.svc.ListBooks(ctx, staff)
	require.NoError(t, err)
	loans, err := f.svc.ListLoans(ctx, staff, true)
	require.NoError(t, err)
	open := make(map[string]int)
	for _, l := range loans {
		open[l.BookID]++
	}
	for _, b := range books {
		require.GreaterOrEqual(t, b.Available, 0, b.ID)
		require.Equal(t, b.Quantity-open[b.ID], b.Available, b.ID)
	}
}

func TestService_ApproveFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 2)
	require.Equal(t, 2, book.Available)

	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, req.Status)
	require.Equal(t, 2, f.book(t, book.ID).Available)

	loan, err := f.svc.ApproveRequest(ctx, staff, req.ID)
	require.NoError(t, err)
	require.Equal(t, alice.UserID, loan.UserID)
	require.Equal(t, book.ID, loan.BookID)
	require.Nil(t, loan.DueDate)
	require.Nil(t, loan.ReturnedAt)
	require.False(t, loan.StartDate.IsZero())
	require.Equal(t, 1, f.book(t, book.ID).Available)

	mine, err := f.svc.ListRequests(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, model.StatusApproved, mine[0].Status)

	pending, err := f.svc.ListRequests(ctx, staff)
	require.NoError(t, err)
	require.Empty(t, pending)

	f.requireConsistent(t)
	require.Equal(t, []kafka.EventType{kafka.EventRequestSubmitted, kafka.EventRequestApproved}, f.pub.types())
}

func TestService_ApproveWithoutCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)

	r1, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	r2, err := f.svc.SubmitRequest(ctx, bob, book.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveRequest(ctx, staff, r1.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveRequest(ctx, staff, r2.ID)
	require.ErrorIs(t, err, errs.ErrNoCopiesAvailable)

	// nothing of the failed approval was written
	require.Equal(t, 0, f.book(t, book.ID).Available)
	pending, err := f.svc.ListRequests(ctx, staff)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, r2.ID, pending[0].ID)
	loans, err := f.svc.ListLoans(ctx, staff, false)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	f.requireConsistent(t)
}

func TestService_ConcurrentApprovals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)

	r1, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	r2, err := f.svc.SubmitRequest(ctx, bob, book.ID)
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		res   = make([]error, 2)
	)
	for i, id := range []string{r1.ID, r2.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, res[i] = f.svc.ApproveRequest(ctx, staff, id)
		}(i, id)
	}
	close(start)
	wg.Wait()

	ok, noCopies := 0, 0
	for _, err := range res {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrNoCopiesAvailable):
			noCopies++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, noCopies)
	require.Equal(t, 0, f.book(t, book.ID).Available)
	f.requireConsistent(t)
}

func TestService_ApproveTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 3)
	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveRequest(ctx, staff, req.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveRequest(ctx, staff, req.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyProcessed)
	require.ErrorIs(t, f.svc.RejectRequest(ctx, staff, req.ID), errs.ErrAlreadyProcessed)
	require.Equal(t, 2, f.book(t, book.ID).Available)
}

func TestService_ReturnFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t)
	book := f.addBook(t, 1)
	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	loan, err := f.svc.ApproveRequest(ctx, staff, req.ID)
	require.NoError(t, err)
	require.Equal(t, 0, f.book(t, book.ID).Available)

	returned, err := f.svc.MarkReturned(ctx, staff, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	require.Equal(t, 1, f.book(t, book.ID).Available)

	_, err = f.svc.MarkReturned(ctx, staff, loan.ID)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
	require.Equal(t, 1, f.book(t, book.ID).Available)

	_, err = f.svc.SetDueDate(ctx, staff, loan.ID, &now)
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)

	open, err := f.svc.ListLoans(ctx, staff, true)
	require.NoError(t, err)
	require.Empty(t, open)
	f.requireConsistent(t)
	require.Contains(t, f.pub.types(), kafka.EventLoanReturned)
}

func TestService_UpdateBookQuantityGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 3)
	for _, u := range []model.Identity{alice, bob} {
		req, err := f.svc.SubmitRequest(ctx, u, book.ID)
		require.NoError(t, err)
		_, err = f.svc.ApproveRequest(ctx, staff, req.ID)
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.book(t, book.ID).Available)

	in := model.BookInput{Title: book.Title, Author: book.Author, ISBN: book.ISBN}
	tests := []struct {
		name      string
		quantity  int
		wantErr   error
		available int
	}{
		{name: "below active loans", quantity: 1, wantErr: errs.ErrValidation, available: 1},
		{name: "equal to active loans", quantity: 2, available: 0},
		{name: "grow", quantity: 5, available: 3},
	}
	for _, tt := range tests {
		in.Quantity = tt.quantity
		updated, err := f.svc.UpdateBook(ctx, staff, book.ID, in)
		if tt.wantErr != nil {
			require.ErrorIs(t, err, tt.wantErr, tt.name)
			var verr *errs.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "quantity", verr.Field)
		} else {
			require.NoError(t, err, tt.name)
			require.Equal(t, tt.quantity, updated.Quantity, tt.name)
		}
		require.Equal(t, tt.available, f.book(t, book.ID).Available, tt.name)
		f.requireConsistent(t)
	}
}

func TestService_Permissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)
	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	noSchool := model.Identity{UserID: "carol"}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{name: "user approves", call: func() error { _, err := f.svc.ApproveRequest(ctx, alice, req.ID); return err }, want: errs.ErrPermissionDenied},
		{name: "user rejects", call: func() error { return f.svc.RejectRequest(ctx, alice, req.ID) }, want: errs.ErrPermissionDenied},
		{name: "user adds book", call: func() error {
			_, err := f.svc.AddBook(ctx, alice, model.BookInput{Title: "t", Author: "a", ISBN: "1"})
			return err
		}, want: errs.ErrPermissionDenied},
		{name: "staff submits", call: func() error { _, err := f.svc.SubmitRequest(ctx, staff, book.ID); return err }, want: errs.ErrPermissionDenied},
		{name: "other user cancels", call: func() error { return f.svc.CancelRequest(ctx, bob, req.ID) }, want: errs.ErrPermissionDenied},
		{name: "user marks returned", call: func() error { _, err := f.svc.MarkReturned(ctx, alice, "x"); return err }, want: errs.ErrPermissionDenied},
		{name: "no school", call: func() error { _, err := f.svc.SubmitRequest(ctx, noSchool, book.ID); return err }, want: errs.ErrNoSchool},
		{name: "no school list", call: func() error { _, err := f.svc.ListBooks(ctx, noSchool); return err }, want: errs.ErrNoSchool},
	}
	for _, tt := range tests {
		require.ErrorIs(t, tt.call(), tt.want, tt.name)
	}
	require.Equal(t, 1, f.book(t, book.ID).Available)
}

func TestService_SubmitAndCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)

	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitRequest(ctx, alice, book.ID)
	require.ErrorIs(t, err, errs.ErrDuplicateRequest)

	_, err = f.svc.SubmitRequest(ctx, alice, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.svc.CancelRequest(ctx, alice, req.ID))
	require.ErrorIs(t, f.svc.CancelRequest(ctx, alice, req.ID), errs.ErrNotFound)

	// a cancelled request frees the slot
	_, err = f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.book(t, book.ID).Available)
}

func TestService_RejectKeepsBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)
	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RejectRequest(ctx, staff, req.ID))
	require.Equal(t, 1, f.book(t, book.ID).Available)
	require.ErrorIs(t, f.svc.CancelRequest(ctx, alice, req.ID), errs.ErrAlreadyProcessed)

	mine, err := f.svc.ListRequests(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, model.StatusRejected, mine[0].Status)
}

func TestService_SetDueDate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, 1)
	req, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	loan, err := f.svc.ApproveRequest(ctx, staff, req.ID)
	require.NoError(t, err)

	due := loan.StartDate.AddDate(0, 0, 14)
	updated, err := f.svc.SetDueDate(ctx, staff, loan.ID, &due)
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	require.True(t, due.Equal(*updated.DueDate))

	past := loan.StartDate.AddDate(0, 0, -2)
	_, err = f.svc.SetDueDate(ctx, staff, loan.ID, &past)
	require.ErrorIs(t, err, errs.ErrValidation)

	cleared, err := f.svc.SetDueDate(ctx, staff, loan.ID, nil)
	require.NoError(t, err)
	require.Nil(t, cleared.DueDate)
}

func TestService_AddBookValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name  string
		in    model.BookInput
		field string
	}{
		{name: "blank title", in: model.BookInput{Title: "  ", Author: "a", ISBN: "1"}, field: "title"},
		{name: "no author", in: model.BookInput{Title: "t", ISBN: "1"}, field: "author"},
		{name: "no isbn", in: model.BookInput{Title: "t", Author: "a"}, field: "isbn"},
		{name: "negative quantity", in: model.BookInput{Title: "t", Author: "a", ISBN: "1", Quantity: -1}, field: "quantity"},
	}
	for _, tt := range tests {
		_, err := f.svc.AddBook(ctx, staff, tt.in)
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr, tt.name)
		require.Equal(t, tt.field, verr.Field, tt.name)
	}
	books, err := f.svc.ListBooks(ctx, staff)
	require.NoError(t, err)
	require.Empty(t, books)

	b := f.addBook(t, 2)
	require.Equal(t, "9788804668305", b.ISBN)
}

func TestService_MembershipAndUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	ident, err := f.svc.Membership(ctx, "dana", school)
	require.NoError(t, err)
	require.Empty(t, ident.SchoolID())

	u, err := f.svc.RegisterUser(ctx, "dana", school, model.RegisterUserRequest{Name: "Dana", Surname: "Rossi", Grade: "3B"})
	require.NoError(t, err)
	require.Equal(t, "dana", u.ID)

	ident, err = f.svc.Membership(ctx, "dana", school)
	require.NoError(t, err)
	require.Equal(t, school, ident.SchoolID())
	require.True(t, ident.Is(model.RoleUser))

	require.NoError(t, f.store.PutMembership(ctx, model.Membership{UserID: "eve", SchoolID: school, Role: model.RoleStaff}))
	_, err = f.svc.RegisterUser(ctx, "eve", school, model.RegisterUserRequest{Name: "Eve", Surname: "Bianchi"})
	require.NoError(t, err)
	ident, err = f.svc.Membership(ctx, "eve", school)
	require.NoError(t, err)
	require.True(t, ident.Is(model.RoleStaff))

	users, err := f.svc.GetUsers(ctx, staff, []string{"dana", "eve", "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 2)

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}
	_, err = f.svc.GetUsers(ctx, staff, ids)
	require.ErrorIs(t, err, errs.ErrBatchTooLarge)
}

func TestService_Subscribe(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)

	changes, err := f.svc.Subscribe(ctx, staff)
	require.NoError(t, err)
	book := f.addBook(t, 1)

	select {
	case c := <-changes:
		require.Equal(t, model.CollectionBooks, c.Collection)
		require.Equal(t, book.ID, c.ID)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

type stubLookup struct{ got string }

func (s *stubLookup) Lookup(_ context.Context, isbn string) (model.BookMetadata, error) {
	s.got = isbn
	return model.BookMetadata{ISBN: isbn, Title: "Marcovaldo", Authors: "Italo Calvino"}, nil
}

func TestService_LookupISBN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	lookup := &stubLookup{}
	f := newFixture(t, service.WithMetadataLookup(lookup))

	meta, err := f.svc.LookupISBN(ctx, staff, " 978-88 04 ")
	require.NoError(t, err)
	require.Equal(t, "9788804", lookup.got)
	require.Equal(t, "Marcovaldo", meta.Title)

	_, err = f.svc.LookupISBN(ctx, staff, " - ")
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.LookupISBN(ctx, alice, "1")
	require.ErrorIs(t, err, errs.ErrPermissionDenied)
}

func TestService_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	f := newFixture(t, service.WithMetrics(service.NewMetrics(reg)))
	book := f.addBook(t, 1)
	_, err := f.svc.SubmitRequest(ctx, alice, book.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitRequest(ctx, alice, book.ID)
	require.Error(t, err)

	require.Equal(t, 3, testutil.CollectAndCount(reg, "biblio_engine_operations_total"))
}
