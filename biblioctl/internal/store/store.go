// Package store keeps the client side view of one school: catalog, cart,
// requests and loans, and the user directory. Mutations are applied locally
// first and rolled back when the server refuses them.
package store

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/client"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
)

// ErrSync is returned when a remote write failed for a reason other than a
// server answer. Local state has been restored and the call may be retried.
var ErrSync = errors.New("could not sync with the library, try again")

type BooksAPI interface {
	ListBooks(ctx context.Context) ([]model.Book, error)
	AddBook(ctx context.Context, in model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, bookID string, in model.BookInput) (model.Book, error)
}

type BoardAPI interface {
	ListRequests(ctx context.Context) ([]model.Request, error)
	SubmitRequest(ctx context.Context, bookID string) (model.Request, error)
	CancelRequest(ctx context.Context, requestID string) error
	ApproveRequest(ctx context.Context, requestID string) (model.Loan, error)
	RejectRequest(ctx context.Context, requestID string) error
	ListLoans(ctx context.Context, onlyOpen bool) ([]model.Loan, error)
	MarkReturned(ctx context.Context, loanID string) (model.Loan, error)
	SetDueDate(ctx context.Context, loanID string, due *time.Time) (model.Loan, error)
}

type UsersAPI interface {
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
}

type SessionAPI interface {
	SetIdentity(userID, schoolID string)
	Me(ctx context.Context) (model.Membership, error)
	RegisterUser(ctx context.Context, in model.RegisterUserRequest) (model.User, error)
}

type Watcher interface {
	Watch(ctx context.Context) (<-chan model.Change, error)
}

// Persister stores opaque JSON blobs keyed by store name.
type Persister interface {
	Load(ctx context.Context, bucket string, v any) (bool, error)
	Save(ctx context.Context, bucket string, v any) error
	Delete(ctx context.Context, bucket string) error
}

// Confirm asks the member to approve a destructive action.
type Confirm func(prompt string) bool

// PerformOptimistic applies a local change, runs the remote write and puts
// the snapshot back if the write fails.
func PerformOptimistic[S any](
	ctx context.Context,
	snapshot func() S,
	apply func(),
	remote func(ctx context.Context) error,
	restore func(S),
) error {
	prev := snapshot()
	apply()
	if err := remote(ctx); err != nil {
		restore(prev)
		return syncError(err)
	}
	return nil
}

// syncError keeps server answers as they are and turns transport failures
// into ErrSync.
func syncError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) || errors.Is(err, client.ErrNoSession) {
		return err
	}
	return errors.Wrap(ErrSync, err.Error())
}

// watch refreshes on every matching change until ctx is done or the stream
// ends. Refreshing is idempotent, so redelivered changes are harmless.
func watch(
	ctx context.Context,
	w Watcher,
	match func(model.Collection) bool,
	refresh func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	if err := refresh(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if !match(change.Collection) {
				continue
			}
			if err := refresh(ctx); err != nil {
				return err
			}
		}
	}
}
