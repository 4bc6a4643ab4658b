package repository

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/model"
)

// MaxBatchSize bounds how many ids one batch fetch may match.
const MaxBatchSize = 10

// Repository is the persistence collaborator of the engine.
type Repository interface {
	// RunInTx runs fn in one serializable unit of work. Rows read through tx
	// stay locked until fn returns; a non-nil error from fn discards every write.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	ListBooks(ctx context.Context, schoolID string) ([]model.Book, error)
	ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.Request, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error)
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	GetMembership(ctx context.Context, userID, schoolID string) (model.Membership, error)
	CreateUser(ctx context.Context, user model.User, membership model.Membership) (model.User, error)

	// Subscribe delivers a Change after every committed write in the school
	// until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, schoolID string) (<-chan model.Change, error)
}

// Tx is the transactional view. Reads lock the returned rows; timestamps are
// assigned by the store.
type Tx interface {
	GetBook(ctx context.Context, id string) (model.Book, error)
	GetRequest(ctx context.Context, id string) (model.Request, error)
	GetLoan(ctx context.Context, id string) (model.Loan, error)
	CountActiveLoans(ctx context.Context, bookID string) (int, error)
	HasPendingRequest(ctx context.Context, userID, bookID string) (bool, error)

	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	UpdateBook(ctx context.Context, book model.Book) (model.Book, error)
	CreateRequest(ctx context.Context, req model.Request) (model.Request, error)
	SetRequestStatus(ctx context.Context, id string, status model.RequestStatus) error
	DeleteRequest(ctx context.Context, id string) error
	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	MarkLoanReturned(ctx context.Context, id string) (model.Loan, error)
	SetLoanDueDate(ctx context.Context, id string, due *time.Time) (model.Loan, error)
}
