package memory

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/model"
)

type transaction struct {
	state   state
	changes []model.Change
	now     time.Time
}

var _ repository.Tx = (*transaction)(nil)

func (tx *transaction) record(collection model.Collection, id, schoolID string) {
	tx.changes = append(tx.changes, model.Change{Collection: collection, ID: id, SchoolID: schoolID})
}

func (tx *transaction) GetBook(_ context.Context, id string) (model.Book, error) {
	b, ok := tx.state.books[id]
	if !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	return b, nil
}

func (tx *transaction) GetRequest(_ context.Context, id string) (model.Request, error) {
	r, ok := tx.state.requests[id]
	if !ok {
		return model.Request{}, errs.ErrRequestNotFound
	}
	return r, nil
}

func (tx *transaction) GetLoan(_ context.Context, id string) (model.Loan, error) {
	l, ok := tx.state.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	return cloneLoan(l), nil
}

func (tx *transaction) CountActiveLoans(_ context.Context, bookID string) (int, error) {
	n := 0
	for _, l := range tx.state.loans {
		if l.BookID == bookID && l.Open() {
			n++
		}
	}
	return n, nil
}

func (tx *transaction) HasPendingRequest(_ context.Context, userID, bookID string) (bool, error) {
	for _, r := range tx.state.requests {
		if r.UserID == userID && r.BookID == bookID && r.Status == model.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (tx *transaction) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	tx.state.books[book.ID] = book
	tx.record(model.CollectionBooks, book.ID, book.SchoolID)
	return book, nil
}

func (tx *transaction) UpdateBook(_ context.Context, book model.Book) (model.Book, error) {
	if _, ok := tx.state.books[book.ID]; !ok {
		return model.Book{}, errs.ErrBookNotFound
	}
	tx.state.books[book.ID] = book
	tx.record(model.CollectionBooks, book.ID, book.SchoolID)
	return book, nil
}

func (tx *transaction) CreateRequest(ctx context.Context, req model.Request) (model.Request, error) {
	// mirrors the partial unique index on pending requests
	if req.Status == model.StatusPending {
		if dup, _ := tx.HasPendingRequest(ctx, req.UserID, req.BookID); dup {
			return model.Request{}, errs.ErrDuplicateRequest
		}
	}
	req.CreatedAt = tx.now
	tx.state.requests[req.ID] = req
	tx.record(model.CollectionRequests, req.ID, req.SchoolID)
	return req, nil
}

func (tx *transaction) SetRequestStatus(_ context.Context, id string, status model.RequestStatus) error {
	r, ok := tx.state.requests[id]
	if !ok {
		return errs.ErrRequestNotFound
	}
	r.Status = status
	tx.state.requests[id] = r
	tx.record(model.CollectionRequests, id, r.SchoolID)
	return nil
}

func (tx *transaction) DeleteRequest(_ context.Context, id string) error {
	r, ok := tx.state.requests[id]
	if !ok {
		return errs.ErrRequestNotFound
	}
	delete(tx.state.requests, id)
	tx.record(model.CollectionRequests, id, r.SchoolID)
	return nil
}

func (tx *transaction) CreateLoan(_ context.Context, loan model.Loan) (model.Loan, error) {
	loan.StartDate = tx.now
	loan.ReturnedAt = nil
	tx.state.loans[loan.ID] = loan
	tx.record(model.CollectionLoans, loan.ID, loan.SchoolID)
	return cloneLoan(loan), nil
}

func (tx *transaction) MarkLoanReturned(_ context.Context, id string) (model.Loan, error) {
	l, ok := tx.state.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	now := tx.now
	l.ReturnedAt = &now
	tx.state.loans[id] = l
	tx.record(model.CollectionLoans, id, l.SchoolID)
	return cloneLoan(l), nil
}

func (tx *transaction) SetLoanDueDate(_ context.Context, id string, due *time.Time) (model.Loan, error) {
	l, ok := tx.state.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrLoanNotFound
	}
	if due != nil {
		d := *due
		due = &d
	}
	l.DueDate = due
	tx.state.loans[id] = l
	tx.record(model.CollectionLoans, id, l.SchoolID)
	return cloneLoan(l), nil
}
