package service

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

const (
	opMarkReturned = "mark_returned"
	opSetDueDate   = "set_due_date"
)

// MarkReturned closes an open loan and gives its copy back to the book.
// A second call fails with ErrAlreadyReturned and changes nothing.
func (s *Service) MarkReturned(ctx context.Context, ident model.Identity, loanID string) (loan model.Loan, err error) {
	defer s.observe(opMarkReturned, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return model.Loan{}, err
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if cur.SchoolID != ident.SchoolID() {
			return errs.ErrLoanNotFound
		}
		if !cur.Open() {
			return errs.ErrAlreadyReturned
		}

		book, err := tx.GetBook(ctx, cur.BookID)
		if err != nil {
			return err
		}
		loan, err = tx.MarkLoanReturned(ctx, cur.ID)
		if err != nil {
			return err
		}
		book.Available++
		_, err = tx.UpdateBook(ctx, book)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Debug("loan returned", zap.String("loan", loan.ID), zap.String("book", loan.BookID))
	s.publish(ctx, kafka.LoanEvent{
		EventType: kafka.EventLoanReturned,
		SchoolID:  loan.SchoolID,
		UserID:    loan.UserID,
		BookID:    loan.BookID,
		LoanID:    loan.ID,
		ActorID:   ident.UserID,
	})
	return loan, nil
}

// SetDueDate sets the due date of an open loan; nil clears it.
func (s *Service) SetDueDate(ctx context.Context, ident model.Identity, loanID string, due *time.Time) (loan model.Loan, err error) {
	defer s.observe(opSetDueDate, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return model.Loan{}, err
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if cur.SchoolID != ident.SchoolID() {
			return errs.ErrLoanNotFound
		}
		if !cur.Open() {
			return errs.ErrAlreadyReturned
		}
		if due != nil && truncateDay(*due).Before(truncateDay(cur.StartDate)) {
			return errs.NewValidation("dueDate", "must not precede the start date")
		}
		loan, err = tx.SetLoanDueDate(ctx, cur.ID, due)
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// ListLoans returns the school's loans for staff and the caller's own loans
// for users.
func (s *Service) ListLoans(ctx context.Context, ident model.Identity, onlyOpen bool) ([]model.Loan, error) {
	if err := requireMember(ident); err != nil {
		return nil, err
	}
	filter := model.LoanFilter{SchoolID: ident.SchoolID(), OnlyOpen: onlyOpen}
	if !ident.Is(model.RoleStaff) {
		filter.UserID = ident.UserID
	}
	return s.repo.ListLoans(ctx, filter)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
