package service

import (
	"context"
	"strings"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

const (
	opSubmitRequest  = "submit_request"
	opCancelRequest  = "cancel_request"
	opApproveRequest = "approve_request"
	opRejectRequest  = "reject_request"
)

// SubmitRequest records a pending request of the caller for one book. The
// available count is untouched: copies are reserved at approval time.
func (s *Service) SubmitRequest(ctx context.Context, ident model.Identity, bookID string) (req model.Request, err error) {
	defer s.observe(opSubmitRequest, &err)
	if err = requireRole(ident, model.RoleUser); err != nil {
		return model.Request{}, err
	}
	if strings.TrimSpace(bookID) == "" {
		return model.Request{}, errs.NewValidation("bookId", "is required")
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		if book.SchoolID != ident.SchoolID() {
			return errs.ErrBookNotFound
		}
		dup, err := tx.HasPendingRequest(ctx, ident.UserID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return errs.ErrDuplicateRequest
		}
		req, err = tx.CreateRequest(ctx, model.Request{
			ID:       s.newID(),
			UserID:   ident.UserID,
			BookID:   bookID,
			SchoolID: ident.SchoolID(),
			Status:   model.StatusPending,
		})
		return err
	})
	if err != nil {
		return model.Request{}, err
	}

	s.log.Debug("request submitted", zap.String("request", req.ID), zap.String("book", bookID))
	s.publish(ctx, kafka.LoanEvent{
		EventType: kafka.EventRequestSubmitted,
		SchoolID:  req.SchoolID,
		UserID:    req.UserID,
		BookID:    req.BookID,
		RequestID: req.ID,
		ActorID:   ident.UserID,
	})
	return req, nil
}

// CancelRequest deletes a pending request of the caller.
func (s *Service) CancelRequest(ctx context.Context, ident model.Identity, requestID string) (err error) {
	defer s.observe(opCancelRequest, &err)
	if err = requireRole(ident, model.RoleUser); err != nil {
		return err
	}

	var req model.Request
	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.SchoolID != ident.SchoolID() {
			return errs.ErrRequestNotFound
		}
		if req.UserID != ident.UserID {
			return errs.ErrPermissionDenied
		}
		if req.Status != model.StatusPending {
			return errs.ErrAlreadyProcessed
		}
		return tx.DeleteRequest(ctx, requestID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, kafka.LoanEvent{
		EventType: kafka.EventRequestCancelled,
		SchoolID:  req.SchoolID,
		UserID:    req.UserID,
		BookID:    req.BookID,
		RequestID: req.ID,
		ActorID:   ident.UserID,
	})
	return nil
}

// ApproveRequest turns a pending request into a loan. The request and the book
// are re-read under lock, so two staff members approving against the last
// copy get exactly one loan between them.
func (s *Service) ApproveRequest(ctx context.Context, ident model.Identity, requestID string) (loan model.Loan, err error) {
	defer s.observe(opApproveRequest, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return model.Loan{}, err
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.SchoolID != ident.SchoolID() {
			return errs.ErrRequestNotFound
		}
		if req.Status != model.StatusPending {
			return errs.ErrAlreadyProcessed
		}

		book, err := tx.GetBook(ctx, req.BookID)
		if err != nil {
			return err
		}
		if book.Available <= 0 {
			return errs.ErrNoCopiesAvailable
		}

		if err := tx.SetRequestStatus(ctx, req.ID, model.StatusApproved); err != nil {
			return err
		}
		book.Available--
		if _, err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}
		loan, err = tx.CreateLoan(ctx, model.Loan{
			ID:       s.newID(),
			UserID:   req.UserID,
			BookID:   req.BookID,
			SchoolID: req.SchoolID,
		})
		return err
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Debug("request approved", zap.String("request", requestID), zap.String("loan", loan.ID))
	s.publish(ctx, kafka.LoanEvent{
		EventType: kafka.EventRequestApproved,
		SchoolID:  loan.SchoolID,
		UserID:    loan.UserID,
		BookID:    loan.BookID,
		RequestID: requestID,
		LoanID:    loan.ID,
		ActorID:   ident.UserID,
	})
	return loan, nil
}

// RejectRequest closes a pending request without touching the book.
func (s *Service) RejectRequest(ctx context.Context, ident model.Identity, requestID string) (err error) {
	defer s.observe(opRejectRequest, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return err
	}

	var req model.Request
	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.SchoolID != ident.SchoolID() {
			return errs.ErrRequestNotFound
		}
		if req.Status != model.StatusPending {
			return errs.ErrAlreadyProcessed
		}
		return tx.SetRequestStatus(ctx, req.ID, model.StatusRejected)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, kafka.LoanEvent{
		EventType: kafka.EventRequestRejected,
		SchoolID:  req.SchoolID,
		UserID:    req.UserID,
		BookID:    req.BookID,
		RequestID: req.ID,
		ActorID:   ident.UserID,
	})
	return nil
}

// ListRequests returns the caller's own requests for users and the pending
// queue of the school for staff.
func (s *Service) ListRequests(ctx context.Context, ident model.Identity) ([]model.Request, error) {
	if err := requireMember(ident); err != nil {
		return nil, err
	}
	filter := model.RequestFilter{SchoolID: ident.SchoolID()}
	if ident.Is(model.RoleStaff) {
		filter.Status = model.StatusPending
	} else {
		filter.UserID = ident.UserID
	}
	return s.repo.ListRequests(ctx, filter)
}
