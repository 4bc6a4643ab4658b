package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

// syntheticLoanPrefix marks a loan shown before the server confirmed it.
const syntheticLoanPrefix = "pending:"

type boardState struct {
	requests []model.Request
	loans    []model.Loan
}

// Board holds the requests and loans visible to the member.
type Board struct {
	api  BoardAPI
	cart *Cart
	log  *zap.Logger
	now  func() time.Time

	mu       sync.RWMutex
	requests []model.Request
	loans    []model.Loan
}

// NewBoard builds the board. cart may be nil for staff.
func NewBoard(api BoardAPI, cart *Cart, log *zap.Logger) *Board {
	return &Board{
		api:  api,
		cart: cart,
		log:  log.Named("board"),
		now:  time.Now,
	}
}

func (b *Board) Refresh(ctx context.Context) error {
	requests, err := b.api.ListRequests(ctx)
	if err != nil {
		return syncError(err)
	}
	loans, err := b.api.ListLoans(ctx, false)
	if err != nil {
		return syncError(err)
	}
	b.mu.Lock()
	b.requests, b.loans = requests, loans
	b.mu.Unlock()
	return nil
}

func (b *Board) Requests() []model.Request {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.requests)
}

func (b *Board) Loans() []model.Loan {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneLoans(b.loans)
}

// UserIDs lists every member referenced by the board, in order of first use.
func (b *Board) UserIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, r := range b.requests {
		add(r.UserID)
	}
	for _, l := range b.loans {
		add(l.UserID)
	}
	return ids
}

// SubmitRequest asks for the book and takes it out of the cart. On failure
// the cart stays as it was.
func (b *Board) SubmitRequest(ctx context.Context, bookID string) (model.Request, error) {
	req, err := b.api.SubmitRequest(ctx, bookID)
	if err != nil {
		b.log.Error("submit request", zap.String("bookId", bookID), zap.Error(err))
		return model.Request{}, syncError(err)
	}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.cart != nil {
		if _, err := b.cart.Remove(ctx, bookID); err != nil {
			b.log.Warn("remove from cart", zap.String("bookId", bookID), zap.Error(err))
		}
	}
	return req, nil
}

func (b *Board) CancelRequest(ctx context.Context, requestID string) error {
	err := b.dropRequest(ctx, requestID, func(ctx context.Context) error {
		return b.api.CancelRequest(ctx, requestID)
	})
	if err != nil {
		b.log.Warn("cancel request", zap.String("requestId", requestID), zap.Error(err))
	}
	return err
}

func (b *Board) RejectRequest(ctx context.Context, requestID string) error {
	err := b.dropRequest(ctx, requestID, func(ctx context.Context) error {
		return b.api.RejectRequest(ctx, requestID)
	})
	if err != nil {
		b.log.Warn("reject request", zap.String("requestId", requestID), zap.Error(err))
	}
	return err
}

// ApproveRequest moves the request to the loans right away. The placeholder
// loan is replaced by the one the server created.
func (b *Board) ApproveRequest(ctx context.Context, requestID string) (model.Loan, error) {
	var loan model.Loan
	err := PerformOptimistic(ctx,
		b.snapshot,
		func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			i := b.requestIndex(requestID)
			if i < 0 {
				return
			}
			req := b.requests[i]
			b.requests = slices.Delete(b.requests, i, i+1)
			b.loans = append(b.loans, model.Loan{
				ID:        syntheticLoanPrefix + req.ID,
				UserID:    req.UserID,
				BookID:    req.BookID,
				SchoolID:  req.SchoolID,
				StartDate: b.now(),
			})
		},
		func(ctx context.Context) error {
			var err error
			loan, err = b.api.ApproveRequest(ctx, requestID)
			return err
		},
		b.restore,
	)
	if err != nil {
		b.log.Warn("approve request", zap.String("requestId", requestID), zap.Error(err))
		return model.Loan{}, err
	}

	b.mu.Lock()
	if i := b.loanIndex(syntheticLoanPrefix + requestID); i >= 0 {
		b.loans[i] = loan
	} else if b.loanIndex(loan.ID) < 0 {
		b.loans = append(b.loans, loan)
	}
	b.mu.Unlock()
	return loan, nil
}

func (b *Board) MarkReturned(ctx context.Context, loanID string) (model.Loan, error) {
	return b.patchLoan(ctx, loanID,
		func(l *model.Loan) {
			now := b.now()
			l.ReturnedAt = &now
		},
		func(ctx context.Context) (model.Loan, error) {
			return b.api.MarkReturned(ctx, loanID)
		},
	)
}

// SetDueDate sets the due date of an open loan; nil clears it.
func (b *Board) SetDueDate(ctx context.Context, loanID string, due *time.Time) (model.Loan, error) {
	return b.patchLoan(ctx, loanID,
		func(l *model.Loan) {
			if due == nil {
				l.DueDate = nil
				return
			}
			d := *due
			l.DueDate = &d
		},
		func(ctx context.Context) (model.Loan, error) {
			return b.api.SetDueDate(ctx, loanID, due)
		},
	)
}

// Watch keeps requests and loans current until ctx is done.
func (b *Board) Watch(ctx context.Context, w Watcher) error {
	return watch(ctx, w, func(col model.Collection) bool {
		return col == model.CollectionRequests || col == model.CollectionLoans
	}, b.Refresh)
}

func (b *Board) dropRequest(ctx context.Context, requestID string, remote func(ctx context.Context) error) error {
	return PerformOptimistic(ctx,
		b.snapshot,
		func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if i := b.requestIndex(requestID); i >= 0 {
				b.requests = slices.Delete(b.requests, i, i+1)
			}
		},
		remote,
		b.restore,
	)
}

func (b *Board) patchLoan(
	ctx context.Context,
	loanID string,
	patch func(l *model.Loan),
	remote func(ctx context.Context) (model.Loan, error),
) (model.Loan, error) {
	var loan model.Loan
	err := PerformOptimistic(ctx,
		b.snapshot,
		func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if i := b.loanIndex(loanID); i >= 0 {
				patch(&b.loans[i])
			}
		},
		func(ctx context.Context) error {
			var err error
			loan, err = remote(ctx)
			return err
		},
		b.restore,
	)
	if err != nil {
		b.log.Warn("update loan", zap.String("loanId", loanID), zap.Error(err))
		return model.Loan{}, err
	}
	b.mu.Lock()
	if i := b.loanIndex(loanID); i >= 0 {
		b.loans[i] = loan
	}
	b.mu.Unlock()
	return loan, nil
}

func (b *Board) snapshot() boardState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return boardState{
		requests: slices.Clone(b.requests),
		loans:    cloneLoans(b.loans),
	}
}

func (b *Board) restore(s boardState) {
	b.mu.Lock()
	b.requests, b.loans = s.requests, s.loans
	b.mu.Unlock()
}

func (b *Board) requestIndex(requestID string) int {
	return slices.IndexFunc(b.requests, func(r model.Request) bool { return r.ID == requestID })
}

func (b *Board) loanIndex(loanID string) int {
	return slices.IndexFunc(b.loans, func(l model.Loan) bool { return l.ID == loanID })
}

func cloneLoans(loans []model.Loan) []model.Loan {
	if loans == nil {
		return nil
	}
	out := make([]model.Loan, len(loans))
	for i, l := range loans {
		if l.DueDate != nil {
			d := *l.DueDate
			l.DueDate = &d
		}
		if l.ReturnedAt != nil {
			r := *l.ReturnedAt
			l.ReturnedAt = &r
		}
		out[i] = l
	}
	return out
}
