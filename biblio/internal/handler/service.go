package handler

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/service"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BiblioService interface {
	ListBooks(ctx context.Context, ident model.Identity) ([]model.Book, error)
	AddBook(ctx context.Context, ident model.Identity, in model.BookInput) (model.Book, error)
	UpdateBook(ctx context.Context, ident model.Identity, bookID string, in model.BookInput) (model.Book, error)
	LookupISBN(ctx context.Context, ident model.Identity, isbn string) (model.BookMetadata, error)

	ListRequests(ctx context.Context, ident model.Identity) ([]model.Request, error)
	SubmitRequest(ctx context.Context, ident model.Identity, bookID string) (model.Request, error)
	CancelRequest(ctx context.Context, ident model.Identity, requestID string) error
	ApproveRequest(ctx context.Context, ident model.Identity, requestID string) (model.Loan, error)
	RejectRequest(ctx context.Context, ident model.Identity, requestID string) error

	ListLoans(ctx context.Context, ident model.Identity, onlyOpen bool) ([]model.Loan, error)
	MarkReturned(ctx context.Context, ident model.Identity, loanID string) (model.Loan, error)
	SetDueDate(ctx context.Context, ident model.Identity, loanID string, due *time.Time) (model.Loan, error)

	GetUsers(ctx context.Context, ident model.Identity, ids []string) ([]model.User, error)
	Membership(ctx context.Context, userID, schoolID string) (model.Identity, error)
	RegisterUser(ctx context.Context, userID, schoolID string, in model.RegisterUserRequest) (model.User, error)
	Subscribe(ctx context.Context, ident model.Identity) (<-chan model.Change, error)
}

type StatsService interface {
	SaveEvent(ctx context.Context, event kafka.LoanEvent) error
	GetStats(ctx context.Context, ident model.Identity) (model.SchoolStats, error)
}

var (
	_ BiblioService = (*service.Service)(nil)
	_ StatsService  = (*service.StatsService)(nil)
)
