package service

import (
	"context"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/Astemirdum/biblio-service/pkg/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, event kafka.LoanEvent) error
}

type MetadataLookup interface {
	Lookup(ctx context.Context, isbn string) (model.BookMetadata, error)
}

// Service is the loan/request engine. It is the only writer of
// Book.available, Request.status and Loan fields; every such write happens
// inside a repository transaction.
type Service struct {
	log       *zap.Logger
	repo      repository.Repository
	validator *validate.CustomValidator
	publisher Publisher
	lookup    MetadataLookup
	metrics   *Metrics
	newID     func() string
	now       func() time.Time
}

type Option func(s *Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetadataLookup(l MetadataLookup) Option {
	return func(s *Service) {
		s.lookup = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo repository.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log.Named("engine"),
		repo:      repo,
		validator: validate.NewCustomValidator(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireMember(ident model.Identity) error {
	if ident.UserID == "" {
		return errs.ErrPermissionDenied
	}
	if ident.SchoolID() == "" {
		return errs.ErrNoSchool
	}
	return nil
}

func requireRole(ident model.Identity, role model.Role) error {
	if err := requireMember(ident); err != nil {
		return err
	}
	if !ident.Is(role) {
		return errs.ErrPermissionDenied
	}
	return nil
}

func (s *Service) observe(op string, errp *error) {
	err := *errp
	s.metrics.observe(op, err)
	if err != nil {
		s.log.Warn(op, zap.Error(err))
	}
}

// publish runs after commit; a lost event never undoes a transition.
func (s *Service) publish(ctx context.Context, event kafka.LoanEvent) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("publish", zap.String("type", string(event.EventType)), zap.Error(err))
	}
}
