package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/model"
)

// Membership loads the caller's role in the school. A user without a
// membership gets an identity with no school, which every operation refuses.
func (s *Service) Membership(ctx context.Context, userID, schoolID string) (model.Identity, error) {
	if userID == "" {
		return model.Identity{}, errs.ErrPermissionDenied
	}
	if schoolID == "" {
		return model.Identity{UserID: userID}, nil
	}
	m, err := s.repo.GetMembership(ctx, userID, schoolID)
	if errors.Is(err, errs.ErrMembershipAbsent) {
		return model.Identity{UserID: userID}, nil
	}
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{UserID: userID, Membership: m}, nil
}

// RegisterUser stores the caller's profile and enrols them as a user of the
// school. An existing membership, staff included, is left as is.
func (s *Service) RegisterUser(ctx context.Context, userID, schoolID string, in model.RegisterUserRequest) (model.User, error) {
	if userID == "" {
		return model.User{}, errs.ErrPermissionDenied
	}
	if schoolID == "" {
		return model.User{}, errs.ErrNoSchool
	}
	if err := s.validateInput(in); err != nil {
		return model.User{}, err
	}
	return s.repo.CreateUser(ctx, model.User{
		ID:      userID,
		Name:    strings.TrimSpace(in.Name),
		Surname: strings.TrimSpace(in.Surname),
		Grade:   strings.TrimSpace(in.Grade),
		Email:   strings.TrimSpace(in.Email),
	}, model.Membership{
		UserID:   userID,
		SchoolID: schoolID,
		Role:     model.RoleUser,
	})
}

// GetUsers resolves one batch of user ids; larger batches are refused.
func (s *Service) GetUsers(ctx context.Context, ident model.Identity, ids []string) ([]model.User, error) {
	if err := requireMember(ident); err != nil {
		return nil, err
	}
	if len(ids) > repository.MaxBatchSize {
		return nil, errs.ErrBatchTooLarge
	}
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return s.repo.GetUsers(ctx, ids)
}

// Subscribe streams change notifications of the caller's school until ctx is done.
func (s *Service) Subscribe(ctx context.Context, ident model.Identity) (<-chan model.Change, error) {
	if err := requireMember(ident); err != nil {
		return nil, err
	}
	return s.repo.Subscribe(ctx, ident.SchoolID())
}
