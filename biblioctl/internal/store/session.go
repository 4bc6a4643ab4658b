package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/client"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sessionBucket = "session"

var (
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrNotRegistered = errors.New("no membership in this school, register first")
)

type sessionState struct {
	UserID     string           `json:"userId"`
	SchoolID   string           `json:"schoolId"`
	Membership model.Membership `json:"membership"`
}

// Session remembers who the member is between runs.
type Session struct {
	api     SessionAPI
	persist Persister
	log     *zap.Logger

	mu      sync.RWMutex
	current *sessionState
}

func NewSession(api SessionAPI, persist Persister, log *zap.Logger) *Session {
	return &Session{
		api:     api,
		persist: persist,
		log:     log.Named("session"),
	}
}

// Restore loads the saved session and reports whether there was one.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	var st sessionState
	ok, err := s.persist.Load(ctx, sessionBucket, &st)
	if err != nil || !ok {
		return false, err
	}
	s.api.SetIdentity(st.UserID, st.SchoolID)
	s.mu.Lock()
	s.current = &st
	s.mu.Unlock()
	return true, nil
}

// Login signs the member into the school. A missing membership is created
// from profile when one is given.
func (s *Session) Login(ctx context.Context, userID, schoolID string, profile *model.RegisterUserRequest) (model.Membership, error) {
	s.api.SetIdentity(userID, schoolID)
	m, err := s.api.Me(ctx)
	if client.IsStatus(err, http.StatusNotFound) {
		if profile == nil {
			s.api.SetIdentity("", "")
			return model.Membership{}, ErrNotRegistered
		}
		if _, err = s.api.RegisterUser(ctx, *profile); err == nil {
			m, err = s.api.Me(ctx)
		}
	}
	if err != nil {
		s.api.SetIdentity("", "")
		return model.Membership{}, syncError(err)
	}

	st := sessionState{UserID: userID, SchoolID: schoolID, Membership: m}
	if err := s.persist.Save(ctx, sessionBucket, st); err != nil {
		return model.Membership{}, err
	}
	s.mu.Lock()
	s.current = &st
	s.mu.Unlock()
	s.log.Info("logged in", zap.String("user", userID), zap.String("school", schoolID), zap.String("role", string(m.Role)))
	return m, nil
}

func (s *Session) Membership() (model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.Membership{}, ErrNotLoggedIn
	}
	return s.current.Membership, nil
}

// Logout forgets the session. A user with pending requests has to confirm
// first. It reports whether the session was dropped.
func (s *Session) Logout(ctx context.Context, pending int, confirm Confirm) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false, ErrNotLoggedIn
	}
	if s.current.Membership.Role == model.RoleUser && pending > 0 {
		if !confirm(fmt.Sprintf("You have %d pending requests. Log out anyway?", pending)) {
			return false, nil
		}
	}
	if err := s.persist.Delete(ctx, sessionBucket); err != nil {
		return false, err
	}
	s.api.SetIdentity("", "")
	s.current = nil
	return true, nil
}
