// Package memory provides an in-memory implementation of the biblio
// repository used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/model"
)

var _ repository.Repository = (*Store)(nil)

const subscriberBuffer = 64

type state struct {
	books       map[string]model.Book
	requests    map[string]model.Request
	loans       map[string]model.Loan
	users       map[string]model.User
	memberships map[string]model.Membership
}

func newState() state {
	return state{
		books:       make(map[string]model.Book),
		requests:    make(map[string]model.Request),
		loans:       make(map[string]model.Loan),
		users:       make(map[string]model.User),
		memberships: make(map[string]model.Membership),
	}
}

func (s state) clone() state {
	c := state{
		books:       make(map[string]model.Book, len(s.books)),
		requests:    make(map[string]model.Request, len(s.requests)),
		loans:       make(map[string]model.Loan, len(s.loans)),
		users:       s.users,
		memberships: s.memberships,
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = cloneLoan(v)
	}
	return c
}

func cloneLoan(l model.Loan) model.Loan {
	if l.DueDate != nil {
		d := *l.DueDate
		l.DueDate = &d
	}
	if l.ReturnedAt != nil {
		r := *l.ReturnedAt
		l.ReturnedAt = &r
	}
	return l
}

func membershipKey(userID, schoolID string) string {
	return userID + "/" + schoolID
}

type subscriber struct {
	schoolID string
	ch       chan model.Change
}

// Store keeps all documents in maps. Transactions run one at a time against
// a copy of the state that replaces the live state only on success.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time

	subMu  sync.Mutex
	nextID int
	subs   map[int]subscriber
}

type Option func(s *Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		subs:  make(map[int]subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	changes, err := s.commit(ctx, fn)
	if err != nil {
		return err
	}
	s.publish(changes)
	return nil
}

// commit runs fn on a copy of the state and swaps it in when fn succeeds.
func (s *Store) commit(ctx context.Context, fn func(tx repository.Tx) error) ([]model.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx := &transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	s.state = tx.state
	return tx.changes, nil
}

func (s *Store) ListBooks(_ context.Context, schoolID string) ([]model.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Book, 0)
	for _, b := range s.state.books {
		if b.SchoolID == schoolID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListRequests(_ context.Context, filter model.RequestFilter) ([]model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Request, 0)
	for _, r := range s.state.requests {
		if r.SchoolID != filter.SchoolID {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ListLoans(_ context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Loan, 0)
	for _, l := range s.state.loans {
		if l.SchoolID != filter.SchoolID {
			continue
		}
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.BookID != "" && l.BookID != filter.BookID {
			continue
		}
		if filter.OnlyOpen && !l.Open() {
			continue
		}
		out = append(out, cloneLoan(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetUsers(_ context.Context, ids []string) ([]model.User, error) {
	if len(ids) > repository.MaxBatchSize {
		return nil, errs.ErrBatchTooLarge
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.state.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) GetMembership(_ context.Context, userID, schoolID string) (model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.memberships[membershipKey(userID, schoolID)]
	if !ok {
		return model.Membership{}, errs.ErrMembershipAbsent
	}
	return m, nil
}

func (s *Store) CreateUser(_ context.Context, user model.User, membership model.Membership) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	if existing, ok := s.state.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	s.state.users[user.ID] = user
	key := membershipKey(membership.UserID, membership.SchoolID)
	if _, ok := s.state.memberships[key]; !ok {
		membership.CreatedAt = now
		s.state.memberships[key] = membership
	}
	return user, nil
}

// PutMembership provisions a membership directly, e.g. a staff seat.
func (s *Store) PutMembership(_ context.Context, m model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.nowFn()
	}
	s.state.memberships[membershipKey(m.UserID, m.SchoolID)] = m
	return nil
}

func (s *Store) Subscribe(ctx context.Context, schoolID string) (<-chan model.Change, error) {
	ch := make(chan model.Change, subscriberBuffer)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscriber{schoolID: schoolID, ch: ch}
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch, nil
}

// publish never blocks a writer: a full subscriber misses the notification,
// which is fine because any later one makes it refetch everything.
func (s *Store) publish(changes []model.Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		for _, c := range changes {
			if c.SchoolID != sub.schoolID {
				continue
			}
			select {
			case sub.ch <- c:
			default:
			}
		}
	}
}
