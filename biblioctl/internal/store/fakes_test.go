package store

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/client"
	"github.com/Astemirdum/biblio-service/pkg/model"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errNotFound = &client.APIError{Status: http.StatusNotFound, Message: "membership not found"}

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (p *memPersister) Load(_ context.Context, bucket string, v any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.data[bucket]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func (p *memPersister) Save(_ context.Context, bucket string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[bucket] = b
	return nil
}

func (p *memPersister) Delete(_ context.Context, bucket string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, bucket)
	return nil
}

// fakeAPI answers with canned values; err, when set, fails every write.
type fakeAPI struct {
	mu       sync.Mutex
	books    []model.Book
	requests []model.Request
	loans    []model.Loan
	users    map[string]model.User
	err      error

	userBatches [][]string
	me          *model.Membership
	registered  []model.RegisterUserRequest
	userID      string
	schoolID    string
}

func (f *fakeAPI) ListBooks(context.Context) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Book(nil), f.books...), nil
}

func (f *fakeAPI) AddBook(_ context.Context, in model.BookInput) (model.Book, error) {
	if f.err != nil {
		return model.Book{}, f.err
	}
	return model.Book{ID: "new", Title: in.Title, Author: in.Author, ISBN: in.ISBN, Quantity: in.Quantity, Available: in.Quantity}, nil
}

func (f *fakeAPI) UpdateBook(_ context.Context, bookID string, in model.BookInput) (model.Book, error) {
	if f.err != nil {
		return model.Book{}, f.err
	}
	return model.Book{ID: bookID, Title: in.Title, Author: in.Author, ISBN: in.ISBN, Quantity: in.Quantity, Available: in.Quantity - 1}, nil
}

func (f *fakeAPI) ListRequests(context.Context) ([]model.Request, error) {
	return append([]model.Request(nil), f.requests...), nil
}

func (f *fakeAPI) SubmitRequest(_ context.Context, bookID string) (model.Request, error) {
	if f.err != nil {
		return model.Request{}, f.err
	}
	return model.Request{ID: "r-" + bookID, BookID: bookID, Status: model.StatusPending}, nil
}

func (f *fakeAPI) CancelRequest(context.Context, string) error { return f.err }

func (f *fakeAPI) ApproveRequest(_ context.Context, requestID string) (model.Loan, error) {
	if f.err != nil {
		return model.Loan{}, f.err
	}
	return model.Loan{ID: "loan-" + requestID, StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeAPI) RejectRequest(context.Context, string) error { return f.err }

func (f *fakeAPI) ListLoans(context.Context, bool) ([]model.Loan, error) {
	return cloneLoans(f.loans), nil
}

func (f *fakeAPI) MarkReturned(_ context.Context, loanID string) (model.Loan, error) {
	if f.err != nil {
		return model.Loan{}, f.err
	}
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	return model.Loan{ID: loanID, ReturnedAt: &at}, nil
}

func (f *fakeAPI) SetDueDate(_ context.Context, loanID string, due *time.Time) (model.Loan, error) {
	if f.err != nil {
		return model.Loan{}, f.err
	}
	return model.Loan{ID: loanID, DueDate: due}, nil
}

func (f *fakeAPI) GetUsers(_ context.Context, ids []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userBatches = append(f.userBatches, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeAPI) SetIdentity(userID, schoolID string) {
	f.userID, f.schoolID = userID, schoolID
}

func (f *fakeAPI) Me(context.Context) (model.Membership, error) {
	if f.me == nil {
		return model.Membership{}, errNotFound
	}
	return *f.me, nil
}

func (f *fakeAPI) RegisterUser(_ context.Context, in model.RegisterUserRequest) (model.User, error) {
	f.registered = append(f.registered, in)
	f.me = &model.Membership{UserID: f.userID, SchoolID: f.schoolID, Role: model.RoleUser}
	return model.User{ID: f.userID, Name: in.Name, Surname: in.Surname}, nil
}

type chanWatcher chan model.Change

func (w chanWatcher) Watch(context.Context) (<-chan model.Change, error) {
	return w, nil
}

// streamWatcher keeps the context its stream was opened with.
type streamWatcher struct {
	ctx     context.Context
	changes chan model.Change
}

func (w *streamWatcher) Watch(ctx context.Context) (<-chan model.Change, error) {
	w.ctx = ctx
	return w.changes, nil
}
