package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Calls(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   string
		respStatus int
		respBody   string
		wantErr    *APIError
	}{
		{
			name: "approve",
			call: func(c *Client) error {
				l, err := c.ApproveRequest(context.Background(), "r1")
				if err == nil && l.ID != "l1" {
					return fmt.Errorf("unexpected loan %q", l.ID)
				}
				return err
			},
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/requests/r1/approve",
			respStatus: http.StatusOK,
			respBody:   `{"id":"l1","bookId":"b1"}`,
		},
		{
			name: "users batch",
			call: func(c *Client) error {
				users, err := c.GetUsers(context.Background(), []string{"u1", "u2"})
				if err == nil && len(users) != 2 {
					return fmt.Errorf("unexpected users %v", users)
				}
				return err
			},
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/users",
			wantQuery:  "ids=u1%2Cu2",
			respStatus: http.StatusOK,
			respBody:   `[{"uid":"u1"},{"uid":"u2"}]`,
		},
		{
			name: "due date",
			call: func(c *Client) error {
				_, err := c.SetDueDate(context.Background(), "l1", &due)
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/loans/l1/due-date",
			wantBody:   `{"dueDate":"2024-05-20"}`,
			respStatus: http.StatusOK,
			respBody:   `{"id":"l1"}`,
		},
		{
			name: "clear due date",
			call: func(c *Client) error {
				_, err := c.SetDueDate(context.Background(), "l1", nil)
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/api/v1/loans/l1/due-date",
			wantBody:   `{"dueDate":null}`,
			respStatus: http.StatusOK,
			respBody:   `{"id":"l1"}`,
		},
		{
			name: "open loans",
			call: func(c *Client) error {
				_, err := c.ListLoans(context.Background(), true)
				return err
			},
			wantMethod: http.MethodGet,
			wantPath:   "/api/v1/loans",
			wantQuery:  "open=true",
			respStatus: http.StatusOK,
			respBody:   `[]`,
		},
		{
			name: "conflict",
			call: func(c *Client) error {
				return c.RejectRequest(context.Background(), "r1")
			},
			wantMethod: http.MethodPost,
			wantPath:   "/api/v1/requests/r1/reject",
			respStatus: http.StatusConflict,
			respBody:   `{"message":"request already processed"}`,
			wantErr:    &APIError{Status: http.StatusConflict, Message: "request already processed"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, tt.wantMethod, r.Method)
				require.Equal(t, tt.wantPath, r.URL.Path)
				require.Equal(t, tt.wantQuery, r.URL.RawQuery)
				require.Equal(t, "u1", r.Header.Get("X-User-Id"))
				require.Equal(t, "s1", r.Header.Get("X-School-Id"))
				if tt.wantBody != "" {
					body, err := io.ReadAll(r.Body)
					require.NoError(t, err)
					require.JSONEq(t, tt.wantBody, string(body))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.respStatus)
				_, _ = w.Write([]byte(tt.respBody))
			}))
			defer srv.Close()

			c := New(srv.URL, zap.NewNop())
			c.SetIdentity("u1", "s1")
			err := tt.call(c)
			if tt.wantErr != nil {
				require.Equal(t, tt.wantErr, err)
				require.True(t, IsStatus(err, tt.wantErr.Status))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClient_NoSession(t *testing.T) {
	t.Parallel()
	c := New("http://localhost:1", zap.NewNop())
	_, err := c.ListBooks(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
}

func TestClient_Watch(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/changes", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, ": ping\n\n")
		_, _ = io.WriteString(w, "event: books\ndata: {\"collection\":\"books\",\"id\":\"b1\",\"schoolId\":\"s1\"}\n\n")
		_, _ = io.WriteString(w, "data: not json\n\n")
		_, _ = io.WriteString(w, "event: loans\ndata: {\"collection\":\"loans\",\"id\":\"l1\",\"schoolId\":\"s1\"}\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	c.SetIdentity("u1", "s1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changes, err := c.Watch(ctx)
	require.NoError(t, err)

	var got []model.Change
	for change := range changes {
		got = append(got, change)
	}
	require.Equal(t, []model.Change{
		{Collection: model.CollectionBooks, ID: "b1", SchoolID: "s1"},
		{Collection: model.CollectionLoans, ID: "l1", SchoolID: "s1"},
	}, got)
}

func TestClient_WatchRejected(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"no active school"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	c.SetIdentity("u1", "")
	_, err := c.Watch(context.Background())
	require.True(t, IsStatus(err, http.StatusForbidden))
}

// endlessEvents is a stream body that never ends.
type endlessEvents struct{ pending []byte }

func (e *endlessEvents) Read(p []byte) (int, error) {
	if len(e.pending) == 0 {
		e.pending = []byte("data: {\"collection\":\"books\",\"id\":\"b1\",\"schoolId\":\"s1\"}\n\n")
	}
	n := copy(p, e.pending)
	e.pending = e.pending[n:]
	return n, nil
}

func TestReadEvents_StopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	resp := &http.Response{Body: io.NopCloser(&endlessEvents{})}
	events := readEvents(ctx, resp, zap.NewNop())

	<-events
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event reader still running after cancel")
		}
	}
}
