// Package client talks to the biblio REST API on behalf of one signed-in member.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/auth"
	"github.com/Astemirdum/biblio-service/pkg/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNoSession = errors.New("not logged in")

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	log     *zap.Logger
	client  *http.Client
	stream  *http.Client
	baseURL string

	mu       sync.RWMutex
	userID   string
	schoolID string
	token    string
}

func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		log:     log.Named("client"),
		client:  &http.Client{Timeout: 30 * time.Second},
		stream:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
	}
}

// SetIdentity selects the member the following calls act as.
func (c *Client) SetIdentity(userID, schoolID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID, c.schoolID = userID, schoolID
}

// SetToken sends the identity provider token with every call when the
// server checks tokens.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Identity() (userID, schoolID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.schoolID
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	userID, schoolID := c.Identity()
	if userID == "" {
		return nil, ErrNoSession
	}
	var reader io.Reader = http.NoBody
	if body != nil {
		b := bytes.NewBuffer(nil)
		if err := json.NewEncoder(b).Encode(body); err != nil {
			return nil, err
		}
		reader = b
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.XUserIDHeader, userID)
	req.Header.Set(auth.XSchoolIDHeader, schoolID)
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()
	return req, nil
}

// do sends the request and decodes a 2xx body into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, method+" "+path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode "+path)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var msg struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
		msg.Message = strings.TrimSpace(string(data))
	}
	return &APIError{Status: resp.StatusCode, Message: msg.Message}
}

func (c *Client) Me(ctx context.Context) (model.Membership, error) {
	var m model.Membership
	err := c.do(ctx, http.MethodGet, "/me", nil, &m)
	return m, err
}

func (c *Client) RegisterUser(ctx context.Context, in model.RegisterUserRequest) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/users", in, &u)
	return u, err
}

func (c *Client) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	var users []model.User
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	err := c.do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &users)
	return users, err
}

func (c *Client) ListBooks(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	err := c.do(ctx, http.MethodGet, "/books", nil, &books)
	return books, err
}

func (c *Client) AddBook(ctx context.Context, in model.BookInput) (model.Book, error) {
	var b model.Book
	err := c.do(ctx, http.MethodPost, "/books", in, &b)
	return b, err
}

func (c *Client) UpdateBook(ctx context.Context, bookID string, in model.BookInput) (model.Book, error) {
	var b model.Book
	err := c.do(ctx, http.MethodPut, "/books/"+url.PathEscape(bookID), in, &b)
	return b, err
}

func (c *Client) LookupISBN(ctx context.Context, isbn string) (model.BookMetadata, error) {
	var meta model.BookMetadata
	err := c.do(ctx, http.MethodGet, "/isbn/"+url.PathEscape(isbn), nil, &meta)
	return meta, err
}

func (c *Client) ListRequests(ctx context.Context) ([]model.Request, error) {
	var requests []model.Request
	err := c.do(ctx, http.MethodGet, "/requests", nil, &requests)
	return requests, err
}

func (c *Client) SubmitRequest(ctx context.Context, bookID string) (model.Request, error) {
	var r model.Request
	err := c.do(ctx, http.MethodPost, "/requests", map[string]string{"bookId": bookID}, &r)
	return r, err
}

func (c *Client) CancelRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodDelete, "/requests/"+url.PathEscape(requestID), nil, nil)
}

func (c *Client) ApproveRequest(ctx context.Context, requestID string) (model.Loan, error) {
	var l model.Loan
	err := c.do(ctx, http.MethodPost, "/requests/"+url.PathEscape(requestID)+"/approve", nil, &l)
	return l, err
}

func (c *Client) RejectRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPost, "/requests/"+url.PathEscape(requestID)+"/reject", nil, nil)
}

func (c *Client) ListLoans(ctx context.Context, onlyOpen bool) ([]model.Loan, error) {
	var loans []model.Loan
	path := "/loans"
	if onlyOpen {
		path += "?open=true"
	}
	err := c.do(ctx, http.MethodGet, path, nil, &loans)
	return loans, err
}

func (c *Client) MarkReturned(ctx context.Context, loanID string) (model.Loan, error) {
	var l model.Loan
	err := c.do(ctx, http.MethodPost, "/loans/"+url.PathEscape(loanID)+"/return", nil, &l)
	return l, err
}

func (c *Client) SetDueDate(ctx context.Context, loanID string, due *time.Time) (model.Loan, error) {
	var req model.DueDateRequest
	if due != nil {
		req.DueDate = &model.Date{Time: *due}
	}
	var l model.Loan
	err := c.do(ctx, http.MethodPut, "/loans/"+url.PathEscape(loanID)+"/due-date", req, &l)
	return l, err
}

func (c *Client) Stats(ctx context.Context) (model.SchoolStats, error) {
	var s model.SchoolStats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &s)
	return s, err
}
