// Package bookmeta looks up book metadata by ISBN on the Google Books API.
package bookmeta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/pkg/circuit_breaker"
	"github.com/Astemirdum/biblio-service/pkg/model"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://www.googleapis.com/books/v1"

var json = jsoniter.ConfigFastest

var ErrUnavailable = errors.New("book metadata service unavailable")

type Client struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	cb      circuit_breaker.CircuitBreaker
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		log:     log.Named("bookmeta"),
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cb: circuit_breaker.New(20, 30*time.Second, 0.5, 2,
			circuit_breaker.WithIgnored(func(err error) bool {
				return errors.Is(err, errs.ErrNotFound)
			})),
	}
}

type volumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title   string   `json:"title"`
			Authors []string `json:"authors"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Lookup returns the first volume matching the ISBN. The ISBN is expected
// without separators.
func (c *Client) Lookup(ctx context.Context, isbn string) (meta model.BookMetadata, err error) {
	err = c.cb.Call(func() error {
		meta, err = c.lookup(ctx, isbn)
		return err
	})
	if errors.Is(err, circuit_breaker.ErrOpenCB) {
		return model.BookMetadata{}, ErrUnavailable
	}
	return meta, err
}

func (c *Client) lookup(ctx context.Context, isbn string) (model.BookMetadata, error) {
	u := fmt.Sprintf("%s/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return model.BookMetadata{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return model.BookMetadata{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return model.BookMetadata{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("lookup rejected", zap.String("isbn", isbn), zap.Int("status", resp.StatusCode))
		return model.BookMetadata{}, errs.ErrNotFound
	}

	var v volumes
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return model.BookMetadata{}, fmt.Errorf("decode volumes: %w", err)
	}
	if v.TotalItems == 0 || len(v.Items) == 0 {
		return model.BookMetadata{}, errs.ErrNotFound
	}
	info := v.Items[0].VolumeInfo
	return model.BookMetadata{
		ISBN:    isbn,
		Title:   info.Title,
		Authors: strings.Join(info.Authors, ", "),
	}, nil
}
