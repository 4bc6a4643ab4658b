package store

import (
	"context"
	"strings"
	"sync"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

const catalogBucket = "catalog"

type Availability string

const (
	AvailabilityAll Availability = "all"
	AvailabilityYes Availability = "yes"
	AvailabilityNo  Availability = "no"
)

// BookFilter narrows the catalog. Every non-empty field must match.
type BookFilter struct {
	// Query matches title or author.
	Query        string
	Title        string
	Author       string
	Availability Availability
}

// Catalog holds the books of the active school.
type Catalog struct {
	api     BooksAPI
	cart    *Cart
	persist Persister
	log     *zap.Logger

	mu      sync.RWMutex
	books   []model.Book
	loading bool
}

// NewCatalog starts from the last known books. cart may be nil for staff.
func NewCatalog(ctx context.Context, api BooksAPI, cart *Cart, persist Persister, log *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		api:     api,
		cart:    cart,
		persist: persist,
		log:     log.Named("catalog"),
	}
	if _, err := persist.Load(ctx, catalogBucket, &c.books); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Refresh(ctx context.Context) error {
	c.setLoading(true)
	books, err := c.api.ListBooks(ctx)
	c.setLoading(false)
	if err != nil {
		return syncError(err)
	}

	c.mu.Lock()
	c.books = books
	c.mu.Unlock()

	if c.cart != nil {
		if _, err := c.cart.Retain(ctx, books); err != nil {
			return err
		}
	}
	if err := c.persist.Save(ctx, catalogBucket, books); err != nil {
		c.log.Warn("persist catalog", zap.Error(err))
	}
	return nil
}

func (c *Catalog) Books() []model.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Book(nil), c.books...)
}

func (c *Catalog) Book(bookID string) (model.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(bookID); i >= 0 {
		return c.books[i], true
	}
	return model.Book{}, false
}

func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Filter applies f to the books, ignoring case.
func (c *Catalog) Filter(f BookFilter) []model.Book {
	query := normalize(f.Query)
	title := normalize(f.Title)
	author := normalize(f.Author)

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Book
	for _, b := range c.books {
		switch f.Availability {
		case AvailabilityYes:
			if b.Available == 0 {
				continue
			}
		case AvailabilityNo:
			if b.Available > 0 {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(b.Title), query) &&
			!strings.Contains(strings.ToLower(b.Author), query) {
			continue
		}
		if !strings.Contains(strings.ToLower(b.Title), title) ||
			!strings.Contains(strings.ToLower(b.Author), author) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Catalog) AddBook(ctx context.Context, in model.BookInput) (model.Book, error) {
	book, err := c.api.AddBook(ctx, in)
	if err != nil {
		return model.Book{}, syncError(err)
	}
	c.mu.Lock()
	if c.indexOf(book.ID) < 0 {
		c.books = append(c.books, book)
	}
	c.mu.Unlock()
	return book, nil
}

// UpdateBook patches the local copy right away. Available keeps the number of
// copies currently on loan.
func (c *Catalog) UpdateBook(ctx context.Context, bookID string, in model.BookInput) (model.Book, error) {
	var updated model.Book
	err := PerformOptimistic(ctx,
		c.Books,
		func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			i := c.indexOf(bookID)
			if i < 0 {
				return
			}
			b := &c.books[i]
			onLoan := b.Quantity - b.Available
			b.Title, b.Author, b.ISBN, b.Quantity = in.Title, in.Author, in.ISBN, in.Quantity
			b.Available = max(in.Quantity-onLoan, 0)
		},
		func(ctx context.Context) error {
			var err error
			updated, err = c.api.UpdateBook(ctx, bookID, in)
			return err
		},
		func(books []model.Book) {
			c.mu.Lock()
			c.books = books
			c.mu.Unlock()
		},
	)
	if err != nil {
		c.log.Warn("update book", zap.String("bookId", bookID), zap.Error(err))
		return model.Book{}, err
	}
	c.mu.Lock()
	if i := c.indexOf(bookID); i >= 0 {
		c.books[i] = updated
	}
	c.mu.Unlock()
	return updated, nil
}

// Watch keeps the catalog current until ctx is done.
func (c *Catalog) Watch(ctx context.Context, w Watcher) error {
	return watch(ctx, w, func(col model.Collection) bool {
		return col == model.CollectionBooks
	}, c.Refresh)
}

func (c *Catalog) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Catalog) indexOf(bookID string) int {
	for i := range c.books {
		if c.books[i].ID == bookID {
			return i
		}
	}
	return -1
}
