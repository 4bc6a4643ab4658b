package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
)

const cartBucket = "cart"

// Cart is the local set of books a member intends to request.
type Cart struct {
	persist Persister
	log     *zap.Logger

	mu    sync.RWMutex
	items []model.Book
}

func NewCart(ctx context.Context, persist Persister, log *zap.Logger) (*Cart, error) {
	c := &Cart{
		persist: persist,
		log:     log.Named("cart"),
	}
	if _, err := persist.Load(ctx, cartBucket, &c.items); err != nil {
		return nil, err
	}
	return c, nil
}

// Add puts the book into the cart. It reports false if it was already there.
func (c *Cart) Add(ctx context.Context, book model.Book) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(book.ID) >= 0 {
		return false, nil
	}
	c.items = append(c.items, book)
	return true, c.save(ctx)
}

func (c *Cart) Remove(ctx context.Context, bookID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(bookID)
	if i < 0 {
		return false, nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true, c.save(ctx)
}

func (c *Cart) Contains(bookID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(bookID) >= 0
}

func (c *Cart) Items() []model.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Book(nil), c.items...)
}

// Retain drops every entry whose book is not in the catalog and returns the
// removed ids.
func (c *Cart) Retain(ctx context.Context, books []model.Book) ([]string, error) {
	known := make(map[string]struct{}, len(books))
	for _, b := range books {
		known[b.ID] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var removed []string
	kept := c.items[:0]
	for _, item := range c.items {
		if _, ok := known[item.ID]; ok {
			kept = append(kept, item)
			continue
		}
		removed = append(removed, item.ID)
	}
	c.items = kept
	if len(removed) == 0 {
		return nil, nil
	}
	c.log.Debug("dropped unknown books", zap.Strings("ids", removed))
	return removed, c.save(ctx)
}

// Clear empties the cart once the member confirms. It reports whether
// anything was removed.
func (c *Cart) Clear(ctx context.Context, confirm Confirm) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return false, nil
	}
	if !confirm(fmt.Sprintf("Remove all %d books from the cart?", len(c.items))) {
		return false, nil
	}
	c.items = nil
	return true, c.save(ctx)
}

func (c *Cart) indexOf(bookID string) int {
	for i := range c.items {
		if c.items[i].ID == bookID {
			return i
		}
	}
	return -1
}

func (c *Cart) save(ctx context.Context) error {
	if err := c.persist.Save(ctx, cartBucket, c.items); err != nil {
		c.log.Error("persist cart", zap.Error(err))
		return err
	}
	return nil
}
