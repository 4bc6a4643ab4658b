package store

import (
	"context"
	"sync"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// batchSize is the largest id list the server accepts in one users query.
const batchSize = 10

// Directory caches user records by id. Entries are never evicted.
type Directory struct {
	api UsersAPI
	log *zap.Logger

	mu    sync.RWMutex
	users map[string]model.User
}

func NewDirectory(api UsersAPI, log *zap.Logger) *Directory {
	return &Directory{
		api:   api,
		log:   log.Named("directory"),
		users: make(map[string]model.User),
	}
}

// Resolve fetches the ids that are not cached yet, in parallel batches.
func (d *Directory) Resolve(ctx context.Context, ids []string) error {
	missing := d.missing(ids)
	if len(missing) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(missing); start += batchSize {
		chunk := missing[start:min(start+batchSize, len(missing))]
		g.Go(func() error {
			users, err := d.api.GetUsers(ctx, chunk)
			if err != nil {
				return syncError(err)
			}
			d.mu.Lock()
			for _, u := range users {
				d.users[u.ID] = u
			}
			d.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.log.Warn("resolve users", zap.Int("missing", len(missing)), zap.Error(err))
		return err
	}
	return nil
}

func (d *Directory) Lookup(userID string) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	return u, ok
}

// DisplayName falls back to the id for users that are not resolved.
func (d *Directory) DisplayName(userID string) string {
	u, ok := d.Lookup(userID)
	if !ok || (u.Name == "" && u.Surname == "") {
		return userID
	}
	if u.Grade != "" {
		return u.Name + " " + u.Surname + " (" + u.Grade + ")"
	}
	return u.Name + " " + u.Surname
}

func (d *Directory) missing(ids []string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := d.users[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
