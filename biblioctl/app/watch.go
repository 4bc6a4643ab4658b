package app

import (
	"context"
	"fmt"
	"io"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/store"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *App) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes of the school until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.member(); err != nil {
				return err
			}
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return a.catalog.Watch(ctx, printingWatcher{Watcher: a.api, out: a.out})
			})
			g.Go(func() error {
				return a.board.Watch(ctx, a.api)
			})
			return g.Wait()
		},
	}
}

// printingWatcher echoes every change it passes on.
type printingWatcher struct {
	store.Watcher
	out io.Writer
}

func (w printingWatcher) Watch(ctx context.Context) (<-chan model.Change, error) {
	in, err := w.Watcher.Watch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan model.Change)
	go func() {
		defer close(out)
		for change := range in {
			fmt.Fprintf(w.out, "%s %s changed\n", change.Collection, change.ID)
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
