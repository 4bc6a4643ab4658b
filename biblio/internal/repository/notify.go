package repository

import (
	"context"
	"encoding/json"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const subscriberBuffer = 64

func (r *repository) Subscribe(ctx context.Context, schoolID string) (<-chan model.Change, error) {
	conn, err := pgx.Connect(ctx, r.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "pgx.Connect")
	}
	if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{changesChannel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, errors.Wrap(err, "listen")
	}

	out := make(chan model.Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = conn.Close(context.Background()) }()
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.log.Error("WaitForNotification", zap.Error(err))
				}
				return
			}
			var change model.Change
			if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
				r.log.Warn("bad change payload", zap.String("payload", n.Payload), zap.Error(err))
				continue
			}
			if change.SchoolID != schoolID {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
