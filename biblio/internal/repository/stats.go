package repository

import (
	"context"
	"fmt"

	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type StatsRepository interface {
	SaveEvent(ctx context.Context, event kafka.LoanEvent) error
	GetStats(ctx context.Context, schoolID string) (model.SchoolStats, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log *zap.Logger) *statsRepository {
	return &statsRepository{
		db:  db,
		log: log.Named("stats-repo"),
	}
}

func (r *statsRepository) SaveEvent(ctx context.Context, event kafka.LoanEvent) error {
	q := `insert into events (timestamp, event_type, school_id, user_id, book_id, request_id, loan_id, actor_id)
	values (@timestamp, @event_type, @school_id, @user_id, @book_id, @request_id, @loan_id, @actor_id)`
	args := pgx.NamedArgs{
		"timestamp":  event.Timestamp,
		"event_type": event.EventType,
		"school_id":  event.SchoolID,
		"user_id":    event.UserID,
		"book_id":    event.BookID,
		"request_id": event.RequestID,
		"loan_id":    event.LoanID,
		"actor_id":   event.ActorID,
	}
	_, err := r.db.Exec(ctx, q, args)
	return err
}

func (r *statsRepository) GetStats(ctx context.Context, schoolID string) (model.SchoolStats, error) {
	const q = `
	select @school_id::text as school_id,
	       count(*) filter (where event_type = 'REQUEST_SUBMITTED') as submitted,
	       count(*) filter (where event_type = 'REQUEST_APPROVED') as approved,
	       count(*) filter (where event_type = 'REQUEST_REJECTED') as rejected,
	       count(*) filter (where event_type = 'LOAN_RETURNED') as returned,
	       coalesce(max(timestamp), 'epoch'::timestamptz) as last_updated
	from events
	where school_id = @school_id
`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"school_id": schoolID})
	if err != nil {
		return model.SchoolStats{}, err
	}
	stats, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[model.SchoolStats])
	if err != nil {
		return model.SchoolStats{}, fmt.Errorf("pgx.CollectExactlyOneRow: %w", err)
	}
	return stats, nil
}
