package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/pkg/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	booksTableName       = `books`
	requestsTableName    = `requests`
	loansTableName       = `loans`
	usersTableName       = `users`
	membershipsTableName = `memberships`

	changesChannel = `biblio_changes`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	bookColumns    = []string{"id", "title", "author", "isbn", "school_id", "quantity", "available"}
	requestColumns = []string{"id", "user_id", "book_id", "school_id", "status", "created_at"}
	loanColumns    = []string{"id", "user_id", "book_id", "school_id", "start_date", "due_date", "returned_at"}
)

type repository struct {
	db  *sqlx.DB
	dsn string
	log *zap.Logger
}

// NewRepository builds the Postgres repository. dsn is used for the dedicated
// LISTEN connections opened by Subscribe.
func NewRepository(db *sqlx.DB, dsn string, log *zap.Logger) (*repository, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &repository{
		db:  db,
		dsn: dsn,
		log: log.Named("repo"),
	}, nil
}

var _ Repository = (*repository)(nil)

func (r *repository) RunInTx(ctx context.Context, fn func(tx Tx) error) (retErr error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "BeginTxx")
	}
	defer func() {
		if retErr != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				r.log.Warn("tx.Rollback", zap.Error(err))
			}
		}
	}()

	ptx := &pgTx{tx: tx}
	if err := fn(ptx); err != nil {
		return err
	}
	// pg_notify inside the transaction is delivered only on commit.
	for _, change := range ptx.changes {
		payload, err := json.Marshal(change)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `select pg_notify($1, $2)`, changesChannel, string(payload)); err != nil {
			return errors.Wrap(err, "pg_notify")
		}
	}
	return errors.Wrap(tx.Commit(), "tx.Commit")
}

func (r *repository) ListBooks(ctx context.Context, schoolID string) ([]model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"school_id": schoolID}).
		OrderBy("title", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, errors.Wrap(err, "ListBooks")
	}
	return books, nil
}

func (r *repository) ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.Request, error) {
	q := qb.Select(requestColumns...).
		From(requestsTableName).
		Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.UserID != "" {
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	query, args, err := q.OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, err
	}
	r.log.Debug("ListRequests", zap.String("query", query), zap.Any("args", args))

	requests := make([]model.Request, 0)
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, errors.Wrap(err, "ListRequests")
	}
	return requests, nil
}

func (r *repository) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	q := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"school_id": filter.SchoolID})
	if filter.UserID != "" {
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.BookID != "" {
		q = q.Where(sq.Eq{"book_id": filter.BookID})
	}
	if filter.OnlyOpen {
		q = q.Where(sq.Eq{"returned_at": nil})
	}
	query, args, err := q.OrderBy("start_date", "id").ToSql()
	if err != nil {
		return nil, err
	}

	loans := make([]model.Loan, 0)
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, errors.Wrap(err, "ListLoans")
	}
	return loans, nil
}

func (r *repository) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) > MaxBatchSize {
		return nil, errs.ErrBatchTooLarge
	}
	users := make([]model.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	query, args, err := qb.Select("id", "name", "surname", "grade", "email", "created_at").
		From(usersTableName).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "GetUsers")
	}
	return users, nil
}

func (r *repository) GetMembership(ctx context.Context, userID, schoolID string) (model.Membership, error) {
	query, args, err := qb.Select("user_id", "school_id", "role", "created_at").
		From(membershipsTableName).
		Where(sq.Eq{"user_id": userID, "school_id": schoolID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Membership{}, err
	}
	var m model.Membership
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Membership{}, errs.ErrMembershipAbsent
		}
		return model.Membership{}, errors.Wrap(err, "GetMembership")
	}
	return m, nil
}

func (r *repository) CreateUser(ctx context.Context, user model.User, membership model.Membership) (created model.User, retErr error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.User{}, errors.Wrap(err, "BeginTxx")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := qb.Insert(usersTableName).
		Columns("id", "name", "surname", "grade", "email", "created_at").
		Values(user.ID, user.Name, user.Surname, user.Grade, user.Email, sq.Expr("now()")).
		Suffix(`on conflict (id) do update set name = excluded.name, surname = excluded.surname,
			grade = excluded.grade, email = excluded.email
			returning id, name, surname, grade, email, created_at`).
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	if err := tx.GetContext(ctx, &created, query, args...); err != nil {
		r.log.Error("CreateUser", zap.String("q", query), zap.Any("args", args))
		return model.User{}, errors.Wrap(err, "insert user")
	}

	query, args, err = qb.Insert(membershipsTableName).
		Columns("user_id", "school_id", "role", "created_at").
		Values(membership.UserID, membership.SchoolID, membership.Role, sq.Expr("now()")).
		Suffix("on conflict (user_id, school_id) do nothing").
		ToSql()
	if err != nil {
		return model.User{}, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return model.User{}, errors.Wrap(err, "insert membership")
	}
	return created, errors.Wrap(tx.Commit(), "tx.Commit")
}

// PutMembership provisions a membership with an explicit role, e.g. a staff
// seat. An existing membership gets the new role.
func (r *repository) PutMembership(ctx context.Context, m model.Membership) error {
	query, args, err := qb.Insert(membershipsTableName).
		Columns("user_id", "school_id", "role", "created_at").
		Values(m.UserID, m.SchoolID, m.Role, sq.Expr("now()")).
		Suffix("on conflict (user_id, school_id) do update set role = excluded.role").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "PutMembership")
}
