package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/pkg/model"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type pgTx struct {
	tx      *sqlx.Tx
	changes []model.Change
}

var _ Tx = (*pgTx)(nil)

func (t *pgTx) record(collection model.Collection, id, schoolID string) {
	t.changes = append(t.changes, model.Change{Collection: collection, ID: id, SchoolID: schoolID})
}

func (t *pgTx) getForUpdate(ctx context.Context, dest any, table string, columns []string, id string, notFound error) error {
	query, args, err := qb.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Suffix("for update").
		ToSql()
	if err != nil {
		return err
	}
	if err := t.tx.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return errors.Wrapf(err, "select %s", table)
	}
	return nil
}

func (t *pgTx) GetBook(ctx context.Context, id string) (model.Book, error) {
	var book model.Book
	err := t.getForUpdate(ctx, &book, booksTableName, bookColumns, id, errs.ErrBookNotFound)
	return book, err
}

func (t *pgTx) GetRequest(ctx context.Context, id string) (model.Request, error) {
	var req model.Request
	err := t.getForUpdate(ctx, &req, requestsTableName, requestColumns, id, errs.ErrRequestNotFound)
	return req, err
}

func (t *pgTx) GetLoan(ctx context.Context, id string) (model.Loan, error) {
	var loan model.Loan
	err := t.getForUpdate(ctx, &loan, loansTableName, loanColumns, id, errs.ErrLoanNotFound)
	return loan, err
}

func (t *pgTx) CountActiveLoans(ctx context.Context, bookID string) (int, error) {
	query, args, err := qb.Select("count(*)").
		From(loansTableName).
		Where(sq.Eq{"book_id": bookID, "returned_at": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := t.tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "CountActiveLoans")
	}
	return count, nil
}

func (t *pgTx) HasPendingRequest(ctx context.Context, userID, bookID string) (bool, error) {
	query, args, err := qb.Select("1").
		Prefix("select exists (").
		From(requestsTableName).
		Where(sq.Eq{"user_id": userID, "book_id": bookID, "status": model.StatusPending}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, args...); err != nil {
		return false, errors.Wrap(err, "HasPendingRequest")
	}
	return exists, nil
}

func (t *pgTx) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Insert(booksTableName).
		Columns(bookColumns...).
		Values(book.ID, book.Title, book.Author, book.ISBN, book.SchoolID, book.Quantity, book.Available).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var created model.Book
	if err := t.tx.GetContext(ctx, &created, query, args...); err != nil {
		return model.Book{}, errors.Wrap(err, "CreateBook")
	}
	t.record(model.CollectionBooks, created.ID, created.SchoolID)
	return created, nil
}

func (t *pgTx) UpdateBook(ctx context.Context, book model.Book) (model.Book, error) {
	query, args, err := qb.Update(booksTableName).
		SetMap(map[string]any{
			"title":     book.Title,
			"author":    book.Author,
			"isbn":      book.ISBN,
			"quantity":  book.Quantity,
			"available": book.Available,
		}).
		Where(sq.Eq{"id": book.ID}).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	var updated model.Book
	if err := t.tx.GetContext(ctx, &updated, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrBookNotFound
		}
		return model.Book{}, errors.Wrap(err, "UpdateBook")
	}
	t.record(model.CollectionBooks, updated.ID, updated.SchoolID)
	return updated, nil
}

func (t *pgTx) CreateRequest(ctx context.Context, req model.Request) (model.Request, error) {
	query, args, err := qb.Insert(requestsTableName).
		Columns(requestColumns...).
		Values(req.ID, req.UserID, req.BookID, req.SchoolID, req.Status, sq.Expr("now()")).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Request{}, err
	}
	var created model.Request
	if err := t.tx.GetContext(ctx, &created, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Request{}, errs.ErrDuplicateRequest
		}
		return model.Request{}, errors.Wrap(err, "CreateRequest")
	}
	t.record(model.CollectionRequests, created.ID, created.SchoolID)
	return created, nil
}

func (t *pgTx) SetRequestStatus(ctx context.Context, id string, status model.RequestStatus) error {
	query, args, err := qb.Update(requestsTableName).
		Set("status", status).
		Where(sq.Eq{"id": id}).
		Suffix("returning school_id").
		ToSql()
	if err != nil {
		return err
	}
	var schoolID string
	if err := t.tx.GetContext(ctx, &schoolID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrRequestNotFound
		}
		return errors.Wrap(err, "SetRequestStatus")
	}
	t.record(model.CollectionRequests, id, schoolID)
	return nil
}

func (t *pgTx) DeleteRequest(ctx context.Context, id string) error {
	query, args, err := qb.Delete(requestsTableName).
		Where(sq.Eq{"id": id}).
		Suffix("returning school_id").
		ToSql()
	if err != nil {
		return err
	}
	var schoolID string
	if err := t.tx.GetContext(ctx, &schoolID, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrRequestNotFound
		}
		return errors.Wrap(err, "DeleteRequest")
	}
	t.record(model.CollectionRequests, id, schoolID)
	return nil
}

func (t *pgTx) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns(loanColumns...).
		Values(loan.ID, loan.UserID, loan.BookID, loan.SchoolID, sq.Expr("now()"), loan.DueDate, nil).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var created model.Loan
	if err := t.tx.GetContext(ctx, &created, query, args...); err != nil {
		return model.Loan{}, errors.Wrap(err, "CreateLoan")
	}
	t.record(model.CollectionLoans, created.ID, created.SchoolID)
	return created, nil
}

func (t *pgTx) MarkLoanReturned(ctx context.Context, id string) (model.Loan, error) {
	return t.updateLoan(ctx, id, "returned_at", sq.Expr("now()"))
}

func (t *pgTx) SetLoanDueDate(ctx context.Context, id string, due *time.Time) (model.Loan, error) {
	return t.updateLoan(ctx, id, "due_date", due)
}

func (t *pgTx) updateLoan(ctx context.Context, id, column string, value any) (model.Loan, error) {
	query, args, err := qb.Update(loansTableName).
		Set(column, value).
		Where(sq.Eq{"id": id}).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	var loan model.Loan
	if err := t.tx.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrLoanNotFound
		}
		return model.Loan{}, errors.Wrapf(err, "update loan %s", column)
	}
	t.record(model.CollectionLoans, loan.ID, loan.SchoolID)
	return loan, nil
}
