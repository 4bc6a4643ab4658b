package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/biblio/internal/repository"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	opAddBook    = "add_book"
	opUpdateBook = "update_book"
)

func (s *Service) ListBooks(ctx context.Context, ident model.Identity) ([]model.Book, error) {
	if err := requireMember(ident); err != nil {
		return nil, err
	}
	return s.repo.ListBooks(ctx, ident.SchoolID())
}

// AddBook creates a book with every copy on the shelf.
func (s *Service) AddBook(ctx context.Context, ident model.Identity, in model.BookInput) (book model.Book, err error) {
	defer s.observe(opAddBook, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return model.Book{}, err
	}
	if err = s.validateInput(in); err != nil {
		return model.Book{}, err
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		book, err = tx.CreateBook(ctx, model.Book{
			ID:        s.newID(),
			Title:     strings.TrimSpace(in.Title),
			Author:    strings.TrimSpace(in.Author),
			ISBN:      NormalizeISBN(in.ISBN),
			SchoolID:  ident.SchoolID(),
			Quantity:  in.Quantity,
			Available: in.Quantity,
		})
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	s.log.Debug("book added", zap.String("book", book.ID), zap.Int("quantity", book.Quantity))
	return book, nil
}

// UpdateBook edits a book. The new quantity may not drop below the copies out
// on loan; available is recomputed from it.
func (s *Service) UpdateBook(ctx context.Context, ident model.Identity, bookID string, in model.BookInput) (book model.Book, err error) {
	defer s.observe(opUpdateBook, &err)
	if err = requireRole(ident, model.RoleStaff); err != nil {
		return model.Book{}, err
	}
	if err = s.validateInput(in); err != nil {
		return model.Book{}, err
	}

	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		if cur.SchoolID != ident.SchoolID() {
			return errs.ErrBookNotFound
		}
		active, err := tx.CountActiveLoans(ctx, bookID)
		if err != nil {
			return err
		}
		if in.Quantity < active {
			return errs.NewValidation("quantity", "is lower than the copies currently on loan")
		}

		cur.Title = strings.TrimSpace(in.Title)
		cur.Author = strings.TrimSpace(in.Author)
		cur.ISBN = NormalizeISBN(in.ISBN)
		cur.Quantity = in.Quantity
		cur.Available = in.Quantity - active
		book, err = tx.UpdateBook(ctx, cur)
		return err
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

// LookupISBN fetches catalog metadata used to pre-fill the book form.
func (s *Service) LookupISBN(ctx context.Context, ident model.Identity, isbn string) (model.BookMetadata, error) {
	if err := requireRole(ident, model.RoleStaff); err != nil {
		return model.BookMetadata{}, err
	}
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return model.BookMetadata{}, errs.NewValidation("isbn", "is required")
	}
	if s.lookup == nil {
		return model.BookMetadata{}, errs.ErrNotFound
	}
	return s.lookup.Lookup(ctx, isbn)
}

// NormalizeISBN drops the separators people type into ISBNs.
func NormalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
}

func (s *Service) validateInput(in interface{}) error {
	err := s.validator.Validate(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errs.NewValidation(fe.Field(), "failed on "+fe.Tag())
	}
	return errs.NewValidation("body", err.Error())
}
