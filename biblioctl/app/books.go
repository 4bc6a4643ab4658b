package app

import (
	"fmt"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/store"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *App) booksCmd() *cobra.Command {
	var filter store.BookFilter
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog of the school",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.member(); err != nil {
				return err
			}
			switch filter.Availability {
			case store.AvailabilityAll, store.AvailabilityYes, store.AvailabilityNo:
			default:
				return errors.Errorf("unknown availability %q", filter.Availability)
			}
			if err := a.catalog.Refresh(cmd.Context()); err != nil {
				fmt.Fprintf(a.out, "offline, showing the last known catalog: %v\n", err)
			}
			return a.printBooks(a.catalog.Filter(filter))
		},
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "match title or author")
	cmd.Flags().StringVar(&filter.Title, "title", "", "match title")
	cmd.Flags().StringVar(&filter.Author, "author", "", "match author")
	cmd.Flags().StringVar((*string)(&filter.Availability), "available", string(store.AvailabilityAll), "all, yes or no")
	cmd.AddCommand(a.addBookCmd(), a.updateBookCmd())
	return cmd
}

func (a *App) addBookCmd() *cobra.Command {
	var (
		in     model.BookInput
		lookup bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			if lookup && in.ISBN != "" {
				meta, err := a.api.LookupISBN(cmd.Context(), in.ISBN)
				if err != nil {
					return errors.Wrap(err, "lookup isbn")
				}
				if in.Title == "" {
					in.Title = meta.Title
				}
				if in.Author == "" {
					in.Author = meta.Authors
				}
			}
			book, err := a.catalog.AddBook(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added %s %q\n", book.ID, book.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Author, "author", "", "author")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "isbn")
	cmd.Flags().IntVar(&in.Quantity, "quantity", 1, "number of copies")
	cmd.Flags().BoolVar(&lookup, "lookup", false, "fill title and author from the isbn")
	return cmd
}

func (a *App) updateBookCmd() *cobra.Command {
	var in model.BookInput
	cmd := &cobra.Command{
		Use:   "update <bookId>",
		Short: "Change a book; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			if err := a.catalog.Refresh(cmd.Context()); err != nil {
				return err
			}
			cur, ok := a.catalog.Book(args[0])
			if !ok {
				return errors.Errorf("book %s not found", args[0])
			}
			flags := cmd.Flags()
			if !flags.Changed("title") {
				in.Title = cur.Title
			}
			if !flags.Changed("author") {
				in.Author = cur.Author
			}
			if !flags.Changed("isbn") {
				in.ISBN = cur.ISBN
			}
			if !flags.Changed("quantity") {
				in.Quantity = cur.Quantity
			}
			book, err := a.catalog.UpdateBook(cmd.Context(), cur.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s now has %d of %d copies available\n", book.Title, book.Available, book.Quantity)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Author, "author", "", "author")
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "isbn")
	cmd.Flags().IntVar(&in.Quantity, "quantity", 0, "number of copies")
	return cmd
}

func (a *App) isbnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "isbn <isbn>",
		Short: "Look up title and authors of an isbn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			meta, err := a.api.LookupISBN(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\n%s\n", meta.Title, meta.Authors)
			return nil
		},
	}
}
