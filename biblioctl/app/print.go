package app

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Astemirdum/biblio-service/pkg/model"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func (a *App) printBooks(books []model.Book) error {
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tAVAILABLE")
	for _, b := range books {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n", b.ID, b.Title, b.Author, b.ISBN, b.Available, b.Quantity)
	}
	return w.Flush()
}

func (a *App) printRequests(requests []model.Request) error {
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tBOOK\tMEMBER\tSTATUS\tCREATED")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, a.bookTitle(r.BookID), a.users.DisplayName(r.UserID), r.Status, formatTime(r.CreatedAt))
	}
	return w.Flush()
}

func (a *App) printLoans(loans []model.Loan) error {
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tBOOK\tMEMBER\tSTART\tDUE\tRETURNED")
	for _, l := range loans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, a.bookTitle(l.BookID), a.users.DisplayName(l.UserID),
			formatDate(&l.StartDate), formatDate(l.DueDate), formatDate(l.ReturnedAt))
	}
	return w.Flush()
}

func (a *App) bookTitle(bookID string) string {
	if b, ok := a.catalog.Book(bookID); ok {
		return b.Title
	}
	return bookID
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
