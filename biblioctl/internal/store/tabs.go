package store

import "github.com/Astemirdum/biblio-service/pkg/model"

// Tab is one of the staff views of the board. The set of tabs is closed.
type Tab interface {
	Title() string
	isTab()
}

type RequestsTab struct {
	requests []model.Request
}

type ActiveLoansTab struct {
	loans []model.Loan
}

type ReturnedLoansTab struct {
	loans []model.Loan
}

func (RequestsTab) Title() string      { return "Requests" }
func (ActiveLoansTab) Title() string   { return "Active loans" }
func (ReturnedLoansTab) Title() string { return "Returned" }

func (RequestsTab) isTab()      {}
func (ActiveLoansTab) isTab()   {}
func (ReturnedLoansTab) isTab() {}

// Requests returns the pending requests shown by the tab.
func (t RequestsTab) Requests() []model.Request { return t.requests }

func (t ActiveLoansTab) Loans() []model.Loan { return t.loans }

func (t ReturnedLoansTab) Loans() []model.Loan { return t.loans }

// Tabs splits the board into its staff views, in display order.
func (b *Board) Tabs() []Tab {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var (
		pending  []model.Request
		active   []model.Loan
		returned []model.Loan
	)
	for _, r := range b.requests {
		if r.Status == model.StatusPending {
			pending = append(pending, r)
		}
	}
	for _, l := range cloneLoans(b.loans) {
		if l.ReturnedAt == nil {
			active = append(active, l)
		} else {
			returned = append(returned, l)
		}
	}
	return []Tab{
		RequestsTab{requests: pending},
		ActiveLoansTab{loans: active},
		ReturnedLoansTab{loans: returned},
	}
}
