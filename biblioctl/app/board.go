package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Astemirdum/biblio-service/biblioctl/internal/store"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *App) requestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Your requests, or the pending requests of the school for staff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadBoard(cmd.Context()); err != nil {
				return err
			}
			return a.printRequests(a.board.Requests())
		},
	}
	cmd.AddCommand(
		a.boardAction("submit <bookId>", "Request a book", func(ctx context.Context, id string) error {
			req, err := a.board.SubmitRequest(ctx, id)
			if err == nil {
				fmt.Fprintf(a.out, "request %s is pending\n", req.ID)
			}
			return err
		}),
		a.boardAction("cancel <requestId>", "Withdraw a pending request", func(ctx context.Context, id string) error {
			return a.board.CancelRequest(ctx, id)
		}),
		a.boardAction("approve <requestId>", "Lend the book to the requester", func(ctx context.Context, id string) error {
			if err := a.staff(); err != nil {
				return err
			}
			loan, err := a.board.ApproveRequest(ctx, id)
			if err == nil {
				fmt.Fprintf(a.out, "loan %s started\n", loan.ID)
			}
			return err
		}),
		a.boardAction("reject <requestId>", "Turn a request down", func(ctx context.Context, id string) error {
			if err := a.staff(); err != nil {
				return err
			}
			return a.board.RejectRequest(ctx, id)
		}),
	)
	return cmd
}

func (a *App) loansCmd() *cobra.Command {
	var onlyOpen bool
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Your loans, or all loans of the school for staff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadBoard(cmd.Context()); err != nil {
				return err
			}
			loans := a.board.Loans()
			if onlyOpen {
				open := loans[:0]
				for _, l := range loans {
					if l.Open() {
						open = append(open, l)
					}
				}
				loans = open
			}
			return a.printLoans(loans)
		},
	}
	cmd.Flags().BoolVar(&onlyOpen, "open", false, "only loans not returned yet")

	var clearDue bool
	due := &cobra.Command{
		Use:   "due <loanId> [YYYY-MM-DD]",
		Short: "Set or clear the due date of an open loan",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			var date *time.Time
			switch {
			case len(args) == 2:
				d, err := time.Parse(time.DateOnly, args[1])
				if err != nil {
					return errors.Wrap(err, "due date")
				}
				date = &d
			case !clearDue:
				return errors.New("give a date or --clear")
			}
			if err := a.loadBoard(cmd.Context()); err != nil {
				return err
			}
			loan, err := a.board.SetDueDate(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "loan %s due %s\n", loan.ID, formatDate(loan.DueDate))
			return nil
		},
	}
	due.Flags().BoolVar(&clearDue, "clear", false, "remove the due date")

	cmd.AddCommand(
		a.boardAction("return <loanId>", "Mark a loan returned", func(ctx context.Context, id string) error {
			if err := a.staff(); err != nil {
				return err
			}
			loan, err := a.board.MarkReturned(ctx, id)
			if err == nil {
				fmt.Fprintf(a.out, "loan %s returned at %s\n", loan.ID, formatDate(loan.ReturnedAt))
			}
			return err
		}),
		due,
	)
	return cmd
}

// boardCmd prints the staff tabs with member names resolved.
func (a *App) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Pending requests, active and returned loans of the school",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			if err := a.loadBoard(cmd.Context()); err != nil {
				return err
			}
			for _, tab := range a.board.Tabs() {
				fmt.Fprintf(a.out, "\n== %s ==\n", tab.Title())
				var err error
				switch tab := tab.(type) {
				case store.RequestsTab:
					err = a.printRequests(tab.Requests())
				case store.ActiveLoansTab:
					err = a.printLoans(tab.Loans())
				case store.ReturnedLoansTab:
					err = a.printLoans(tab.Loans())
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// boardAction builds a command acting on one id after the board is loaded.
func (a *App) boardAction(use, short string, run func(ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadBoard(cmd.Context()); err != nil {
				return err
			}
			return run(cmd.Context(), args[0])
		},
	}
}

// loadBoard refreshes requests, loans and the books and members they name.
func (a *App) loadBoard(ctx context.Context) error {
	if _, err := a.member(); err != nil {
		return err
	}
	if err := a.board.Refresh(ctx); err != nil {
		return err
	}
	if err := a.catalog.Refresh(ctx); err != nil {
		a.log.Debug("catalog refresh failed, titles may be missing")
	}
	if m, _ := a.session.Membership(); m.Role == model.RoleStaff {
		return a.users.Resolve(ctx, a.board.UserIDs())
	}
	return nil
}
