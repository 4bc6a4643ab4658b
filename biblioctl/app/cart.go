package app

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *App) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Books you are about to request",
		RunE: func(*cobra.Command, []string) error {
			if err := a.requireCart(); err != nil {
				return err
			}
			return a.printBooks(a.cart.Items())
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <bookId>",
			Short: "Put a book into the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireCart(); err != nil {
					return err
				}
				if err := a.catalog.Refresh(cmd.Context()); err != nil {
					return err
				}
				book, ok := a.catalog.Book(args[0])
				if !ok {
					return errors.Errorf("book %s not found", args[0])
				}
				added, err := a.cart.Add(cmd.Context(), book)
				if err != nil {
					return err
				}
				if !added {
					fmt.Fprintf(a.out, "%q is already in the cart\n", book.Title)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <bookId>",
			Short: "Take a book out of the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.requireCart(); err != nil {
					return err
				}
				_, err := a.cart.Remove(cmd.Context(), args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.requireCart(); err != nil {
					return err
				}
				cleared, err := a.cart.Clear(cmd.Context(), a.confirm)
				if err != nil {
					return err
				}
				if cleared {
					fmt.Fprintln(a.out, "cart cleared")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "submit",
			Short: "Request every book in the cart",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.requireCart(); err != nil {
					return err
				}
				var failed int
				for _, book := range a.cart.Items() {
					if _, err := a.board.SubmitRequest(cmd.Context(), book.ID); err != nil {
						failed++
						fmt.Fprintf(a.out, "%q: %v\n", book.Title, err)
						continue
					}
					fmt.Fprintf(a.out, "requested %q\n", book.Title)
				}
				if failed > 0 {
					return errors.Errorf("%d requests failed", failed)
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *App) requireCart() error {
	if _, err := a.member(); err != nil {
		return err
	}
	if a.cart == nil {
		return errors.New("staff have no cart")
	}
	return nil
}
