package app

import (
	"fmt"

	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/spf13/cobra"
)

func (a *App) loginCmd() *cobra.Command {
	var (
		userID, schoolID string
		profile          model.RegisterUserRequest
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a school, registering on first use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var p *model.RegisterUserRequest
			if profile.Name != "" || profile.Surname != "" {
				p = &profile
			}
			m, err := a.session.Login(cmd.Context(), userID, schoolID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in to %s as %s\n", m.SchoolID, m.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id issued by the identity provider")
	cmd.Flags().StringVar(&schoolID, "school", "", "school id")
	cmd.Flags().StringVar(&profile.Name, "name", "", "first name, used to register")
	cmd.Flags().StringVar(&profile.Surname, "surname", "", "last name, used to register")
	cmd.Flags().StringVar(&profile.Grade, "grade", "", "grade, used to register")
	cmd.Flags().StringVar(&profile.Email, "email", "", "email, used to register")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("school")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.member()
			if err != nil {
				return err
			}
			pending := 0
			if m.Role == model.RoleUser {
				if err := a.board.Refresh(cmd.Context()); err != nil {
					return err
				}
				for _, r := range a.board.Requests() {
					if r.Status == model.StatusPending {
						pending++
					}
				}
			}
			out, err := a.session.Logout(cmd.Context(), pending, a.confirm)
			if err != nil {
				return err
			}
			if out {
				fmt.Fprintln(a.out, "logged out")
			}
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current membership",
		RunE: func(*cobra.Command, []string) error {
			m, err := a.member()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s at %s (%s)\n", m.UserID, m.SchoolID, m.Role)
			return nil
		},
	}
}

func (a *App) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show request and loan counters of the school",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.staff(); err != nil {
				return err
			}
			s, err := a.api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(a.out)
			fmt.Fprintln(w, "SUBMITTED\tAPPROVED\tREJECTED\tRETURNED\tUPDATED")
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%s\n", s.Submitted, s.Approved, s.Rejected, s.Returned, formatTime(s.LastUpdated))
			return w.Flush()
		},
	}
}
