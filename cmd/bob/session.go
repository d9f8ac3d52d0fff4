package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bobemploi/internal/app"
	"bobemploi/internal/domain"
	"bobemploi/internal/engine"
	"bobemploi/internal/selector"
)

func registerCmd() *cobra.Command {
	var email, pass, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(pass)
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				resp, err := w.Engine.Register(ctx, engine.Registration{
					Email:     email,
					Password:  pw,
					FirstName: firstName,
					LastName:  lastName,
				})
				if err != nil {
					return err
				}
				if err := w.SaveSession(ctx); err != nil {
					return err
				}
				if p, ok := selector.IncompleteProject(w.Store.GetState().User); ok {
					// A project drafted before registering is saved with the account.
					if _, err := w.Engine.SaveUser(ctx); err != nil {
						return err
					}
					w.Logger.Debug("saved draft project", "title", p.Title)
				}
				return printSignedIn(resp)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&pass, "password", "", "password (or BOB_PASSWORD)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(pass)
			if err != nil {
				return err
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				resp, err := w.Engine.Login(ctx, email, pw)
				if err != nil {
					return err
				}
				if err := w.SaveSession(ctx); err != nil {
					return err
				}
				if _, err := w.Engine.RecordAppUse(ctx); err != nil {
					w.Logger.Warn("recording app use failed", "error", err)
				}
				return printSignedIn(resp)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&pass, "password", "", "password (or BOB_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func printSignedIn(resp *domain.AuthResponse) error {
	if resp == nil || resp.AuthenticatedUser == nil {
		return done("signed in")
	}
	u := resp.AuthenticatedUser
	return printTable(resp,
		table.Row{"User", "Email", "Name", "New"},
		[]table.Row{{u.UserID, u.Profile.Email, strings.TrimSpace(u.Profile.Name + " " + u.Profile.LastName), resp.IsNewUser}})
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session of the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				w.Engine.Logout()
				if err := w.ClearSession(ctx); err != nil {
					return err
				}
				return done("signed out of %s", w.Host)
			})
		},
	}
}

func passwordCmd() *cobra.Command {
	pw := &cobra.Command{Use: "password", Short: "Manage the password"}
	pw.AddCommand(passwordResetCmd())
	return pw
}

func passwordResetCmd() *cobra.Command {
	var email, token, pass string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Ask for a reset token, or set a new password with --token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				if token == "" {
					if err := w.Engine.RequestPasswordReset(ctx, email); err != nil {
						return err
					}
					return done("reset token sent to %s", email)
				}
				pw, err := password(pass)
				if err != nil {
					return err
				}
				resp, err := w.Engine.ResetPassword(ctx, email, token, pw)
				if err != nil {
					return err
				}
				if err := w.SaveSession(ctx); err != nil {
					return err
				}
				return printSignedIn(resp)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&token, "token", "", "reset token received by email")
	cmd.Flags().StringVar(&pass, "password", "", "new password (or BOB_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage the signed in user"}
	usr.AddCommand(userShowCmd())
	usr.AddCommand(userSetCmd())
	usr.AddCommand(userDeleteCmd())
	usr.AddCommand(userEventsCmd())
	usr.AddCommand(userExportCmd())
	usr.AddCommand(userAdvisorCmd())
	return usr
}

func userShowCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, userID string) error {
				if !offline {
					if _, err := w.Engine.FetchUser(ctx, userID); err != nil {
						return err
					}
				}
				u := w.Store.GetState().User
				rows := []table.Row{
					{"id", u.UserID},
					{"email", u.Profile.Email},
					{"name", strings.TrimSpace(u.Profile.Name + " " + u.Profile.LastName)},
					{"projects", len(u.Projects)},
					{"advisor", u.FeaturesEnabled.Advisor},
				}
				if !u.RegisteredAt.IsZero() {
					rows = append(rows, table.Row{"registered", u.RegisteredAt.Format("2006-01-02")})
				}
				return printTable(u, table.Row{"Field", "Value"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show the local copy without asking the backend")
	return cmd
}

func userSetCmd() *cobra.Command {
	var name, lastName, situation string
	var year int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				profile := w.Store.GetState().User.Profile
				if cmd.Flags().Changed("name") {
					profile.Name = name
				}
				if cmd.Flags().Changed("last-name") {
					profile.LastName = lastName
				}
				if cmd.Flags().Changed("situation") {
					profile.Situation = situation
				}
				if cmd.Flags().Changed("year-of-birth") {
					profile.YearOfBirth = year
				}
				if err := w.Engine.SetUserProfile(ctx, profile); err != nil {
					return err
				}
				return done("profile saved")
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&situation, "situation", "", "current situation")
	cmd.Flags().IntVar(&year, "year-of-birth", 0, "year of birth")
	return cmd
}

func userDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account and its data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes the account for good; pass --yes to confirm")
			}
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, userID string) error {
				if err := w.Engine.DeleteUser(ctx); err != nil {
					return err
				}
				if err := w.ClearSession(ctx); err != nil {
					return err
				}
				return done("deleted user %s", userID)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func userEventsCmd() *cobra.Command {
	var limit int
	var cursor int64
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent account events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, userID string) error {
				page, err := w.Client.Events(ctx, userID, limit, cursor)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(page.Items))
				for _, e := range page.Items {
					rows = append(rows, table.Row{e.ID, e.TS, e.Type, e.EntityKind})
				}
				if page.NextCursor != 0 && !jsonOutput() {
					defer fmt.Printf("more: --cursor %d\n", page.NextCursor)
				}
				return printTable(page, table.Row{"ID", "When", "Type", "Entity"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of events")
	cmd.Flags().Int64Var(&cursor, "cursor", 0, "list events older than this id")
	return cmd
}

func userExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Freeze the projects into a dashboard export for an advisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, userID string) error {
				exp, err := w.Client.CreateDashboardExport(ctx, userID)
				if err != nil {
					return err
				}
				if _, err := w.Engine.FetchDashboardExport(ctx, exp.DashboardExportID); err != nil {
					return err
				}
				return printTable(exp, table.Row{"Export", "Projects", "Created"},
					[]table.Row{{exp.DashboardExportID, len(exp.Projects), exp.CreatedAt.Format("2006-01-02 15:04")}})
			})
		},
	}
}

func userAdvisorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advisor",
		Short: "Switch to the advisor experience",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				if _, err := w.Engine.MigrateToAdvisor(ctx); err != nil {
					return err
				}
				return done("advisor enabled")
			})
		},
	}
}
