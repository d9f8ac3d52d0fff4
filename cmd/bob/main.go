package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bobemploi/internal/app"
	"bobemploi/internal/db"
	"bobemploi/internal/domain"
	"bobemploi/internal/metrics"
	"bobemploi/internal/selector"
)

var rootCmd = &cobra.Command{
	Use:   "bob",
	Short: "Bob Emploi CLI",
	Long: `bob drives a Bob Emploi account from the terminal.
Core concepts:
- Workspace: the .bob directory holding the SQLite database and, optionally, bob.yml.
- Session: the user and token signed in to a backend host; kept per host in the workspace.
- Project: a job search (target job and city). The first one is built in steps and finished with 'bob project finish'.
- Action plan: actions generated for each current project; 'bob plan refresh' tops it up.
- Actions move UNREAD -> CURRENT -> DONE, STUCK, SNOOZED or DECLINED; stuck actions are done step by step.
- Advices: recommendations attached to a project, each with tips that can be saved as actions.
- serve: runs a development backend implementing the same HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("BOB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("host", "", "backend URL (overrides client.base_url)")
	rootCmd.PersistentFlags().String("project", "", "project id (defaults to the first current project)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides logging.level)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(passwordCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(adviceCmd())
	rootCmd.AddCommand(feedbackCmd())
	rootCmd.AddCommand(likeCmd())
	rootCmd.AddCommand(jobsCmd())
}

// --- helpers ---

func withWorkspace(ctx context.Context, fn func(context.Context, *app.Workspace) error) error {
	w, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Host:      viper.GetString("host"),
		LogLevel:  viper.GetString("log-level"),
		Metrics:   metrics.Default(),
	})
	if err != nil {
		return err
	}
	defer w.Close()
	return fn(ctx, w)
}

// withUser is withWorkspace for commands that need a signed in user.
func withUser(ctx context.Context, fn func(context.Context, *app.Workspace, string) error) error {
	return withWorkspace(ctx, func(ctx context.Context, w *app.Workspace) error {
		userID, err := w.RequireUser()
		if err != nil {
			return err
		}
		return fn(ctx, w, userID)
	})
}

// currentProject returns the --project project, else the first complete
// project of the user.
func currentProject(w *app.Workspace) (domain.Project, error) {
	u := w.Store.GetState().User
	if id := viper.GetString("project"); id != "" {
		p, ok := selector.FindProject(u, id)
		if !ok {
			return domain.Project{}, fmt.Errorf("project %s not found", id)
		}
		return p, nil
	}
	if u != nil {
		for _, p := range u.Projects {
			if !p.IsIncomplete && p.ProjectID != "" {
				return p, nil
			}
		}
	}
	return domain.Project{}, errors.New("no project yet; run bob project create")
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows, or v as JSON with --json.
func printTable(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

// done prints msg, or {"ok": true} with --json.
func done(msg string, args ...any) error {
	if viper.GetBool("json") {
		return printJSON(map[string]any{"ok": true})
	}
	fmt.Printf(msg+"\n", args...)
	return nil
}

func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := viper.GetString("password"); p != "" {
		return p, nil
	}
	return "", errors.New("--password or BOB_PASSWORD required")
}

func jsonOutput() bool {
	return viper.GetBool("json")
}
