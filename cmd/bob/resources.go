package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bobemploi/internal/app"
	"bobemploi/internal/domain"
)

func feedbackCmd() *cobra.Command {
	fb := &cobra.Command{Use: "feedback", Short: "Send feedback to the Bob team"}
	var text, source, actionID, adviceID string
	send := &cobra.Command{
		Use:   "send",
		Short: "Send feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				req := domain.Feedback{Feedback: text, Source: source, ActionID: actionID, AdviceID: adviceID}
				if p, err := currentProject(w); err == nil {
					req.ProjectID = p.ProjectID
				}
				if err := w.Engine.SendFeedback(ctx, req); err != nil {
					return err
				}
				return done("thanks for the feedback")
			})
		},
	}
	send.Flags().StringVar(&text, "text", "", "feedback")
	send.Flags().StringVar(&source, "source", "GENERAL", "what the feedback is about")
	send.Flags().StringVar(&actionID, "action", "", "action the feedback is about")
	send.Flags().StringVar(&adviceID, "advice", "", "advice the feedback is about")
	_ = send.MarkFlagRequired("text")
	fb.AddCommand(send)
	return fb
}

func likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <feature> [score]",
		Short: "Vote for a feature: 1 likes, -1 dislikes, 0 clears",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score := 1
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid score %q: %w", args[1], err)
				}
				score = n
			}
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				if err := w.Engine.LikeFeature(ctx, args[0], score); err != nil {
					return err
				}
				return done("%s: %d", args[0], score)
			})
		},
	}
}

func jobsCmd() *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Look up job groups"}
	jobs.AddCommand(jobsShowCmd())
	jobs.AddCommand(jobsExploreCmd())
	return jobs
}

func jobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <rome-id>",
		Short: "Show a job group and what employers ask for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				g, err := w.Engine.FetchJob(ctx, args[0])
				if err != nil {
					return err
				}
				rows := []table.Row{{"rome id", g.RomeID}, {"name", g.Name}}
				jobs := make([]string, 0, len(g.Jobs))
				for _, j := range g.Jobs {
					jobs = append(jobs, j.Name)
				}
				rows = append(rows, table.Row{"jobs", strings.Join(jobs, ", ")})
				if r := g.Requirements; r != nil {
					rows = append(rows,
						table.Row{"diplomas", strings.Join(r.Diplomas, ", ")},
						table.Row{"skills", strings.Join(r.Skills, ", ")},
						table.Row{"licenses", strings.Join(r.DrivingLicenses, ", ")})
				}
				return printTable(g, table.Row{"Field", "Value"}, rows)
			})
		},
	}
}

func jobsExploreCmd() *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "List job groups, or their market with --stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				if stats {
					items, err := w.Engine.ExploreJobStats(ctx)
					if err != nil {
						return err
					}
					rows := make([]table.Row, 0, len(items))
					for _, s := range items {
						rows = append(rows, table.Row{s.RomeID, s.Name, s.NumAvailableOffers, fmt.Sprintf("%.2f", s.MarketStress)})
					}
					return printTable(items, table.Row{"Rome ID", "Name", "Offers", "Stress"}, rows)
				}
				groups, err := w.Engine.ExploreJobs(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, table.Row{g.RomeID, g.Name, len(g.Jobs)})
				}
				return printTable(groups, table.Row{"Rome ID", "Name", "Jobs"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "show offers and market stress")
	return cmd
}
