package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bobemploi/internal/app"
	"bobemploi/internal/domain"
	"bobemploi/internal/selector"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectFinishCmd())
	prj.AddCommand(projectStatusCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				u := w.Store.GetState().User
				rows := make([]table.Row, 0, len(u.Projects))
				for _, p := range u.Projects {
					status := string(p.Status)
					if p.IsIncomplete {
						status = "draft"
					}
					rows = append(rows, table.Row{p.ProjectID, p.Title, status, len(p.Actions), len(p.Advices)})
				}
				return printTable(u.Projects, table.Row{"ID", "Title", "Status", "Actions", "Advices"}, rows)
			})
		},
	}
}

// projectCreateCmd drafts the first project, or edits the draft.
func projectCreateCmd() *cobra.Command {
	var title, romeID, jobName, codeOGR, city string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Draft the first project",
		Long:  "Drafts the project, or edits the draft if one exists. Finish it with 'bob project finish' to get an action plan.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				p := domain.Project{Title: title}
				if romeID != "" || jobName != "" {
					p.TargetJob = &domain.Job{CodeOGR: codeOGR, Name: jobName, JobGroup: domain.JobGroup{RomeID: romeID}}
				}
				if city != "" {
					p.City = &domain.City{Name: city}
				}
				u := w.Store.GetState().User
				if _, ok := selector.IncompleteProject(u); ok {
					if err := w.Engine.EditFirstProject(ctx, p); err != nil {
						return err
					}
					return done("draft updated")
				}
				if len(u.Projects) > 0 {
					return fmt.Errorf("only the first project can be created here; %d project(s) already exist", len(u.Projects))
				}
				if err := w.Engine.CreateProject(ctx, p); err != nil {
					return err
				}
				return done("draft created")
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&romeID, "rome-id", "", "job group of the target job")
	cmd.Flags().StringVar(&jobName, "job", "", "target job name")
	cmd.Flags().StringVar(&codeOGR, "code-ogr", "", "target job code")
	cmd.Flags().StringVar(&city, "city", "", "city")
	return cmd
}

func projectFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish",
		Short: "Complete the draft and get an action plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				if err := w.Engine.FinishProjectCreation(ctx); err != nil {
					return err
				}
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				if err := w.Engine.LoadProject(ctx, p.ProjectID); err != nil {
					w.Logger.Warn("loading project resources failed", "project", p.ProjectID, "error", err)
				}
				return printActions(p)
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <current|standby|completed>",
		Short: "Change the status of the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := map[string]domain.ProjectStatus{
				"current":   domain.ProjectCurrent,
				"standby":   domain.ProjectOnStandby,
				"completed": domain.ProjectCompleted,
			}
			status, ok := statuses[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown project status %q", args[0])
			}
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				if err := w.Engine.SetProjectStatus(ctx, p.ProjectID, status); err != nil {
					return err
				}
				return done("project %s is %s", p.ProjectID, status)
			})
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				if err := w.Engine.DeleteProject(ctx, args[0]); err != nil {
					return err
				}
				return done("deleted project %s", args[0])
			})
		},
	}
}

func planCmd() *cobra.Command {
	plan := &cobra.Command{Use: "plan", Short: "Manage the action plan"}
	plan.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Top up the action plan of every current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, w *app.Workspace, _ string) error {
				if _, err := w.Engine.RefreshActionPlan(ctx); err != nil {
					return err
				}
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				return printActions(p)
			})
		},
	})
	return plan
}

func actionsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions of the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				if !all {
					p.PastActions = nil
				}
				return printActions(p)
			})
		},
	}
	cmd.PersistentFlags().BoolVar(&all, "all", false, "include past actions")
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the actions of the project",
		RunE:  cmd.RunE,
	})
	return cmd
}

func printActions(p domain.Project) error {
	var rows []table.Row
	add := func(list []domain.Action) {
		for _, a := range list {
			progress := ""
			if selector.IsStuck(a) {
				progress = fmt.Sprintf("%.0f%%", 100*selector.StickyProgress(a))
			}
			rows = append(rows, table.Row{a.ActionID, a.Title, strings.TrimPrefix(string(a.Status), "ACTION_"), progress})
		}
	}
	add(p.StickyActions)
	add(p.Actions)
	add(p.PastActions)
	type out struct {
		ProjectID     string          `json:"projectId"`
		Actions       []domain.Action `json:"actions"`
		StickyActions []domain.Action `json:"stickyActions"`
		PastActions   []domain.Action `json:"pastActions,omitempty"`
	}
	return printTable(out{p.ProjectID, p.Actions, p.StickyActions, p.PastActions},
		table.Row{"ID", "Title", "Status", "Progress"}, rows)
}

func actionCmd() *cobra.Command {
	act := &cobra.Command{Use: "action", Short: "Work on an action"}
	act.AddCommand(actionShowCmd())
	act.AddCommand(actionReadCmd())
	act.AddCommand(actionDoneCmd())
	act.AddCommand(actionDeclineCmd(domain.ActionSnoozed))
	act.AddCommand(actionDeclineCmd(domain.ActionDeclined))
	act.AddCommand(actionStickCmd())
	act.AddCommand(actionStepCmd())
	act.AddCommand(actionSaveCmd())
	return act
}

// withProject runs fn on the current project of the signed in user.
func withProject(ctx context.Context, fn func(context.Context, *app.Workspace, domain.Project) error) error {
	return withUser(ctx, func(ctx context.Context, w *app.Workspace, _ string) error {
		p, err := currentProject(w)
		if err != nil {
			return err
		}
		return fn(ctx, w, p)
	})
}

func actionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <action-id>",
		Short: "Show an action and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				a, ok := selector.FindAction(p, args[0])
				if !ok {
					return fmt.Errorf("action %s not found", args[0])
				}
				if jsonOutput() {
					return printJSON(a)
				}
				fmt.Printf("%s [%s]\n", a.Title, a.Status)
				if a.ShortDescription != "" {
					fmt.Println(a.ShortDescription)
				}
				if len(a.Steps) == 0 {
					return nil
				}
				rows := make([]table.Row, 0, len(a.Steps))
				for _, s := range a.Steps {
					rows = append(rows, table.Row{s.StepID, s.Title, s.IsDone})
				}
				return printTable(a, table.Row{"Step", "Title", "Done"}, rows)
			})
		},
	}
}

func actionReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <action-id>",
		Short: "Open an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.ReadAction(ctx, p.ProjectID, args[0]); err != nil {
					return err
				}
				return done("action %s opened", args[0])
			})
		},
	}
}

func actionDoneCmd() *cobra.Command {
	var text string
	var usefulness int
	cmd := &cobra.Command{
		Use:   "done <action-id>",
		Short: "Mark an action as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				fb := domain.ActionFeedback{Usefulness: usefulness, Text: text}
				if err := w.Engine.FinishAction(ctx, p.ProjectID, args[0], fb); err != nil {
					return err
				}
				return done("action %s done", args[0])
			})
		},
	}
	cmd.Flags().StringVar(&text, "feedback", "", "what went well or badly")
	cmd.Flags().IntVar(&usefulness, "usefulness", 0, "how useful the action was, 1 to 5")
	return cmd
}

func actionDeclineCmd(status domain.ActionStatus) *cobra.Command {
	var reason string
	use, short := "decline", "Decline an action for good"
	if status == domain.ActionSnoozed {
		use, short = "snooze", "Put an action aside for now"
	}
	cmd := &cobra.Command{
		Use:   use + " <action-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.DeclineAction(ctx, p.ProjectID, args[0], status, reason); err != nil {
					return err
				}
				return done("action %s %s", args[0], strings.ToLower(strings.TrimPrefix(string(status), "ACTION_")))
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why")
	return cmd
}

func actionStickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stick <action-id>",
		Short: "Commit to the steps of an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.StickAction(ctx, p.ProjectID, args[0], nil); err != nil {
					return err
				}
				return done("action %s stuck", args[0])
			})
		},
	}
}

func actionStepCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "step <action-id> <step-id>",
		Short: "Finish a step of a stuck action",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.FinishStickyActionStep(ctx, p.ProjectID, args[0], args[1], text); err != nil {
					return err
				}
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				if a, ok := selector.FindAction(p, args[0]); ok {
					return done("step %s done, %.0f%% of %s", args[1], 100*selector.StickyProgress(a), a.Title)
				}
				return done("step %s done", args[1])
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "note about the step")
	return cmd
}

func actionSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <action-id>",
		Short: "Keep an action for later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				a, ok := selector.FindAction(p, args[0])
				if !ok {
					return fmt.Errorf("action %s not found", args[0])
				}
				if err := w.Engine.SaveAction(ctx, p.ProjectID, a); err != nil {
					return err
				}
				return done("action %s saved", args[0])
			})
		},
	}
}

func adviceCmd() *cobra.Command {
	adv := &cobra.Command{Use: "advice", Short: "Read project advices"}
	adv.AddCommand(adviceListCmd())
	adv.AddCommand(adviceReadCmd())
	adv.AddCommand(adviceRateCmd())
	adv.AddCommand(adviceTipsCmd())
	return adv
}

func adviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the advices of the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), func(ctx context.Context, w *app.Workspace) error {
				p, err := currentProject(w)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(p.Advices))
				for _, a := range p.Advices {
					rows = append(rows, table.Row{a.AdviceID, a.Kind(), strings.TrimPrefix(string(a.Status), "ADVICE_"), a.NumStars})
				}
				return printTable(p.Advices, table.Row{"ID", "Kind", "Status", "Stars"}, rows)
			})
		},
	}
}

func adviceReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <advice-id>",
		Short: "Mark an advice as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.ReadAdvice(ctx, p.ProjectID, args[0]); err != nil {
					return err
				}
				return done("advice %s read", args[0])
			})
		},
	}
}

func adviceRateCmd() *cobra.Command {
	var stars int
	cmd := &cobra.Command{
		Use:   "rate <advice-id>",
		Short: "Rate an advice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				if err := w.Engine.RateAdvice(ctx, p.ProjectID, args[0], stars); err != nil {
					return err
				}
				return done("advice %s rated %d", args[0], stars)
			})
		},
	}
	cmd.Flags().IntVar(&stars, "stars", 0, "rating, 1 to 5")
	_ = cmd.MarkFlagRequired("stars")
	return cmd
}

func adviceTipsCmd() *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "tips <advice-id>",
		Short: "List the tips of an advice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, w *app.Workspace, p domain.Project) error {
				tips, err := w.Engine.FetchAdviceTips(ctx, p.ProjectID, args[0])
				if err != nil {
					return err
				}
				if save != "" {
					for _, tip := range tips {
						if tip.ActionTemplateID == save {
							if err := w.Engine.SaveTip(ctx, p.ProjectID, tip); err != nil {
								return err
							}
							return done("tip %s saved as an action", save)
						}
					}
					return fmt.Errorf("tip %s is not part of advice %s", save, args[0])
				}
				rows := make([]table.Row, 0, len(tips))
				for _, tip := range tips {
					rows = append(rows, table.Row{tip.ActionTemplateID, tip.Title, tip.ShortDescription})
				}
				return printTable(tips, table.Row{"ID", "Title", "Description"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "save the tip with this id as an action")
	return cmd
}
