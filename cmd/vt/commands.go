package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vontta/internal/domain"
	"vontta/internal/engine"
	"vontta/internal/repo"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are one collaborator's planned and delivered activity on a date, with the hours spent (HH:mm). They live until the week is closed.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskQuickAddCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskGetCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskToggleCmd())
	task.AddCommand(taskDuplicateCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func printTasks(tasks []domain.Task) error {
	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, table.Row{t.ID, t.DueDate, t.CollaboratorID, t.PlannedActivity, t.Status, t.Priority, t.HoursDedicated})
	}
	return printRows(tasks, table.Row{"ID", "Date", "Collaborator", "Planned", "Status", "Priority", "Hours"}, rows)
}

func taskCreateCmd() *cobra.Command {
	var in engine.TaskInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&in.CollaboratorID, "collaborator", "", "collaborator id (defaults to the actor)")
	cmd.Flags().StringVar(&in.PlannedActivity, "planned", "", "planned activity")
	cmd.Flags().StringVar(&in.DeliveredActivity, "delivered", "", "delivered activity")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "Baixa, Média, Alta or Crítica")
	cmd.Flags().StringVar(&in.Status, "status", "", "Pendente, Em Andamento, Concluído or Bloqueado")
	cmd.Flags().StringVar(&in.DueDate, "date", "", "due date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&in.HoursDedicated, "hours", "", "hours as HH:mm")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("planned")
	return cmd
}

func taskQuickAddCmd() *cobra.Command {
	var in engine.QuickAddInput
	cmd := &cobra.Command{
		Use:   "quick-add <activity>",
		Short: "Add a pending task for the actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			in.Activity = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.QuickAdd(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&in.Date, "date", "", "date YYYY-MM-DD (defaults to today)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().StringVar(&f.CollaboratorID, "collaborator", "", "collaborator filter")
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.DueFrom, "from", "", "first due date")
	cmd.Flags().StringVar(&f.DueTo, "to", "", "last due date")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var project, collaborator, planned, delivered, priority, status, date, hours, notes string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			patch := domain.TaskPatch{
				ProjectID:         optionalString(cmd, "project", project),
				CollaboratorID:    optionalString(cmd, "collaborator", collaborator),
				PlannedActivity:   optionalString(cmd, "planned", planned),
				DeliveredActivity: optionalString(cmd, "delivered", delivered),
				Priority:          optionalString(cmd, "priority", priority),
				Status:            optionalString(cmd, "status", status),
				DueDate:           optionalString(cmd, "date", date),
				HoursDedicated:    optionalString(cmd, "hours", hours),
				Notes:             optionalString(cmd, "notes", notes),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, actor, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().StringVar(&collaborator, "collaborator", "", "collaborator id")
	cmd.Flags().StringVar(&planned, "planned", "", "planned activity")
	cmd.Flags().StringVar(&delivered, "delivered", "", "delivered activity")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&date, "date", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&hours, "hours", "", "hours as HH:mm")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

// taskActionCmd builds the one-argument task commands that return the task.
func taskActionCmd(use, short string, fn func(ctx context.Context, e engine.Engine, actor, id string) (domain.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := fn(ctx, e, actor, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskToggleCmd() *cobra.Command {
	return taskActionCmd("toggle", "Toggle between completed and pending", func(ctx context.Context, e engine.Engine, actor, id string) (domain.Task, error) {
		return e.ToggleCompletion(ctx, actor, id)
	})
}

func taskDuplicateCmd() *cobra.Command {
	return taskActionCmd("duplicate", "Copy a task as a new pending task of the actor", func(ctx context.Context, e engine.Engine, actor, id string) (domain.Task, error) {
		return e.DuplicateTask(ctx, actor, id)
	})
}

func taskMoveCmd() *cobra.Command {
	var date string
	cmd := taskActionCmd("move", "Reschedule a task", func(ctx context.Context, e engine.Engine, actor, id string) (domain.Task, error) {
		return e.MoveTaskDate(ctx, actor, id, date)
	})
	cmd.Flags().StringVar(&date, "date", "", "new date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, actor, args[0])
			})
		},
	}
}

func boardCmd() *cobra.Command {
	board := &cobra.Command{
		Use:   "board",
		Short: "Manage board cards",
		Long:  "Cards move TODO -> DOING -> DONE; CANCELED can be reopened. Cards are archived with the week.",
	}
	board.AddCommand(boardListCmd())
	board.AddCommand(boardCreateCmd())
	board.AddCommand(boardMoveCmd())
	board.AddCommand(boardSubtaskCmd())
	board.AddCommand(boardDeleteCmd())
	return board
}

func boardListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cards, err := e.ListBoard(ctx, status)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(cards))
				for _, b := range cards {
					done := 0
					for _, st := range b.Subtasks {
						if st.Completed {
							done++
						}
					}
					rows = append(rows, table.Row{b.ID, b.Title, b.Status, strings.Join(b.MemberIDs, ", "), fmt.Sprintf("%d/%d", done, len(b.Subtasks))})
				}
				return printRows(cards, table.Row{"ID", "Title", "Status", "Members", "Subtasks"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "column filter")
	return cmd
}

func boardCreateCmd() *cobra.Command {
	var in engine.BoardTaskInput
	var subtasks []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			for _, title := range subtasks {
				in.Subtasks = append(in.Subtasks, domain.Subtask{Title: title})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.CreateBoardTask(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.StartDate, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&in.EndDate, "end", "", "end date YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&in.MemberIDs, "member", nil, "member profile id (repeatable)")
	cmd.Flags().StringVar(&in.Status, "status", "", "initial column (defaults to TODO)")
	cmd.Flags().StringArrayVar(&subtasks, "subtask", nil, "subtask title (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func boardMoveCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.MoveBoardTask(ctx, actor, args[0], status)
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "target column")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func boardSubtaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-subtask <card-id> <subtask-id>",
		Short: "Flip a subtask's completed flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.ToggleSubtask(ctx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
}

func boardDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteBoardTask(ctx, actor, args[0])
			})
		},
	}
}

func sectorCmd() *cobra.Command {
	sector := &cobra.Command{Use: "sector", Short: "Manage sectors (admin)"}
	sector.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListSectors(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, s := range items {
					rows = append(rows, table.Row{s.ID, s.Name})
				}
				return printRows(items, table.Row{"ID", "Name"}, rows)
			})
		},
	})
	sector.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSector(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	sector.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename sector; tasks keep their old sector name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.RenameSector(ctx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	})
	sector.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSector(ctx, actor, args[0])
			})
		},
	})
	return sector
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects (admin)"}
	prj.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, p := range items {
					rows = append(rows, table.Row{p.ID, p.Name, p.SectorID})
				}
				return printRows(items, table.Row{"ID", "Name", "Sector"}, rows)
			})
		},
	})

	var in engine.ProjectInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "project name")
	create.Flags().StringVar(&in.SectorID, "sector", "", "sector id")
	_ = create.MarkFlagRequired("name")
	prj.AddCommand(create)

	var upd engine.ProjectInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename project or change its sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProject(ctx, actor, args[0], upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "project name")
	update.Flags().StringVar(&upd.SectorID, "sector", "", "sector id")
	_ = update.MarkFlagRequired("name")
	prj.AddCommand(update)

	prj.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProject(ctx, actor, args[0])
			})
		},
	})
	return prj
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage profiles"}
	user.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProfiles(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, p := range items {
					rows = append(rows, table.Row{p.ID, p.Name, p.Email, p.Role, p.Sector})
				}
				return printRows(items, table.Row{"ID", "Name", "Email", "Role", "Sector"}, rows)
			})
		},
	})

	var in engine.ProfileInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create profile (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProfile(ctx, actor, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	create.Flags().StringVar(&in.ID, "id", "", "profile id (generated if empty)")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Email, "email", "", "email")
	create.Flags().StringVar(&in.Role, "role", "", "admin or user")
	create.Flags().StringVar(&in.Sector, "sector", "", "sector name")
	_ = create.MarkFlagRequired("name")
	user.AddCommand(create)

	var name, email, role, sectorName string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			patch := domain.ProfilePatch{
				Name:   optionalString(cmd, "name", name),
				Email:  optionalString(cmd, "email", email),
				Role:   optionalString(cmd, "role", role),
				Sector: optionalString(cmd, "sector", sectorName),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProfile(ctx, actor, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	update.Flags().StringVar(&name, "name", "", "display name")
	update.Flags().StringVar(&email, "email", "", "email")
	update.Flags().StringVar(&role, "role", "", "admin or user")
	update.Flags().StringVar(&sectorName, "sector", "", "sector name")
	user.AddCommand(update)

	user.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete profile (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProfile(ctx, actor, args[0])
			})
		},
	})
	return user
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals and collaborator load for the live week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d := e.Dashboard()
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("Total hours: %s\n", d.TotalHours)
				fmt.Printf("Completion: %d%% (%d of %d)\n", d.Completion.Percent, d.Completion.Completed, d.Completion.Total)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Collaborator", "Hours", "Load", "Tier"})
				for _, l := range d.Loads {
					tw.AppendRow(table.Row{l.Name, l.Hours, fmt.Sprintf("%.0f%%", l.Percent), l.Tier})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func weekCmd() *cobra.Command {
	week := &cobra.Command{Use: "week", Short: "Week lifecycle"}
	week.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Archive the live week into history and clear it (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CloseWeek(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("Archived week %s: %s hours, %d completed, %d pending\n", res.HistoryID, res.TotalHours, res.TasksCompleted, res.TasksPending)
				if !res.FullyClosed() {
					fmt.Printf("warning: cleanup incomplete (tasks cleared: %t, cards cleared: %t)\n", res.Cleanup.TasksDeleted, res.Cleanup.BoardTasksDeleted)
				}
				return nil
			})
		},
	})
	return week
}

func historyCmd() *cobra.Command {
	hist := &cobra.Command{Use: "history", Short: "Closed weeks"}
	hist.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List closed weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListHistory(ctx)
				if err != nil {
					return err
				}
				loc := e.Location()
				rows := make([]table.Row, 0, len(items))
				for _, h := range items {
					rows = append(rows, table.Row{h.ID, h.DisplayTitle(loc), h.TotalHours, h.TasksCompleted, h.TasksPending})
				}
				return printRows(items, table.Row{"ID", "Title", "Hours", "Completed", "Pending"}, rows)
			})
		},
	})
	hist.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show report rows of a closed week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.Report(ctx, args[0])
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(rep.Tasks))
				for _, r := range rep.Tasks {
					rows = append(rows, table.Row{r.Project, r.Collaborator, r.Planned, r.Status, r.DueDate, r.Hours})
				}
				return printRows(rep, table.Row{"Project", "Collaborator", "Planned", "Status", "Date", "Hours"}, rows)
			})
		},
	})
	hist.AddCommand(&cobra.Command{
		Use:   "rename <id> [title]",
		Short: "Set the title of a closed week; omit it to restore the default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 2 {
				title = args[1]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				h, err := e.RenameHistory(ctx, actor, args[0], title)
				if err != nil {
					return err
				}
				fmt.Println(h.DisplayTitle(e.Location()))
				return nil
			})
		},
	})
	var out string
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the report of a closed week as xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = "vontta-" + args[0] + ".xlsx"
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := e.ExportHistory(ctx, args[0], f); err != nil {
					f.Close()
					os.Remove(out)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", out)
				return nil
			})
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "output file")
	hist.AddCommand(export)
	return hist
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
		Long:  "Every create, update and delete, newest first.",
	}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show latest entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				logs, err := e.Activity(ctx, n)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(logs))
				for _, l := range logs {
					rows = append(rows, table.Row{l.TS, l.UserID, l.Action, l.Description})
				}
				return printRows(logs, table.Row{"When", "User", "Action", "Description"}, rows)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	log.AddCommand(tail)
	return log
}

func chatCmd() *cobra.Command {
	chat := &cobra.Command{Use: "chat", Short: "Team assistant"}
	chat.AddCommand(&cobra.Command{
		Use:   "channels",
		Short: "List channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ChatChannels(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, c := range items {
					rows = append(rows, table.Row{c.ID, c.Name, c.IsLocked})
				}
				return printRows(items, table.Row{"ID", "Name", "Locked"}, rows)
			})
		},
	})
	chat.AddCommand(&cobra.Command{
		Use:   "create-channel <name>",
		Short: "Create a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ch, err := e.CreateChatChannel(ctx, actor, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ch)
				}
				fmt.Printf("Created channel %s (%s)\n", ch.Name, ch.ID)
				return nil
			})
		},
	})
	chat.AddCommand(&cobra.Command{
		Use:   "send <channel-id> <message>",
		Short: "Ask the assistant (needs VONTTA_GEMINI_API_KEY)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				reply, err := e.SendChat(ctx, actor, args[0], args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(reply)
				}
				fmt.Println(reply.Content)
				return nil
			})
		},
	})
	return chat
}

func apiKeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	keys.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create an API key for the actor; the key is shown once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				k, raw, err := e.CreateAPIKey(ctx, actor, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": k.ID, "user_id": k.UserID, "key": raw})
				}
				fmt.Println(raw)
				return nil
			})
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for i, k := range items {
					items[i].KeyHash = ""
					rows = append(rows, table.Row{k.ID, k.UserID, k.Name, k.CreatedAt})
				}
				return printRows(items, table.Row{"ID", "User", "Name", "Created"}, rows)
			})
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorID()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAPIKey(ctx, actor, args[0])
			})
		},
	})
	return keys
}
