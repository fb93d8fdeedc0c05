package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/model"
	"github.com/dori/tempo/internal/optimistic"
	"github.com/dori/tempo/internal/tasks"
)

var (
	taskProject  string
	taskArchived bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "List and update tasks",
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks, pinned first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(board *tasks.Board) error {
			var rows [][]string
			for _, t := range board.Tasks(taskArchived) {
				mark := ""
				if t.Pinned {
					mark = "*"
				}
				if t.Archived {
					mark += "a"
				}
				rows = append(rows, []string{mark, t.ID, t.Title, t.Status.Label(), fmt.Sprintf("%d%%", board.Progress(t))})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			tbl := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("", "ID", "Title", "Status", "Progress").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		})
	},
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <task-id> <percent>",
	Short: "Set the progress of a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
		if err != nil {
			return fmt.Errorf("invalid percent %q", args[1])
		}
		return mutate(cmd, func(b *tasks.Board) (optimistic.Pending[model.Task], error) {
			return b.SetProgress(args[0], pct)
		})
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Set the status of a task (backlog, pending, in_progress, done)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.Status(strings.ReplaceAll(strings.ToLower(args[1]), "-", "_"))
		return mutate(cmd, func(b *tasks.Board) (optimistic.Pending[model.Task], error) {
			return b.SetStatus(args[0], status)
		})
	},
}

func flagCmd(use, short string, apply func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(b *tasks.Board) (optimistic.Pending[model.Task], error) {
				return apply(b, args[0])
			})
		},
	}
}

// withBoard opens the app and loads the task board
func withBoard(cmd *cobra.Command, fn func(*tasks.Board) error) error {
	a, err := open(false)
	if err != nil {
		return err
	}
	defer a.Close()

	board := a.Board(api.TaskQuery{Project: taskProject})
	if err := board.Load(cmd.Context()); err != nil {
		return err
	}
	return fn(board)
}

// mutate applies one change through the board so that a failure goes
// through the same rollback and session handling as the TUI
func mutate(cmd *cobra.Command, begin func(*tasks.Board) (optimistic.Pending[model.Task], error)) error {
	return withBoard(cmd, func(board *tasks.Board) error {
		p, err := begin(board)
		if err != nil {
			return err
		}
		res := board.Do(cmd.Context(), p)
		if res.Failed() {
			return errors.New(res.Notice)
		}

		if p.Mutation.Delete {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", res.ID)
			return nil
		}
		if t, ok := board.Get(res.ID); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d%%\n", t.Title, t.Status.Label(), board.Progress(t))
		}
		return nil
	})
}

func init() {
	taskCmd.PersistentFlags().StringVar(&taskProject, "project", "", "Only tasks of this project")
	taskListCmd.Flags().BoolVarP(&taskArchived, "all", "a", false, "Include archived tasks")

	taskCmd.AddCommand(
		taskListCmd,
		taskProgressCmd,
		taskStatusCmd,
		flagCmd("pin", "Pin a task to the top of the board", func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error) {
			return b.SetPinned(id, true)
		}),
		flagCmd("unpin", "Unpin a task", func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error) {
			return b.SetPinned(id, false)
		}),
		flagCmd("archive", "Archive a task", func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error) {
			return b.SetArchived(id, true)
		}),
		flagCmd("unarchive", "Restore an archived task", func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error) {
			return b.SetArchived(id, false)
		}),
		flagCmd("rm", "Delete a task", func(b *tasks.Board, id string) (optimistic.Pending[model.Task], error) {
			return b.Delete(id)
		}),
	)
}
