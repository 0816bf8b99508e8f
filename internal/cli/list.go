package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/domain"
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of tasks to show")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of tasks to skip")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Substring match on id, prompt and directory")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, running, completed, failed)")
	listCmd.Flags().StringVar(&listModel, "model", "", "Filter by model (opus, sonnet, haiku)")
	listCmd.Flags().StringVar(&listGroup, "group", "", "Filter by orchestration group")
	listCmd.Flags().StringVar(&listSortBy, "sort", "", "Sort key (created_at, updated_at, complexity)")
	listCmd.Flags().StringVar(&listSortDir, "dir", "desc", "Sort direction (asc, desc)")
	rootCmd.AddCommand(listCmd)
}

var (
	listLimit   int
	listOffset  int
	listSearch  string
	listStatus  string
	listModel   string
	listGroup   string
	listSortBy  string
	listSortDir string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks on the backend",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filters := domain.TaskFilters{
		Search:  listSearch,
		Status:  domain.TaskStatus(listStatus),
		Model:   domain.Model(listModel),
		Group:   listGroup,
		SortBy:  listSortBy,
		SortDir: listSortDir,
	}

	var list []domain.Task
	if filters.IsZero() {
		list, err = svc.ListTasks(ctx, listLimit)
	} else {
		list, err = svc.ListTasksWithFilters(ctx, filters, listLimit, listOffset)
	}
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODEL\tGROUP\tCREATED\tDIRECTORY")
	for _, t := range list {
		group := t.OrchestrationGroup
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Status,
			t.Model,
			group,
			t.CreatedAt.Format("2006-01-02 15:04"),
			t.WorkingDir,
		)
	}
	return w.Flush()
}
