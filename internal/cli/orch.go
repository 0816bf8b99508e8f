package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/domain"
)

func init() {
	orchCmd.AddCommand(orchSubmitCmd)
	orchCmd.AddCommand(orchListCmd)
	orchCmd.AddCommand(orchShowCmd)
	orchCmd.AddCommand(orchRmCmd)
	rootCmd.AddCommand(orchCmd)
}

var orchCmd = &cobra.Command{
	Use:     "orch",
	Aliases: []string{"orchestration"},
	Short:   "Manage orchestration groups",
}

var orchSubmitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit an orchestration group from a JSON file",
	Long: `Submit a task group described as JSON:

  {
    "name": "release-checks",
    "tasks": [
      {"identifier": "lint", "prompt": "run the linter", "model": "haiku"},
      {"identifier": "test", "prompt": "run the tests", "depends_on": ["lint"]}
    ]
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runOrchSubmit,
}

func runOrchSubmit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read submission: %w", err)
	}
	var sub domain.OrchestrationSubmission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("parse submission: %w", err)
	}
	if len(sub.Tasks) == 0 {
		return fmt.Errorf("submission has no tasks")
	}

	svc, _, err := newService()
	if err != nil {
		return err
	}

	orch, err := svc.SubmitOrchestration(context.Background(), sub)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted orchestration %s with %d task(s)\n", orch.ID, orch.TotalTasks)
	return nil
}

var orchListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List orchestration groups",
	RunE:    runOrchList,
}

func runOrchList(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	list, err := svc.ListOrchestrations(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No orchestrations found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROGRESS\tCREATED")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			o.ID,
			o.Name,
			o.Status,
			o.CompletedTasks+o.FailedTasks,
			o.TotalTasks,
			o.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

var orchShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an orchestration group and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrchShow,
}

func runOrchShow(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	o, err := svc.GetOrchestration(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", o.ID)
	if o.Name != "" {
		fmt.Printf("Name:     %s\n", o.Name)
	}
	fmt.Printf("Status:   %s\n", o.Status)
	fmt.Printf("Progress: %.0f%% (%d ok, %d failed of %d)\n",
		o.Progress()*100, o.CompletedTasks, o.FailedTasks, o.TotalTasks)

	if len(o.Tasks) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nTASK\tSTATUS\tMODEL")
		for _, t := range o.Tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Status, t.Model)
		}
		return w.Flush()
	}
	return nil
}

var orchRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete an orchestration group",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrchRm,
}

func runOrchRm(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	if err := svc.DeleteOrchestration(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted orchestration %s\n", args[0])
	return nil
}
