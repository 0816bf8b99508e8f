package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/domain"
)

func init() {
	bulkCmd.AddCommand(bulkStatusCmd)
	rootCmd.AddCommand(bulkCmd)
}

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Bulk operations on multiple tasks",
}

var bulkStatusCmd = &cobra.Command{
	Use:   "status STATUS ID...",
	Short: "Set the status of several tasks at once",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBulkStatus,
}

func runBulkStatus(cmd *cobra.Command, args []string) error {
	status := domain.TaskStatus(args[0])
	if !status.Valid() {
		return fmt.Errorf("invalid status %q (want pending, running, completed or failed)", args[0])
	}

	svc, _, err := newService()
	if err != nil {
		return err
	}

	res, err := svc.BulkUpdateTaskStatus(context.Background(), args[1:], status)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d task(s), %d failed\n", res.Processed, res.Failed)
	for _, e := range res.Errors {
		fmt.Printf("  %s: %s\n", e.ID, e.Message)
	}
	return nil
}
