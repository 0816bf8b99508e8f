package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(clearCmd)
}

var rmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Delete one or more tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if len(args) == 1 {
		if err := svc.DeleteTask(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	}

	res, err := svc.BulkDeleteTasks(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d task(s), %d failed\n", res.Processed, res.Failed)
	for _, e := range res.Errors {
		fmt.Printf("  %s: %s\n", e.ID, e.Message)
	}
	return nil
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all completed and failed tasks",
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	res, err := svc.ClearTasks(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Cleared %d task(s)\n", res.Removed)
	return nil
}
