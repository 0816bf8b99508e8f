package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a single task's status and details",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	t, err := svc.GetTaskStatus(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:         %s\n", t.ID)
	fmt.Printf("Status:     %s\n", t.Status)
	fmt.Printf("Model:      %s\n", t.Model)
	fmt.Printf("Directory:  %s\n", t.WorkingDir)
	fmt.Printf("Created:    %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:    %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	if t.OrchestrationGroup != "" {
		fmt.Printf("Group:      %s\n", t.OrchestrationGroup)
	}
	if len(t.DependsOn) > 0 {
		fmt.Printf("Depends on: %s\n", strings.Join(t.DependsOn, ", "))
	}
	if t.Metadata != nil {
		fmt.Printf("Complexity: %s (score %d)\n", t.ComplexityLabel(), t.ComplexityScore())
	}
	if t.Error != "" {
		fmt.Printf("Error:      %s\n", t.Error)
	}
	if len(t.Result) > 0 {
		fmt.Printf("Result:     %s\n", string(t.Result))
	}
	return nil
}
