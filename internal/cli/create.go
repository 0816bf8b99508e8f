package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/domain"
)

func init() {
	createCmd.Flags().StringVarP(&createModel, "model", "m", "sonnet", "Execution model (opus, sonnet, haiku)")
	createCmd.Flags().StringVarP(&createDir, "dir", "d", ".", "Working directory for the task")
	createCmd.Flags().StringVarP(&createGroup, "group", "g", "", "Orchestration group")
	createCmd.Flags().StringSliceVar(&createDeps, "depends-on", nil, "Task identifiers this task depends on")
	createCmd.Flags().StringVar(&createTemplate, "template", "", "Creation template name")
	rootCmd.AddCommand(createCmd)
}

var (
	createModel    string
	createDir      string
	createGroup    string
	createDeps     []string
	createTemplate string
)

var createCmd = &cobra.Command{
	Use:   "create PROMPT",
	Short: "Create a task on the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	spec := domain.TaskSpec{
		Prompt:             args[0],
		Model:              domain.Model(createModel),
		WorkingDir:         createDir,
		OrchestrationGroup: createGroup,
		DependsOn:          createDeps,
	}
	if createTemplate != "" {
		spec.Metadata = &domain.TaskMetadata{Template: createTemplate}
	}

	task, err := svc.CreateTask(context.Background(), spec)
	if err != nil {
		return err
	}

	fmt.Printf("Created task %s (%s, %s)\n", task.ID, task.Model, task.Status)
	return nil
}
