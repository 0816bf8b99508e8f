package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format (csv, json, excel)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (stdout when empty)")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 0, "Maximum number of tasks to export")
	rootCmd.AddCommand(exportCmd)
}

var (
	exportFormat string
	exportOutput string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tasks as CSV, JSON or tab-separated text",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	list, err := svc.ListTasks(context.Background(), exportLimit)
	if err != nil {
		return err
	}

	format := tasks.ExportFormat(exportFormat)
	data, err := tasks.ExportTasks(list, format)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}

	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Exported %d task(s) to %s\n", len(list), exportOutput)
	return nil
}
