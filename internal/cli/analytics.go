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
	rootCmd.AddCommand(analyticsCmd)
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show aggregate task metrics",
	RunE:  runAnalytics,
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}

	a, err := svc.GetTaskAnalytics(context.Background())
	if err != nil {
		return err
	}

	source := "backend"
	if a.Local {
		source = "computed locally"
	}
	fmt.Printf("Total tasks: %d (%s)\n", a.Total, source)
	fmt.Printf("Success rate: %.1f%%\n\n", a.SuccessRate)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, s := range []domain.TaskStatus{domain.StatusPending, domain.StatusRunning, domain.StatusCompleted, domain.StatusFailed} {
		if n := a.ByStatus[s]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", s, n)
		}
	}
	fmt.Fprintln(w, "\nMODEL\tCOUNT")
	for _, m := range []domain.Model{domain.ModelOpus, domain.ModelSonnet, domain.ModelHaiku} {
		if n := a.ByModel[m]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", m, n)
		}
	}
	fmt.Fprintf(w, "\nCOMPLEXITY\tCOUNT\n")
	fmt.Fprintf(w, "low\t%d\n", a.Complexity.Low)
	fmt.Fprintf(w, "medium\t%d\n", a.Complexity.Medium)
	fmt.Fprintf(w, "high\t%d\n", a.Complexity.High)
	return w.Flush()
}
