package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/health"
)

func init() {
	healthCmd.Flags().BoolVarP(&healthWatch, "watch", "w", false, "Keep polling and print state transitions")
	rootCmd.AddCommand(healthCmd)
}

var healthWatch bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newService()
	if err != nil {
		return err
	}

	monitor := health.New(svc.Client(), nil, health.Options{
		Interval:     cfg.Health.Interval(),
		MaxRetries:   cfg.Health.MaxRetries,
		RetryOnError: cfg.Health.RetryOnError,
	})

	if !healthWatch {
		res := monitor.ForceCheck(context.Background())
		fmt.Println(monitor.StatusText())
		if !res.State.Online {
			os.Exit(1)
		}
		return nil
	}

	monitor.StartMonitoring()
	defer monitor.StopMonitoring()
	fmt.Printf("Watching %s (interval %s, ctrl-c to stop)\n",
		svc.Client().BaseURL(), cfg.Health.Interval())

	ticker := time.NewTicker(cfg.Health.Interval())
	defer ticker.Stop()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	last := ""
	for {
		if text := monitor.StatusText(); text != last {
			fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), text)
			last = text
		}
		select {
		case <-sig:
			return nil
		case <-ticker.C:
		}
	}
}
