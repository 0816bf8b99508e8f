package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/dashboard"
	"github.com/taskdeck/taskdeck/internal/health"
	"github.com/taskdeck/taskdeck/internal/store"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoHistory, "no-history", false, "Disable the SQLite health history journal")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost      string
	servePort      int
	serveNoHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard sidecar server",
	Long: `Serve the browser dashboard's data plane: backend connectivity
state, health history, task lists and analytics, plus Prometheus metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newService()
	if err != nil {
		return err
	}

	if serveHost != "" {
		cfg.Dashboard.Host = serveHost
	}
	if servePort > 0 {
		cfg.Dashboard.Port = servePort
	}

	monitor := health.New(svc.Client(), nil, health.Options{
		Interval:     cfg.Health.Interval(),
		MaxRetries:   cfg.Health.MaxRetries,
		RetryOnError: cfg.Health.RetryOnError,
	})

	srv := dashboard.NewServer(monitor, svc)
	srv.EnableMetrics()

	var history *store.DB
	if !serveNoHistory {
		history, err = store.Open(config.Home())
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer history.Close()
		monitor.SetJournal(history)
		srv.SetHistory(history)
	}

	monitor.StartMonitoring()
	defer monitor.StopMonitoring()

	addr := fmt.Sprintf("%s:%d", cfg.Dashboard.Host, cfg.Dashboard.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("[serve] shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	log.Printf("[serve] dashboard listening on http://%s (backend %s)", addr, svc.Client().BaseURL())
	if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
