package cli

import (
	"github.com/taskdeck/taskdeck/internal/client"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/event"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// newService wires config → client → task service for one command run.
func newService() (*tasks.Service, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}
	c := client.FromConfig(cfg, event.NewBus())
	svc := tasks.NewService(c, tasks.Options{
		ListTTL:      cfg.Cache.DefaultTTL(),
		AnalyticsTTL: cfg.Cache.AnalyticsTTL(),
		NoCache:      !cfg.Cache.Enabled,
	})
	return svc, cfg, nil
}
