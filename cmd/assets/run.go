// ABOUTME: Daemon command that keeps assets fresh on a fixed interval
// ABOUTME: Schedules update cycles with gocron and stops cleanly on SIGINT/SIGTERM

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"filter-assets/core/domain"
	"filter-assets/core/observer"
	"filter-assets/pkg/featureflags"
	"filter-assets/pkg/utils/duration"
)

const updateJobName = "asset-update"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the update daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runDaemon)
		},
	}
}

func runDaemon(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.service.Subscribe(eventLogger(a))

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(a.cfg.Updater.Interval),
		gocron.NewTask(kickUpdate, a),
		gocron.WithName(updateJobName),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", updateJobName, err)
	}

	scheduler.Start()
	a.logger.Info("Asset daemon started", map[string]interface{}{
		"interval": duration.HumanReadable(a.cfg.Updater.Interval),
		"delay":    duration.HumanReadable(a.cfg.Updater.Delay),
	})

	<-ctx.Done()
	a.logger.Info("Shutting down asset daemon", nil)

	if err := scheduler.Shutdown(); err != nil {
		a.logger.Warn("Scheduler shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	a.service.UpdateStop()
	return nil
}

// kickUpdate starts a cycle unless auto updates are switched off. A cycle
// still running from the previous tick is left alone.
func kickUpdate(a *app) {
	if !a.flags.IsEnabled(context.Background(), featureflags.AutoUpdate) {
		a.logger.Debug("Auto update disabled, skipping cycle", nil)
		return
	}
	a.service.UpdateStart()
}

func eventLogger(a *app) observer.Observer {
	return observer.ObserverFunc(func(topic domain.Topic, payload any) any {
		switch p := payload.(type) {
		case domain.CycleStarted:
			a.logger.Info("Update cycle started", map[string]interface{}{"cycle": p.CycleID})
		case domain.CycleFinished:
			a.logger.Info("Update cycle finished", map[string]interface{}{
				"cycle":   p.CycleID,
				"updated": len(p.UpdatedKeys),
			})
		case domain.UpdateFailed:
			fields := map[string]interface{}{"asset": p.Key}
			if p.Err != nil {
				fields["error"] = p.Err.Error()
			}
			a.logger.Warn("Asset update failed", fields)
		case domain.SourceAdded:
			a.logger.Info("Asset source added", map[string]interface{}{"asset": p.Key})
		}
		return nil
	})
}
