package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mandelgrid/internal/cachemanager"
	"github.com/zjrosen/mandelgrid/internal/engine"
	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/watcher"
)

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the job whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchLoop(ctx, cmd, opts, debounce)
		},
	}
	addJobFlags(cmd, opts)
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultConfig("").DebounceDur, "quiet period before a change triggers a run")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// watchLoop runs the job once, then again after every debounced change to
// the config file, until ctx is cancelled. A failed run is reported and the
// loop keeps watching.
func watchLoop(ctx context.Context, cmd *cobra.Command, opts *options, debounce time.Duration) error {
	out := cmd.OutOrStdout()
	results := cachemanager.New[*engine.Result]("watch-results", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)

	// The first run also creates the config file if it is missing, so the
	// watcher has something to watch.
	if err := runJob(ctx, out, opts, cmd, results); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}

	cfg := watcher.DefaultConfig(opts.configPath)
	cfg.DebounceDur = debounce
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "watching %s\n", opts.configPath)

	for {
		select {
		case <-ctx.Done():
			log.Info(log.CatWatcher, "Watch stopped")
			return nil
		case <-changes:
			log.Info(log.CatWatcher, "Config changed, re-running", "path", opts.configPath)
			fmt.Fprintf(out, "%s changed\n", opts.configPath)
			if err := runJob(ctx, out, opts, cmd, results); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}
