package cmd

import (
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/zjrosen/mandelgrid/internal/config"
	"github.com/zjrosen/mandelgrid/internal/export"
	"github.com/zjrosen/mandelgrid/internal/log"
)

var version = "dev"

// options collects the flags shared by the job-running commands.
type options struct {
	configPath string
	output     string
	format     string
	threads    int
	debug      bool
	gops       bool

	cleanup []func()
}

// newRootCmd builds the command tree. Each call returns an independent tree
// so tests can execute commands in isolation. The caller must call
// opts.teardown once the command has finished.
func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}

	root := &cobra.Command{
		Use:   "mandelgrid",
		Short: "Evaluate the Mandelbrot escape-time test over a grid",
		Long: `mandelgrid samples a rectangle of the complex plane, runs the escape-time
test for every point across a fixed pool of workers, and exports the result
as a csv, jsonl or sqlite dataset.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: opts.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runJob(cmd.Context(), cmd.OutOrStdout(), opts, cmd, nil)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "config file (yaml or toml)")
	pf.BoolVar(&opts.debug, "debug", false, "write debug logs (also MANDELGRID_DEBUG; MANDELGRID_LOG sets the file, MANDELGRID_LOG_LEVEL the minimum level)")
	pf.BoolVar(&opts.gops, "gops", false, "start a gops diagnostics agent")

	addJobFlags(root, opts)

	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	return root, opts
}

func addJobFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "dataset path (overrides output.path)")
	f.StringVarP(&opts.format, "format", "f", "", "dataset format: "+export.FormatList()+" (overrides output.format)")
	f.IntVarP(&opts.threads, "threads", "t", 0, "worker count (overrides threads)")
}

// setup initializes logging and the optional diagnostics agent.
func (o *options) setup(cmd *cobra.Command, _ []string) error {
	if o.debug || os.Getenv("MANDELGRID_DEBUG") != "" {
		logPath := os.Getenv("MANDELGRID_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		log.SetEnabled(true)
		log.SetMinLevel(log.ParseLevel(os.Getenv("MANDELGRID_LOG_LEVEL")))
		// The file is closed on teardown; later calls must not write to it.
		o.cleanup = append(o.cleanup, func() {
			log.SetEnabled(false)
			cleanup()
		})
		log.Info(log.CatConfig, "mandelgrid starting", "version", version, "command", cmd.Name(), "logPath", logPath)
	}

	if o.gops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			return fmt.Errorf("starting gops agent: %w", err)
		}
		o.cleanup = append(o.cleanup, agent.Close)
		log.Info(log.CatConfig, "gops agent listening")
	}
	return nil
}

func (o *options) teardown() {
	for i := len(o.cleanup) - 1; i >= 0; i-- {
		o.cleanup[i]()
	}
	o.cleanup = nil
}

// Execute runs the root command
func Execute() error {
	root, opts := newRootCmd()
	defer opts.teardown()
	return root.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}
