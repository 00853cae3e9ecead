package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/packstream/internal/bridge"
	"github.com/Iron-Ham/packstream/internal/config"
	"github.com/Iron-Ham/packstream/internal/errors"
	"github.com/Iron-Ham/packstream/internal/event"
	"github.com/Iron-Ham/packstream/internal/logging"
	"github.com/Iron-Ham/packstream/internal/stream"
)

var buildCmd = &cobra.Command{
	Use:   "build [patterns...]",
	Short: "Bundle the files matching patterns",
	Long: `Read every file matching the glob patterns (relative to the current
directory), build them as entry points and write the results to the output
directory. Files whose bundle keeps their name are replaced in place; other
artifacts (renamed bundles, source maps, chunks) are added.

Examples:
  # Bundle every script under src
  packstream build 'src/*.js'

  # Rebuild on change, printing full stats
  packstream build 'src/*.js' --watch --log-mode verbose

  # Exclude a file
  packstream build 'src/**/*.js' '!src/legacy/**'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	flags := buildCmd.Flags()
	flags.StringP("out", "o", "", "output directory (default \"build\")")
	flags.BoolP("watch", "w", false, "rebuild on change")
	flags.String("log-mode", "", "stats, verbose or silent (default \"stats\")")
	flags.Duration("watch-resume", 0, "how long a failed watch stays suspended (default 5s)")
	flags.String("suspend-policy", "", "lockstep or independent (default \"lockstep\")")

	_ = viper.BindPFlag("out_dir", flags.Lookup("out"))
	_ = viper.BindPFlag("watch", flags.Lookup("watch"))
	_ = viper.BindPFlag("log_mode", flags.Lookup("log-mode"))
	_ = viper.BindPFlag("watch_resume", flags.Lookup("watch-resume"))
	_ = viper.BindPFlag("suspend_policy", flags.Lookup("suspend-policy"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	if err := checkExplicitConfig(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	opts, err := cfg.BridgeOptions()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to get working directory")
	}
	outDir := cfg.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(cwd, outDir)
	}

	bus := event.NewBus()
	bus.Subscribe(event.TypeItemEmitted, func(e event.Event) {
		ev := e.(event.ItemEmittedEvent)
		logger.Debug("item emitted", "target", ev.Target, "path", ev.Path, "outcome", ev.Outcome)
	})

	b, err := bridge.New(opts,
		bridge.WithLogger(logger),
		bridge.WithOutput(cmd.OutOrStdout()),
		bridge.WithBus(bus),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	err = stream.Pipe(ctx,
		stream.Source(fs, cwd, args...),
		stream.Dest(fs, outDir),
		b.Run,
	)
	if err != nil && !(cfg.Watch && errors.Is(err, context.Canceled)) {
		return buildFailure(logger, err)
	}
	return nil
}

// buildFailure decides what the command reports for a failed pipeline.
// Failures the user can act on keep their plain message; internal ones are
// logged at their severity and returned with the wrapped cause.
func buildFailure(logger *logging.Logger, err error) error {
	if errors.IsUserFacing(err) {
		return err
	}
	switch errors.GetSeverity(err) {
	case errors.SeverityCritical:
		logger.Error("build: engine failed", "error", err)
	case errors.SeverityWarning:
		logger.Warn("build: pipeline stopped", "error", err)
	default:
		logger.Error("build: pipeline failed", "error", err)
	}
	return errors.Wrap(err, "build failed")
}

// checkExplicitConfig fails when --config names a file that cannot be read.
func checkExplicitConfig() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	if err := viper.ReadInConfig(); err != nil {
		return errors.NewMissingConfigurationError("").WithSource(path).WithCause(err)
	}
	return nil
}
