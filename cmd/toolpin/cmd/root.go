package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolpin/toolpin/internal/domain/release"
	"github.com/toolpin/toolpin/internal/logger"
	"github.com/toolpin/toolpin/internal/service/install"
	"github.com/toolpin/toolpin/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string

	// logLevel selects the minimum log level.
	logLevel string

	// assumeYes answers the profile prompt without asking.
	assumeYes bool

	// noProfile disables the profile PATH offer.
	noProfile bool

	// rootCmd represents the base command installing and switching versions.
	rootCmd = &cobra.Command{
		Use:   "toolpin [latest|X.Y|X.Y.Z]",
		Short: "Install a toolchain version and switch the active symlink to it",
		Long: "Resolve the requested version against the release index, download and " +
			"verify the archive when the local install is missing or outdated, and " +
			"point the current symlink at it. With no argument the active version " +
			"is refreshed; with no active version the latest release is installed.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			// A second positional is the usage path, not a failure.
			if len(args) > 1 {
				cmd.PrintErrf("too many arguments: %q\n", args[1:])
				return cmd.Usage()
			}

			var token string
			if len(args) == 1 {
				token = args[0]
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &install.Options{
				ConfigPath:  configPath,
				Token:       token,
				AssumeYes:   assumeYes,
				SkipProfile: noProfile,
			}

			err := install.Run(ctx, options)
			if errors.Is(err, release.ErrBadToken) {
				// Same usage path as --help: clean exit.
				cmd.PrintErrln(err)
				return cmd.Usage()
			}

			return err
		},
	}
)

// Execute runs the toolpin CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("Error: %v\nAborting.\n", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to settings file (default: built-in defaults)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to the shell profile prompt")
	rootCmd.Flags().BoolVar(&noProfile, "no-profile", false, "never offer to edit the shell profile")
}
