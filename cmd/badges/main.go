// Command badges awards a check-in badge to users whose check-ins qualify,
// and serves the login flow that links their accounts.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/checkin-badges/internal/config"
	"github.com/tbourn/checkin-badges/internal/services"
	"github.com/tbourn/checkin-badges/internal/sysutil"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg config.Config

func main() {
	err := newRootCmd().Execute()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode reports err and maps it to the process status. Missing
// credentials are a normal stop, not a crash: status line and exit 0.
func exitCode(err error, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, services.ErrConfigMissing):
		fmt.Fprintf(w, "Not running: %v\n", err)
		return 0
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "badges",
		Short: "Award check-in badges",
		Long: `badges reads the recent check-ins of a list of users, keeps the users
with enough distinct qualifying check-ins inside an event's time window
and venue area, and awards them a badge.

Configuration comes from the environment (and an optional .env file).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.ErrOrStderr())
		},
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"badges version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads .env and the configuration and installs the logger.
func setup(logOut io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg = c

	sysutil.InitLogger(cfg.LogPretty, logOut)
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.DefaultContextLogger = &log.Logger
	log.Debug().Str("config", cfg.String()).Msg("configuration loaded")
	return nil
}
