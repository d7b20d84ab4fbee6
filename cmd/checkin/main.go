// Command checkin runs the couple check-in API and its maintenance tasks.
//
// @title                      Couple Check-in API
// @version                    1.0
// @description                Daily check-ins, pairing and olive branches for couples.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // IANA zones for profile timezones on slim images

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/couple-checkin/internal/config"
	"github.com/tbourn/couple-checkin/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by subcommands once PersistentPreRunE has run.
type app struct {
	cfg       config.Config
	logCloser io.Closer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "checkin",
		Short:         "Daily check-ins, pairing and olive branches for couples",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			closer, err := sysutil.SetupLogger(sysutil.LogOptions{
				Level:  cfg.LogLevel,
				Pretty: cfg.LogPretty,
				File:   cfg.LogFile,
			})
			if err != nil {
				return fmt.Errorf("log file: %w", err)
			}
			a.cfg, a.logCloser = cfg, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newMigrateCommand(a))
	cmd.AddCommand(newQuotesCommand(a))
	return cmd
}
