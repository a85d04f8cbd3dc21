package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/rpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stdio tool server",
	Long: `serve reads one JSON request per line from stdin and writes one JSON
response per line to stdout. All logging goes to stderr or the log file;
stdout carries protocol traffic only. The server exits cleanly when stdin
closes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := newLogger()

		// One writer per database. The lock file sits next to the db so
		// concurrent serve invocations in the same workspace fail fast.
		lock := flock.New(config.DatabasePath() + ".lock")
		held, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring database lock: %w", err)
		}
		if !held {
			return fmt.Errorf("another orc serve is already running against %s", config.DatabasePath())
		}
		defer func() { _ = lock.Unlock() }()

		cfg, err := loadWorkflowConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		log.Info("serving", "db", store.Path())
		return rpc.NewServer(cfg, store, log).Run(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
