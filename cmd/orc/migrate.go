package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/TaskOrchestrator/internal/ui"
)

var migrateRepair bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and report drift",
	Long: `migrate opens the database (applying any pending schema steps) and
checksums the recorded history against the shipped migrations. --repair
rewrites drifted checksum records without re-running DDL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		applied, err := store.Repair(ctx, migrateRepair)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(applied)
			return nil
		}
		for _, m := range applied {
			marker := ui.RenderPass("ok")
			if m.Drift {
				marker = ui.RenderWarn("drift")
			}
			fmt.Printf("%3d  %-40s %s\n", m.Version, m.Name, marker)
		}
		fmt.Printf("%d migration(s) applied, database %s\n", len(applied), store.Path())
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateRepair, "repair", false, "rewrite drifted checksum records")
	rootCmd.AddCommand(migrateCmd)
}
