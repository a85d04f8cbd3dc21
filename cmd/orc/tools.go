package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/untoldecay/TaskOrchestrator/internal/rpc"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the stdio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkflowConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		tools := rpc.NewServer(cfg, store, newLogger()).Tools()
		if jsonOutput {
			outputJSON(tools)
			return nil
		}
		names := make([]string, 0, len(tools))
		for name := range tools {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mode := "read-write"
			if tools[name] {
				mode = "read-only"
			}
			fmt.Printf("%-24s %s\n", name, mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
