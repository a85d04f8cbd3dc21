package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/ui"
)

var initForce bool

// defaultConfigYAML is written by `orc init`. It spells out the shipped
// defaults so editing is a matter of uncommenting and tweaking.
const defaultConfigYAML = `# Task Orchestrator workflow configuration.
# Absent keys keep their built-in defaults; status labels are
# lowercase-with-hyphens.

status_progression:
  tasks:
    default_flow: [pending, in-progress, testing, completed]
    flows:
      bug: [pending, in-progress, testing, completed]
    tag_flow_mapping:
      bug: bug
    # status_roles:
    #   pending: queue
    #   in-progress: work
    #   testing: review
    #   completed: terminal

status_validation:
  enforce_sequential: true
  allow_backward: true
  allow_emergency: true
  validate_prerequisites: true

completion_cleanup:
  enabled: true
  retain_tags: [bug, bugfix, fix, hotfix, critical]

auto_cascade:
  enabled: true
  max_depth: 3
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a workspace",
	Long: `init creates .taskorchestrator/ in the current directory (or
TASKORC_DIR) with a commented config.yaml and an empty state database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := config.WorkingDir()
		dir := filepath.Join(root, config.ConfigDirName)
		cfgPath := filepath.Join(dir, config.ConfigFileName)

		created := false
		if _, err := os.Stat(cfgPath); err == nil {
			if !initForce && !ui.PromptYesNo("Config already exists. Overwrite?", false) {
				fmt.Println(ui.RenderInitReport(ui.InitReport{
					ConfigPath: cfgPath,
					DBPath:     config.DatabasePath(),
				}))
				return nil
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		if err := os.WriteFile(cfgPath, []byte(defaultConfigYAML), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		created = true

		// Reject a broken config before creating the database.
		if _, err := config.Load(cfgPath); err != nil {
			return err
		}
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if jsonOutput {
			outputJSON(map[string]any{
				"config":  cfgPath,
				"db":      store.Path(),
				"created": created,
			})
			return nil
		}
		fmt.Println(ui.RenderInitReport(ui.InitReport{
			ConfigPath: cfgPath,
			DBPath:     store.Path(),
			Created:    created,
			NextSteps: []string{
				"orc serve    # start the stdio tool server",
				"orc status   # inspect the workspace",
			},
		}))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config without asking")
	rootCmd.AddCommand(initCmd)
}
