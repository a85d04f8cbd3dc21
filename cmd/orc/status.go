package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
	"github.com/untoldecay/TaskOrchestrator/internal/ui"
	"github.com/untoldecay/TaskOrchestrator/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadWorkflowConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		overview := ui.StatusOverview{DBPath: store.Path()}
		if overview.Projects, err = store.CountByStatus(ctx, types.KindProject, ""); err != nil {
			return err
		}
		if overview.Features, err = store.CountByStatus(ctx, types.KindFeature, ""); err != nil {
			return err
		}
		if overview.Tasks, err = store.CountByStatus(ctx, types.KindTask, ""); err != nil {
			return err
		}
		blocked, err := workflow.NewRecommender(cfg, store).BlockedTasks(ctx, "")
		if err != nil {
			return err
		}
		overview.Blocked = len(blocked)

		if jsonOutput {
			outputJSON(map[string]any{
				"db":       overview.DBPath,
				"projects": overview.Projects,
				"features": overview.Features,
				"tasks":    overview.Tasks,
				"blocked":  overview.Blocked,
			})
			return nil
		}
		fmt.Println(ui.RenderStatusOverview(overview, ui.GetWidth()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
