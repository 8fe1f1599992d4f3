package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authgate-dev/authgate/internal/coordinator"
	"github.com/authgate-dev/authgate/internal/logger"
)

// NewWatchCmd creates the watch command: it restores the session and
// keeps the access token fresh on the configured cron schedule until
// interrupted. Meant for long-lived shells and CI jobs that keep
// calling the API with the persisted token.
func NewWatchCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session's access token fresh on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := buildAuth()
			if err != nil {
				return err
			}

			c.Restore(cmd.Context())
			if !c.IsAuthenticated() {
				return fmt.Errorf("not signed in; run 'authgate login' first")
			}

			if schedule == "" {
				schedule = cfg.RefreshSchedule
			}
			if schedule == "" {
				schedule = "*/15 * * * *"
			}

			refresher, err := coordinator.NewRefresher(c, schedule, logger.GetLogger())
			if err != nil {
				return err
			}

			fmt.Printf("Refreshing token on schedule %q. Ctrl-C to stop.\n", schedule)
			refresher.Start(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression (default from AUTHGATE_REFRESH_SCHEDULE, else every 15 minutes)")

	return cmd
}
