package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/appleupdates"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded update state without checking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine := appleupdates.New(cfg)
			lastCheck, err := engine.LastCheck()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lastCheck.IsZero() {
				fmt.Fprintln(out, "Last Apple Software Update check: never")
			} else {
				fmt.Fprintf(out, "Last Apple Software Update check: %s\n",
					lastCheck.Format("2006-01-02 15:04:05"))
			}

			pending, err := engine.PendingUpdates()
			if err != nil {
				return err
			}
			displayPendingUpdates(cmd, pending)
			return nil
		},
	}

	return cmd
}
