package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/appleupdates"
	"github.com/thebrandnation/appleupdates/internal/swupd"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	var force bool
	var download bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check for available updates and refresh the local mirror",
		Long: `Fetches the software update catalog, asks the native updater which
updates apply to this machine, and rebuilds the local mirror around
them. When nothing changed since the last check, the expensive steps
are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logrus.Debugf("Configuration: %+v", cfg)

			engine := appleupdates.New(cfg)
			outcome, err := engine.CheckAndRefresh(cmd.Context(), force)
			if err != nil {
				return err
			}

			pending, err := engine.PendingUpdates()
			if err != nil {
				return err
			}
			displayPendingUpdates(cmd, pending)

			if download && outcome.UpdatesAvailable {
				return engine.DownloadUpdates(cmd.Context())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Run the full check even when nothing changed")
	cmd.Flags().BoolVarP(&download, "download", "d", false, "Download available updates after the check")

	return cmd
}

func displayPendingUpdates(cmd *cobra.Command, updates []swupd.UpdateInfo) {
	out := cmd.OutOrStdout()
	if len(updates) == 0 {
		fmt.Fprintln(out, "No Apple Software Updates available.")
		return
	}
	fmt.Fprintln(out, "The following Apple Software Updates are available to install:")
	for _, u := range updates {
		fmt.Fprintf(out, "    + %s-%s\n", u.DisplayName, u.Version)
		switch u.RestartAction {
		case swupd.RestartActionRequired, swupd.RestartActionRecommended:
			fmt.Fprintln(out, "       *Restart required")
		}
	}
}
