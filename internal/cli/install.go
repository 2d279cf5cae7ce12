package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/appleupdates"
)

// NewInstallCmd creates the install command
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the downloaded updates",
		Long: `Runs the native updater against the fully local install catalog. The
mirror is discarded afterwards; installed updates may unlock further
ones, so the next check starts from scratch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine := appleupdates.New(cfg)
			restart, err := engine.InstallUpdates(cmd.Context())
			if err != nil {
				return err
			}
			if restart {
				logrus.Warn("A restart is required to finish installing updates")
			}
			return nil
		},
	}

	return cmd
}
