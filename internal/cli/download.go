package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/appleupdates"
)

// NewDownloadCmd creates the download command
func NewDownloadCmd() *cobra.Command {
	var force bool
	var noCheck bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download available updates into the native updater's staging area",
		Long: `Checks for available updates when needed, then points the native
updater at the local download catalog so it stages every applicable
payload. Payloads come from the software update server; all metadata
is served from the mirror.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine := appleupdates.New(cfg)
			available, err := engine.UpdatesAvailable(cmd.Context(), force, noCheck)
			if err != nil {
				return err
			}
			if !available {
				logrus.Info("No Apple Software Updates available to download")
				return nil
			}
			return engine.DownloadUpdates(cmd.Context())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Run the full check even when nothing changed")
	cmd.Flags().BoolVar(&noCheck, "no-check", false, "Trust the recorded pending updates without checking")

	return cmd
}
