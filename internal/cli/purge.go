package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/appleupdates"
)

// NewPurgeCmd creates the purge command
func NewPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Discard the mirror, pending updates, and recorded check time",
		Long: `Removes the mirrored catalogs and metadata, forgets the pending
updates, and clears the last-check mark so the next run starts from
nothing. The raw catalog download is kept; refetching it is cheap and
conditional.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			engine := appleupdates.New(cfg)
			if err := engine.Reset(); err != nil {
				return err
			}
			logrus.Info("Apple Software Update cache cleared")
			return nil
		},
	}

	return cmd
}
