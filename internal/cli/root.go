package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thebrandnation/appleupdates/internal/models"
	"github.com/thebrandnation/appleupdates/internal/prefs"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appleupdates",
		Short: "Maintain a local Apple Software Update mirror and drive installs from it",
		Long: `Appleupdates replicates the Apple Software Update catalog, filters it
down to the updates that apply to this machine, caches their metadata
locally, and points the native softwareupdate tool at the resulting
local catalogs for downloads and installs.

A check only talks to the software update server; downloads and
installs are driven entirely from the local mirror.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a configuration file")
	rootCmd.PersistentFlags().String("cache-dir", "", "Override the managed cache directory")
	rootCmd.PersistentFlags().String("updates-dir", "", "Override the native updater's staging directory")
	rootCmd.PersistentFlags().String("catalog-url", "", "Override the software update catalog URL")

	// Add subcommands
	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewDownloadCmd())
	rootCmd.AddCommand(NewInstallCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewPurgeCmd())

	return rootCmd
}

// loadConfig resolves the effective configuration: defaults, then the
// configuration file and environment, then command line overrides.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := prefs.Load(path)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("cache-dir"); v != "" {
		cfg.CacheDir = v
	}
	if v, _ := cmd.Flags().GetString("updates-dir"); v != "" {
		cfg.UpdatesDir = v
	}
	if v, _ := cmd.Flags().GetString("catalog-url"); v != "" {
		cfg.CatalogURL = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
