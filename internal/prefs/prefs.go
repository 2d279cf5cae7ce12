// Package prefs loads engine configuration and keeps the small mutable
// state the engine records between runs.
package prefs

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/thebrandnation/appleupdates/internal/models"
)

// Defaults matching the managed client's classic locations.
const (
	defaultCacheDir   = "/Library/Managed Installs"
	defaultUpdatesDir = "/Library/Updates"

	defaultCheckInterval = 24 * time.Hour

	configName = "appleupdates"
	envPrefix  = "APPLEUPDATES"
)

// Load builds the engine configuration from defaults, an optional config
// file, and APPLEUPDATES_* environment variables. With an empty path the
// file is looked for as appleupdates.yaml in the default cache directory
// and the working directory; not finding one is fine.
func Load(path string) (*models.Config, error) {
	v := viper.New()
	v.SetDefault("cache_dir", defaultCacheDir)
	v.SetDefault("updates_dir", defaultUpdatesDir)
	v.SetDefault("catalog_url", "")
	v.SetDefault("os_version", "")
	v.SetDefault("check_interval", defaultCheckInterval)
	v.SetDefault("fetch_timeout", time.Duration(0))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, models.NewError(models.ErrInvalidConfig, path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultCacheDir)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, models.NewError(models.ErrInvalidConfig, configName, err)
			}
		}
	}

	return &models.Config{
		CacheDir:      v.GetString("cache_dir"),
		UpdatesDir:    v.GetString("updates_dir"),
		CatalogURL:    v.GetString("catalog_url"),
		OSVersion:     v.GetString("os_version"),
		CheckInterval: v.GetDuration("check_interval"),
		FetchTimeout:  v.GetDuration("fetch_timeout"),
	}, nil
}
