package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config contains configuration for the software update mirror engine
type Config struct {
	// Filesystem roots
	CacheDir   string // Managed cache root; the mirror lives under <CacheDir>/swupd
	UpdatesDir string // Where the native updater stages its downloads

	// Catalog selection
	CatalogURL string // Explicit catalog URL; overrides the per-OS default
	OSVersion  string // OS version used to pick a default catalog; probed when empty

	// Scheduling
	CheckInterval time.Duration // How long a successful check satisfies the schedule

	// Network
	FetchTimeout time.Duration // Per-request limit for catalog and metadata fetches; zero means none
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return NewError(ErrInvalidConfig, "cache_dir", fmt.Errorf("cache directory is required"))
	}
	if !filepath.IsAbs(c.CacheDir) {
		return NewError(ErrInvalidConfig, c.CacheDir, fmt.Errorf("cache directory must be an absolute path"))
	}
	if c.UpdatesDir == "" {
		return NewError(ErrInvalidConfig, "updates_dir", fmt.Errorf("updates directory is required"))
	}
	if c.CheckInterval < 0 {
		return NewError(ErrInvalidConfig, "check_interval", fmt.Errorf("check interval cannot be negative"))
	}
	return nil
}
