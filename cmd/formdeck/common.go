package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/formdeck/formdeck/internal/profile"
	"github.com/formdeck/formdeck/internal/registry"
)

// settingsPath returns the file where the active profile and per-form
// active versions are persisted. Shared with the viper config lookup.
func settingsPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formdeck.yaml"
	}
	return filepath.Join(home, ".formdeck.yaml")
}

// openStore loads the profile store from the configured profiles root.
func openStore() (*profile.Store, error) {
	root := viper.GetString("profiles_root")
	if root == "" {
		root = "profiles"
	}

	settings, err := profile.NewSettings(settingsPath())
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	store := profile.NewStore(root, settings)
	report, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	for _, skipped := range report.Skipped {
		slog.Warn("skipped manifest", "path", skipped.Path, "error", skipped.Err)
	}
	slog.Debug("profiles loaded", "count", len(report.Loaded), "root", root)
	return store, nil
}

// openRegistry builds the template registry: the optional flat registry
// file plus every loaded profile's v2 templates directory.
func openRegistry(store *profile.Store, opts ...registry.Option) (*registry.Registry, error) {
	path := viper.GetString("registry")

	var reg *registry.Registry
	var err error
	if path != "" {
		reg, err = registry.Open(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("opening registry: %w", err)
		}
	} else {
		reg = registry.New(opts...)
	}

	for _, id := range store.IDs() {
		p, err := store.Get(id)
		if err != nil {
			continue
		}
		dir := p.TemplatesDir()
		if dir == "" {
			continue
		}
		uids, err := reg.LoadTemplatesDir(id, dir)
		if err != nil {
			return nil, fmt.Errorf("loading templates for profile %s: %w", id, err)
		}
		slog.Debug("templates loaded", "profile", id, "count", len(uids))
	}
	return reg, nil
}
