package profile

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Settings persists the active profile id and per-profile active-version
// overrides across runs. Backed by a viper YAML file so the CLI's config
// file and the store share one mechanism.
type Settings struct {
	v    *viper.Viper
	path string
}

// NewSettings creates a settings store backed by path. A missing file is
// not an error; it is created on first save.
func NewSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}
	return &Settings{v: v, path: path}, nil
}

// ActiveProfile returns the persisted active profile id, or "".
func (s *Settings) ActiveProfile() string {
	return s.v.GetString("active_profile")
}

// SetActiveProfile persists the active profile id.
func (s *Settings) SetActiveProfile(id string) error {
	s.v.Set("active_profile", id)
	return s.save()
}

// ClearActiveProfile removes the persisted active profile id.
func (s *Settings) ClearActiveProfile() error {
	s.v.Set("active_profile", "")
	return s.save()
}

// ActiveVersion returns the configured active form version for a profile,
// or "" when none is set.
func (s *Settings) ActiveVersion(profileID, formID string) string {
	return s.v.GetString(activeVersionKey(profileID, formID))
}

// SetActiveVersion pins a form to a specific version within a profile.
func (s *Settings) SetActiveVersion(profileID, formID, version string) error {
	s.v.Set(activeVersionKey(profileID, formID), version)
	return s.save()
}

func activeVersionKey(profileID, formID string) string {
	return fmt.Sprintf("profiles.%s.active_versions.%s", profileID, formID)
}

func (s *Settings) save() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing settings %s: %w", s.path, err)
	}
	return nil
}
