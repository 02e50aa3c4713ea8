package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/formdeck/formdeck/internal/binding"
)

// Store owns profile lifetime: it scans a root directory for manifests,
// resolves inheritance chains, and produces merged catalogs and computed
// registries. A sync.RWMutex guards the profile map; mutation happens only
// through Load, HotReload, and SetActive.
type Store struct {
	mu       sync.RWMutex
	root     string
	profiles map[string]*Profile
	activeID string
	settings *Settings
}

// SkippedManifest records one manifest that the bulk load could not use.
type SkippedManifest struct {
	Path string
	Err  error
}

// LoadReport aggregates the outcome of a bulk load. Invalid manifests are
// skipped rather than failing the whole scan, but every skip is surfaced
// here instead of being discarded.
type LoadReport struct {
	Loaded  []string
	Skipped []SkippedManifest
}

// NewStore creates a store over a profiles root directory. settings may be
// nil for callers that do not persist the active profile.
func NewStore(root string, settings *Settings) *Store {
	return &Store{
		root:     root,
		profiles: make(map[string]*Profile),
		settings: settings,
	}
}

// Load scans the root's immediate subdirectories for manifest files and
// registers one profile per valid manifest. The active profile is restored
// from settings when it still resolves; otherwise it defaults to the
// lexicographically smallest profile id, which keeps startup deterministic
// when no setting exists.
func (s *Store) Load() (*LoadReport, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("scanning profiles root %s: %w", s.root, err)
	}

	report := &LoadReport{}
	profiles := make(map[string]*Profile)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		manifestPath := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(manifestPath); err != nil {
			continue // not a profile directory
		}
		m, err := readManifest(manifestPath)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedManifest{Path: manifestPath, Err: err})
			slog.Warn("skipping manifest", "path", manifestPath, "error", err)
			continue
		}
		if _, dup := profiles[m.ID]; dup {
			report.Skipped = append(report.Skipped, SkippedManifest{
				Path: manifestPath,
				Err:  &ManifestError{Path: manifestPath, Reason: fmt.Sprintf("duplicate profile id %q", m.ID)},
			})
			continue
		}
		profiles[m.ID] = &Profile{Manifest: *m, Dir: dir}
		report.Loaded = append(report.Loaded, m.ID)
	}
	sort.Strings(report.Loaded)

	s.mu.Lock()
	s.profiles = profiles
	s.activeID = s.restoreActiveLocked()
	s.mu.Unlock()

	slog.Info("profiles loaded",
		"root", s.root,
		"loaded", len(report.Loaded),
		"skipped", len(report.Skipped),
		"active", s.ActiveID(),
	)
	return report, nil
}

// restoreActiveLocked picks the active profile after a (re)load.
// Caller must hold the write lock.
func (s *Store) restoreActiveLocked() string {
	if s.settings != nil {
		if id := s.settings.ActiveProfile(); id != "" {
			if _, ok := s.profiles[id]; ok {
				return id
			}
		}
	}
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return ids[0]
}

// HotReload re-scans all manifests from disk. The current active id is
// kept only if it still resolves; otherwise it is cleared, in memory and
// in settings.
func (s *Store) HotReload() (*LoadReport, error) {
	s.mu.RLock()
	previous := s.activeID
	s.mu.RUnlock()

	report, err := s.Load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if previous != "" {
		if _, ok := s.profiles[previous]; ok {
			s.activeID = previous
		} else {
			s.activeID = ""
			if s.settings != nil {
				if err := s.settings.ClearActiveProfile(); err != nil {
					slog.Warn("clearing stale active profile", "profile", previous, "error", err)
				}
			}
			slog.Warn("active profile no longer resolves, cleared", "profile", previous)
		}
	}
	s.mu.Unlock()
	return report, nil
}

// Get returns a registered profile by id.
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, &UnknownProfileError{ProfileID: id}
	}
	return p, nil
}

// IDs returns all registered profile ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveID returns the currently active profile id, or "".
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Chain resolves a profile's inheritance chain: each profile's inherits
// list depth-first, flattened, de-duplicated keeping the first occurrence,
// with id itself last. A cyclic inherits graph fails fast with a
// *CycleError naming the repeated id.
func (s *Store) Chain(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainLocked(id)
}

func (s *Store) chainLocked(id string) ([]string, error) {
	var order []string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(pid string, path []string) error
	visit = func(pid string, path []string) error {
		if onStack[pid] {
			return &CycleError{ProfileID: pid, Path: append(append([]string{}, path...), pid)}
		}
		if visited[pid] {
			return nil
		}
		p, ok := s.profiles[pid]
		if !ok {
			return &UnknownProfileError{ProfileID: pid}
		}
		onStack[pid] = true
		for _, parent := range p.Manifest.Inherits {
			if err := visit(parent, append(path, pid)); err != nil {
				return err
			}
		}
		onStack[pid] = false
		visited[pid] = true
		order = append(order, pid)
		return nil
	}

	if err := visit(id, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// CatalogFor merges every chain member's catalog in chain order, so a
// descendant overrides individual fields of an entry rather than the
// whole entry.
func (s *Store) CatalogFor(id string) (*Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, err := s.chainLocked(id)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	for _, pid := range chain {
		raw, err := loadCatalogRaw(s.profiles[pid].CatalogPath())
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", pid, err)
		}
		merged = DeepMerge(merged, raw)
	}
	return decodeCatalog(merged)
}

// ComputedFor merges every chain member's computed registry in chain
// order, child entries overriding parent entries of the same name.
func (s *Store) ComputedFor(id string) (*binding.ComputedRegistry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, err := s.chainLocked(id)
	if err != nil {
		return nil, err
	}

	merged := binding.NewComputedRegistry()
	for _, pid := range chain {
		reg, err := loadComputed(s.profiles[pid].ComputedPath())
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", pid, err)
		}
		merged.MergeFrom(reg)
	}
	return merged, nil
}

// SetActive lints the profile first and only switches (and persists) the
// active id when no ERROR-level issue exists.
func (s *Store) SetActive(id string) error {
	issues, err := s.Lint(id)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.Level == LevelError {
			return &ActivationError{ProfileID: id, Issues: issues}
		}
	}

	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()

	if s.settings != nil {
		if err := s.settings.SetActiveProfile(id); err != nil {
			return err
		}
	}
	slog.Info("active profile set", "profile", id)
	return nil
}

// ActiveVersion returns the configured active form version override for a
// profile, or "" when none is set.
func (s *Store) ActiveVersion(profileID, formID string) string {
	if s.settings == nil {
		return ""
	}
	return s.settings.ActiveVersion(profileID, formID)
}
