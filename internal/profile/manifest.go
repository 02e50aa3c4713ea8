// Package profile loads profile manifests, resolves inheritance chains,
// and exposes merged catalogs and computed-binding registries. A profile
// is a named, inheritable bundle of configuration: catalog, computed
// expressions, templates, and assets.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFileName is the descriptor each profile directory must contain.
const ManifestFileName = "manifest.json"

// Manifest is the JSON descriptor of a profile's identity, parents, and
// file layout. Paths are relative to the profile directory.
type Manifest struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Inherits     []string          `json:"inherits,omitempty"`
	TemplatesDir string            `json:"templates_dir,omitempty"`
	Catalog      string            `json:"catalog,omitempty"`
	Computed     string            `json:"computed_module,omitempty"`
	Assets       map[string]string `json:"assets,omitempty"`
}

// Profile pairs a parsed manifest with the directory it was loaded from.
// Immutable once loaded until a hot reload replaces the store's contents.
type Profile struct {
	Manifest Manifest
	Dir      string
}

// ID returns the profile's identifier.
func (p *Profile) ID() string { return p.Manifest.ID }

// CatalogPath returns the absolute path of the profile's catalog file,
// or "" when the profile declares none.
func (p *Profile) CatalogPath() string {
	return p.resolve(p.Manifest.Catalog)
}

// ComputedPath returns the absolute path of the profile's computed
// expressions file, or "" when the profile declares none.
func (p *Profile) ComputedPath() string {
	return p.resolve(p.Manifest.Computed)
}

// TemplatesDir returns the absolute path of the profile's templates
// directory, or "" when the profile declares none.
func (p *Profile) TemplatesDir() string {
	return p.resolve(p.Manifest.TemplatesDir)
}

// AssetPath returns the absolute path of a named asset.
func (p *Profile) AssetPath(name string) (string, bool) {
	rel, ok := p.Manifest.Assets[name]
	if !ok {
		return "", false
	}
	return p.resolve(rel), true
}

func (p *Profile) resolve(rel string) string {
	if rel == "" {
		return ""
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

// readManifest loads and parses one manifest file.
func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Reason: "cannot read", Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ManifestError{Path: path, Reason: "malformed JSON", Err: err}
	}
	if m.ID == "" {
		return nil, &ManifestError{Path: path, Reason: "missing required field \"id\""}
	}
	return &m, nil
}

// String implements fmt.Stringer for log output.
func (m Manifest) String() string {
	return fmt.Sprintf("%s (%s)", m.ID, m.Name)
}
