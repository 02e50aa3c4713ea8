package profile

import (
	"encoding/json"
	"fmt"
	"os"
)

// CatalogEntry describes one bindable dotted key: which context bucket it
// resolves against and optional authoring metadata.
type CatalogEntry struct {
	Source   string   `json:"source"`
	Desc     string   `json:"desc,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

// Catalog maps dotted keys to bindable-source metadata. A merged catalog
// is produced by deep-merging one catalog per profile along an
// inheritance chain.
type Catalog struct {
	Version int                     `json:"version"`
	Keys    map[string]CatalogEntry `json:"keys"`
}

// Has reports whether the catalog defines a dotted key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.Keys[key]
	return ok
}

// loadCatalogRaw reads a catalog file as a generic mapping so chain
// merging can work field-by-field. A missing path yields an empty map.
func loadCatalogRaw(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return raw, nil
}

// decodeCatalog converts a merged raw mapping into the typed Catalog.
func decodeCatalog(raw map[string]any) (*Catalog, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding merged catalog: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decoding merged catalog: %w", err)
	}
	if cat.Keys == nil {
		cat.Keys = make(map[string]CatalogEntry)
	}
	return &cat, nil
}
