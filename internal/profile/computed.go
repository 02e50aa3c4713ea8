package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/formdeck/formdeck/internal/binding"
)

// computedFile is the on-disk shape of a profile's computed expressions:
// named expr-language sources, compiled once at load. Profiles extend
// values declaratively instead of shipping executable code.
type computedFile struct {
	Version     int               `json:"version"`
	Expressions map[string]string `json:"expressions"`
}

// loadComputed reads and compiles one profile's computed file into a
// registry. A missing path yields an empty registry.
func loadComputed(path string) (*binding.ComputedRegistry, error) {
	reg := binding.NewComputedRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading computed file %s: %w", path, err)
	}
	var file computedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing computed file %s: %w", path, err)
	}

	// Compile in name order so the first error reported is stable.
	names := make([]string, 0, len(file.Expressions))
	for name := range file.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := reg.Register(name, file.Expressions[name]); err != nil {
			return nil, fmt.Errorf("computed file %s: %w", path, err)
		}
	}
	return reg, nil
}
