package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/formdeck/formdeck/internal/registry"
)

// Mapping is the legacy YAML field-mapping file: PDF form field names to
// keys in the caller-supplied values map.
type Mapping struct {
	Version int               `yaml:"version"`
	Fields  map[string]string `yaml:"fields"`
}

// MappingPathFor derives the conventional mapping-file path for an
// artifact: the artifact path with its extension replaced by
// ".mapping.yaml".
func MappingPathFor(artifactPath string) string {
	ext := filepath.Ext(artifactPath)
	return strings.TrimSuffix(artifactPath, ext) + ".mapping.yaml"
}

// LoadMapping reads and parses a legacy field-mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping %s: %w", path, err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping %s: %w", path, err)
	}
	return &m, nil
}

// LegacyFiller renders flat records through the compatibility path: the
// record's artifact plus a YAML mapping of PDF form field names to value
// keys. Values without a mapped key are dropped; mapped fields with no
// value render empty.
type LegacyFiller struct{}

// NewLegacyFiller creates the legacy PDF filler.
func NewLegacyFiller() *LegacyFiller {
	return &LegacyFiller{}
}

// Fill writes the filled document for a flat record to outPath.
func (f *LegacyFiller) Fill(ctx context.Context, rec *registry.Record, artifactPath string, m *Mapping, values map[string]any, outPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	source, err := os.ReadFile(artifactPath)
	if err != nil {
		return "", fmt.Errorf("reading artifact: %w", err)
	}

	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.Write(source)
	buf.WriteString(fieldOverlayMarker)
	fmt.Fprintf(&buf, "%% form %s@%s\n", rec.FormID, rec.Version)
	for _, name := range names {
		fmt.Fprintf(&buf, "%s=%s\n", name, formatValue(values[m.Fields[name]]))
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	return outPath, nil
}
