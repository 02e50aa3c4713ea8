// Package render provides the rendering backends the export pipeline
// dispatches to. Renderers are opaque collaborators from the pipeline's
// point of view: they accept template metadata, resolved field values,
// and an output path, and return the written path. Every renderer is
// deterministic — identical input produces byte-identical output.
package render

import (
	"context"
	"fmt"
	"sort"

	"github.com/formdeck/formdeck/internal/registry"
)

// Renderer writes one document from a template and its resolved values.
type Renderer interface {
	Render(ctx context.Context, tpl *registry.Template, values map[string]any, outPath string) (string, error)
}

// Defaults returns the renderer table keyed by template renderer type.
func Defaults() map[string]Renderer {
	return map[string]Renderer{
		registry.RendererPDF:   NewPDFRenderer(),
		registry.RendererPrint: NewPrintRenderer(),
		registry.RendererHTML:  NewHTMLRenderer(),
	}
}

// sortedKeys returns the value keys in stable order. All renderers iterate
// fields through this so output never depends on map order.
func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatValue renders one field value as text. nil becomes the empty
// string so unbound fields leave their slot blank rather than printing
// "<nil>".
func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
