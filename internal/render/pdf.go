package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/formdeck/formdeck/internal/registry"
)

// fieldOverlayMarker separates the source artifact bytes from the filled
// field overlay in the output.
const fieldOverlayMarker = "\n%%FDK-FieldOverlay\n"

// PDFRenderer fills a PDF artifact with resolved field values. The source
// artifact is copied verbatim and the overlay appended in sorted field
// order, so identical input always produces identical bytes.
type PDFRenderer struct{}

// NewPDFRenderer creates the PDF filler backend.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes the filled document to outPath and returns it.
// Integrity of the source artifact is the pipeline's responsibility; the
// renderer assumes the artifact has already been verified.
func (r *PDFRenderer) Render(ctx context.Context, tpl *registry.Template, values map[string]any, outPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	source, err := os.ReadFile(tpl.PDFSource)
	if err != nil {
		return "", fmt.Errorf("reading pdf source: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(source)
	buf.WriteString(fieldOverlayMarker)
	fmt.Fprintf(&buf, "%% template %s\n", tpl.TemplateUID)
	for _, key := range sortedKeys(values) {
		fmt.Fprintf(&buf, "%s=%s\n", key, formatValue(values[key]))
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	return outPath, nil
}
