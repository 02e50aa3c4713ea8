package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/formdeck/formdeck/internal/registry"
)

// PrintRenderer writes the resolved fields as plain text, one per line.
type PrintRenderer struct{}

// NewPrintRenderer creates the plain-text backend.
func NewPrintRenderer() *PrintRenderer {
	return &PrintRenderer{}
}

func (r *PrintRenderer) Render(ctx context.Context, tpl *registry.Template, values map[string]any, outPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	title := tpl.Title
	if title == "" {
		title = tpl.FormID
	}
	fmt.Fprintf(&buf, "%s (%s)\n\n", title, tpl.TemplateUID)
	for _, key := range sortedKeys(values) {
		fmt.Fprintf(&buf, "%-30s %s\n", key+":", formatValue(values[key]))
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	return outPath, nil
}
