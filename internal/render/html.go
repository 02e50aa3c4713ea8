package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"

	"github.com/formdeck/formdeck/internal/registry"
)

var htmlPage = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<table>
{{- range .Rows}}
<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

type htmlRow struct {
	Label string
	Value string
}

type htmlData struct {
	Title string
	Rows  []htmlRow
}

// HTMLRenderer writes the resolved fields as a standalone HTML document.
type HTMLRenderer struct{}

// NewHTMLRenderer creates the HTML backend.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

func (r *HTMLRenderer) Render(ctx context.Context, tpl *registry.Template, values map[string]any, outPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	title := tpl.Title
	if title == "" {
		title = tpl.FormID
	}
	data := htmlData{Title: title}
	labels := make(map[string]string, len(tpl.Fields))
	for _, f := range tpl.Fields {
		if f.Label != "" {
			labels[f.Key] = f.Label
		}
	}
	for _, key := range sortedKeys(values) {
		label := labels[key]
		if label == "" {
			label = key
		}
		data.Rows = append(data.Rows, htmlRow{Label: label, Value: formatValue(values[key])})
	}

	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing output: %w", err)
	}
	return outPath, nil
}
