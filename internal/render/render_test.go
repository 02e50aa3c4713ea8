package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/internal/registry"
)

func pdfTemplate(t *testing.T, dir string) *registry.Template {
	t.Helper()
	artifact := filepath.Join(dir, "ics_201.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.7\nstub\n"), 0o644))
	return &registry.Template{
		TemplateUID: "wildland:ics_201@1.0.0",
		FormID:      "ics_201",
		Title:       "Incident Briefing",
		Renderer:    registry.RendererPDF,
		PDFSource:   artifact,
		Fields: []registry.Field{
			{Name: "incident_name", Key: "incident_name", Label: "Incident Name"},
			{Name: "prepared_by", Key: "prepared_by", Label: "Prepared By"},
		},
	}
}

func TestPDFRenderer_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tpl := pdfTemplate(t, dir)
	values := map[string]any{
		"prepared_by":   "J. Alvarez",
		"incident_name": "Creek Fire",
		"unset":         nil,
	}

	r := NewPDFRenderer()
	out1 := filepath.Join(dir, "a.pdf")
	out2 := filepath.Join(dir, "b.pdf")
	_, err := r.Render(context.Background(), tpl, values, out1)
	require.NoError(t, err)
	_, err = r.Render(context.Background(), tpl, values, out2)
	require.NoError(t, err)

	b1, err := os.ReadFile(out1)
	require.NoError(t, err)
	b2, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "identical input must produce byte-identical output")

	s := string(b1)
	assert.Contains(t, s, "%PDF-1.7")
	assert.Contains(t, s, "% template wildland:ics_201@1.0.0")
	// Sorted field order, nil rendered blank.
	assert.Regexp(t, `(?s)incident_name=Creek Fire\n.*prepared_by=J\. Alvarez\n.*unset=\n`, s)
}

func TestPDFRenderer_ContextCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tpl := pdfTemplate(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(dir, "out.pdf")
	_, err := NewPDFRenderer().Render(ctx, tpl, nil, out)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestHTMLRenderer_LabelsAndEscaping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tpl := pdfTemplate(t, dir)
	tpl.Renderer = registry.RendererHTML

	out := filepath.Join(dir, "out.html")
	_, err := NewHTMLRenderer().Render(context.Background(), tpl, map[string]any{
		"incident_name": "<Creek & Fire>",
		"extra":         "no label",
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "<th>Incident Name</th>")
	assert.Contains(t, s, "&lt;Creek &amp; Fire&gt;")
	assert.Contains(t, s, "<th>extra</th>", "unlabeled keys fall back to the key itself")
	assert.Contains(t, s, "<title>Incident Briefing</title>")
}

func TestPrintRenderer_SortedPlainText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tpl := pdfTemplate(t, dir)
	tpl.Renderer = registry.RendererPrint

	out := filepath.Join(dir, "out.txt")
	_, err := NewPrintRenderer().Render(context.Background(), tpl, map[string]any{
		"b_field": 2,
		"a_field": 1,
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Regexp(t, `(?s)a_field.*b_field`, string(data))
}

func TestLegacyFiller_MappedFieldsOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "ics_201.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.7\nlegacy\n"), 0o644))

	mappingPath := MappingPathFor(artifact)
	assert.Equal(t, filepath.Join(dir, "ics_201.mapping.yaml"), mappingPath)
	require.NoError(t, os.WriteFile(mappingPath, []byte(`
version: 1
fields:
  IncidentName: incident_name
  PreparedBy: prepared_by
`), 0o644))

	mapping, err := LoadMapping(mappingPath)
	require.NoError(t, err)
	require.Len(t, mapping.Fields, 2)

	rec := &registry.Record{FormID: "ics_201", Version: "1.0.0", Format: registry.FormatPDF, FilePath: artifact}
	out := filepath.Join(dir, "out.pdf")
	_, err = NewLegacyFiller().Fill(context.Background(), rec, artifact, mapping, map[string]any{
		"incident_name": "Creek Fire",
		"unmapped":      "dropped",
	}, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "% form ics_201@1.0.0")
	assert.Contains(t, s, "IncidentName=Creek Fire")
	assert.Contains(t, s, "PreparedBy=\n", "mapped field with no value renders empty")
	assert.NotContains(t, s, "dropped")
}
