package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/internal/binding"
	"github.com/formdeck/formdeck/internal/fingerprint"
	"github.com/formdeck/formdeck/internal/profile"
	"github.com/formdeck/formdeck/internal/registry"
	"github.com/formdeck/formdeck/internal/render"
	"github.com/formdeck/formdeck/internal/session"
)

func addPDFTemplate(t *testing.T, reg *registry.Registry, dir, profileID, formID, formVersion string) *registry.Template {
	t.Helper()
	artifact := filepath.Join(dir, formID+"-"+formVersion+".pdf")
	content := []byte("%PDF-1.7\n" + formID + "\n")
	require.NoError(t, os.WriteFile(artifact, content, 0o644))

	tpl := &registry.Template{
		TemplateVersion: registry.TemplateSchemaVersion,
		ProfileID:       profileID,
		FormID:          formID,
		FormVersion:     formVersion,
		Renderer:        registry.RendererPDF,
		PDFSource:       artifact,
		PDFFingerprint:  fingerprint.Bytes(content),
		Fields: []registry.Field{
			{
				Name:    "incident_name",
				Key:     "incident_name",
				Binding: binding.FieldBinding{Source: binding.SourceMission, Key: "incident.name"},
			},
			{
				Name:    "prepared_by",
				Key:     "prepared_by",
				Binding: binding.FieldBinding{Source: binding.SourcePersonnel, Key: "preparer.name"},
				Default: "unknown",
			},
		},
	}
	require.NoError(t, reg.AddTemplate(tpl, false))
	return tpl
}

func missionContext() *binding.Context {
	return &binding.Context{
		Mission: map[string]any{
			"incident": map[string]any{"name": "Creek Fire"},
		},
	}
}

func TestExport_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")
	p := New(nil, reg)

	render1 := filepath.Join(dir, "one.pdf")
	render2 := filepath.Join(dir, "two.pdf")

	_, err := p.Export(context.Background(), session.New(tpl, nil), missionContext(), render1)
	require.NoError(t, err)
	_, err = p.Export(context.Background(), session.New(tpl, nil), missionContext(), render2)
	require.NoError(t, err)

	b1, err := os.ReadFile(render1)
	require.NoError(t, err)
	b2, err := os.ReadFile(render2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "identical template, context, and values must export byte-identical documents")

	s := string(b1)
	assert.Contains(t, s, "incident_name=Creek Fire")
	assert.Contains(t, s, "prepared_by=unknown", "unresolved binding falls back to the field default")
}

func TestExport_SessionValuesWin(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")
	p := New(nil, reg)

	sess := session.New(tpl, map[string]any{"incident_name": "Renamed Fire"})
	out := filepath.Join(dir, "out.pdf")
	_, err := p.Export(context.Background(), sess, missionContext(), out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "incident_name=Renamed Fire")
	assert.Equal(t, session.StateExported, sess.State())
}

func TestExport_IntegrityFailureWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")

	// Drift the artifact after registration.
	require.NoError(t, os.WriteFile(tpl.PDFSource, []byte("tampered"), 0o644))

	p := New(nil, reg)
	sess := session.New(tpl, nil)
	out := filepath.Join(dir, "out.pdf")
	_, err := p.Export(context.Background(), sess, missionContext(), out)

	var mismatch *fingerprint.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.NoFileExists(t, out, "an integrity failure must not produce an output file")
	assert.Equal(t, session.StateDraft, sess.State(), "a failed export must leave the session draft")
}

func TestExport_UnknownRenderer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")

	p := New(nil, reg, WithRenderers(map[string]render.Renderer{}))
	_, err := p.Export(context.Background(), session.New(tpl, nil), missionContext(), filepath.Join(dir, "out.pdf"))

	var unknown *UnknownRendererError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, registry.RendererPDF, unknown.Renderer)
}

func TestExport_ExportedSessionRefused(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")
	p := New(nil, reg)

	sess := session.New(tpl, nil)
	require.NoError(t, sess.MarkExported())

	_, err := p.Export(context.Background(), sess, missionContext(), filepath.Join(dir, "out.pdf"))
	assert.ErrorIs(t, err, session.ErrExported)
}

func TestExportUnified_DirectUID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")
	p := New(nil, reg)

	result, err := p.ExportUnified(context.Background(), tpl.TemplateUID, UnifiedRequest{
		OutPath: filepath.Join(dir, "out.pdf"),
		Context: missionContext(),
	})
	require.NoError(t, err)
	assert.Equal(t, EngineV2, result.Engine)
	assert.Equal(t, tpl.TemplateUID, result.TemplateUID)
}

func TestExportUnified_PicksNewestVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "2025.5.0")
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "2025.9.0")
	p := New(nil, reg)

	result, err := p.ExportUnified(context.Background(), "ics_201", UnifiedRequest{
		OutPath:   filepath.Join(dir, "out.pdf"),
		Context:   missionContext(),
		ProfileID: "wildland",
	})
	require.NoError(t, err)
	assert.Equal(t, "wildland:ics_201@2025.9.0", result.TemplateUID)
}

func TestExportUnified_VersionConstraintNarrows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.4.0")
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "2.1.0")
	p := New(nil, reg)

	result, err := p.ExportUnified(context.Background(), "ics_201", UnifiedRequest{
		OutPath:   filepath.Join(dir, "out.pdf"),
		Context:   missionContext(),
		ProfileID: "wildland",
		Version:   "^1",
	})
	require.NoError(t, err)
	assert.Equal(t, "wildland:ics_201@1.4.0", result.TemplateUID)
}

func TestExportUnified_ActiveVersionOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := t.TempDir()

	profileDir := filepath.Join(root, "wildland")
	require.NoError(t, os.MkdirAll(profileDir, 0o755))
	manifest, err := json.Marshal(map[string]any{"id": "wildland", "name": "Wildland"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(profileDir, profile.ManifestFileName), manifest, 0o644))

	settings, err := profile.NewSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	require.NoError(t, settings.SetActiveVersion("wildland", "ics_201", "2025.5.0"))

	store := profile.NewStore(root, settings)
	_, err = store.Load()
	require.NoError(t, err)

	reg := registry.New()
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "2025.5.0")
	addPDFTemplate(t, reg, dir, "wildland", "ics_201", "2025.9.0")
	p := New(store, reg)

	result, err := p.ExportUnified(context.Background(), "ics_201", UnifiedRequest{
		OutPath: filepath.Join(dir, "out.pdf"),
		Context: missionContext(),
	})
	require.NoError(t, err)
	assert.Equal(t, "wildland:ics_201@2025.5.0", result.TemplateUID,
		"a configured active version must beat the newest candidate")
}

func TestExportUnified_LegacyOnlyWhenNoV2(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()

	// Flat record with the conventional mapping file, no v2 template.
	artifact := filepath.Join(dir, "ics_209.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.7\nlegacy\n"), 0o644))
	require.NoError(t, os.WriteFile(render.MappingPathFor(artifact), []byte(`
version: 1
fields:
  IncidentName: incident_name
`), 0o644))
	require.NoError(t, reg.Register(registry.Record{
		FormID:   "ics_209",
		Title:    "Incident Status Summary",
		Version:  "1.0.0",
		Format:   registry.FormatPDF,
		FilePath: artifact,
	}, false))

	p := New(nil, reg)
	out := filepath.Join(dir, "out.pdf")
	result, err := p.ExportUnified(context.Background(), "ics_209", UnifiedRequest{
		OutPath:   out,
		Values:    map[string]any{"incident_name": "Creek Fire"},
		ProfileID: "wildland",
	})
	require.NoError(t, err)
	assert.Equal(t, EngineLegacy, result.Engine)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "IncidentName=Creek Fire")
}

func TestExportUnified_V2FailureDoesNotFallBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := registry.New()
	tpl := addPDFTemplate(t, reg, dir, "wildland", "ics_201", "1.0.0")

	// A flat record also exists, so a silent fallback would succeed and
	// mask the integrity failure.
	require.NoError(t, reg.Register(registry.Record{
		FormID:   "ics_201",
		Version:  "1.0.0",
		Format:   registry.FormatPDF,
		FilePath: tpl.PDFSource,
	}, false))

	require.NoError(t, os.WriteFile(tpl.PDFSource, []byte("tampered"), 0o644))

	p := New(nil, reg)
	_, err := p.ExportUnified(context.Background(), "ics_201", UnifiedRequest{
		OutPath:   filepath.Join(dir, "out.pdf"),
		Context:   missionContext(),
		ProfileID: "wildland",
	})

	var mismatch *fingerprint.MismatchError
	require.ErrorAs(t, err, &mismatch, "an existing v2 template that fails must surface its error")
	var fallback *FallbackError
	assert.NotErrorAs(t, err, &fallback)
}

func TestExportUnified_FallbackErrorCarriesBothCauses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := New(nil, registry.New())

	_, err := p.ExportUnified(context.Background(), "ics_999", UnifiedRequest{
		OutPath:   filepath.Join(dir, "out.pdf"),
		ProfileID: "wildland",
	})

	var fallback *FallbackError
	require.ErrorAs(t, err, &fallback)
	assert.Equal(t, "ics_999", fallback.FormID)

	var notFound *registry.NotFoundError
	assert.ErrorAs(t, fallback.Primary, &notFound)
	assert.Error(t, fallback.Legacy)
	assert.ErrorAs(t, err, &notFound, "Unwrap must expose the primary cause")
}
