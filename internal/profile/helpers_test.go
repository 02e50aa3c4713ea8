package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/formdeck/formdeck/internal/fingerprint"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// writeProfileDir lays out one profile directory under root.
func writeProfileDir(t *testing.T, root, id string, manifest map[string]any) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeJSON(t, filepath.Join(dir, ManifestFileName), manifest)
	return dir
}

// baseManifest returns a minimal valid manifest for id.
func baseManifest(id string) map[string]any {
	return map[string]any{"id": id, "name": "Profile " + id}
}

// writePDFTemplate writes a lint-clean pdf template plus its artifact into
// a profile's templates dir and returns the artifact path.
func writePDFTemplate(t *testing.T, profileDir, profileID, formID, formVersion string, fields []map[string]any) string {
	t.Helper()
	tplDir := filepath.Join(profileDir, "templates")
	require.NoError(t, os.MkdirAll(tplDir, 0o755))

	artifact := filepath.Join(tplDir, formID+".pdf")
	content := []byte("%PDF-1.7\n" + formID + "\n")
	require.NoError(t, os.WriteFile(artifact, content, 0o644))

	writeJSON(t, filepath.Join(tplDir, formID+"-"+formVersion+".json"), map[string]any{
		"template_version": 2,
		"profile_id":       profileID,
		"form_id":          formID,
		"form_version":     formVersion,
		"renderer":         "pdf",
		"pdf_source":       formID + ".pdf",
		"pdf_fingerprint":  string(fingerprint.Bytes(content)),
		"fields":           fields,
	})
	return artifact
}

func missionNameField() map[string]any {
	return map[string]any{
		"name": "incident_name",
		"key":  "incident_name",
		"binding": map[string]any{
			"source": "mission",
			"key":    "incident.name",
		},
	}
}

// newTestStore loads a store over root with settings in a temp file.
func newTestStore(t *testing.T, root string) *Store {
	t.Helper()
	settings, err := NewSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	store := NewStore(root, settings)
	_, err = store.Load()
	require.NoError(t, err)
	return store
}
