package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// profileFormKey joins a profile id and form id into one map key.
func profileFormKey(profileID, formID string) string {
	return profileID + "\x00" + formID
}

// AddTemplate indexes a v2 template by UID and by (profile, form).
// A duplicate UID is rejected unless allowReplace is set.
func (r *Registry) AddTemplate(t *Template, allowReplace bool) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	if t.TemplateUID == "" {
		t.TemplateUID = UID(t.ProfileID, t.FormID, t.FormVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[t.TemplateUID]; exists && !allowReplace {
		return &DuplicateError{FormID: t.FormID, Version: t.FormVersion}
	}

	key := profileFormKey(t.ProfileID, t.FormID)
	if _, exists := r.templates[t.TemplateUID]; exists {
		// Replace in place within the per-form slice.
		slice := r.byProfileForm[key]
		for i, old := range slice {
			if old.TemplateUID == t.TemplateUID {
				slice[i] = t
				break
			}
		}
	} else {
		r.byProfileForm[key] = append(r.byProfileForm[key], t)
	}
	r.templates[t.TemplateUID] = t

	slice := r.byProfileForm[key]
	sort.SliceStable(slice, func(i, j int) bool {
		return versionLess(slice[j].FormVersion, slice[i].FormVersion)
	})
	return nil
}

// validateTemplate checks v2 required fields, renderer, and the pdf
// source artifact.
func validateTemplate(t *Template) error {
	if t.TemplateVersion != TemplateSchemaVersion {
		return &ValidationError{
			Field:   "template_version",
			Message: fmt.Sprintf("unsupported schema version %d (want %d)", t.TemplateVersion, TemplateSchemaVersion),
		}
	}
	if t.ProfileID == "" {
		return &ValidationError{Field: "profile_id", Message: "required"}
	}
	if t.FormID == "" {
		return &ValidationError{Field: "form_id", Message: "required"}
	}
	if t.FormVersion == "" {
		return &ValidationError{Field: "form_version", Message: "required"}
	}
	switch t.Renderer {
	case RendererPDF, RendererPrint, RendererHTML:
	default:
		return &ValidationError{Field: "renderer", Message: fmt.Sprintf("unknown renderer %q", t.Renderer)}
	}
	if t.Renderer == RendererPDF {
		if t.PDFSource == "" {
			return &ValidationError{Field: "pdf_source", Message: "required for pdf renderer"}
		}
		if !t.PDFFingerprint.Valid() {
			return &ValidationError{Field: "pdf_fingerprint", Message: "malformed digest (want sha256:<hex>)"}
		}
		if _, err := os.Stat(t.PDFSource); err != nil {
			return &ValidationError{Field: "pdf_source", Message: fmt.Sprintf("artifact %s does not exist", t.PDFSource)}
		}
	}
	if t.TemplateUID != "" {
		p, f, v, err := ParseUID(t.TemplateUID)
		if err != nil {
			return &ValidationError{Field: "template_uid", Message: err.Error()}
		}
		if p != t.ProfileID || f != t.FormID || v != t.FormVersion {
			return &ValidationError{Field: "template_uid", Message: "does not match profile_id/form_id/form_version"}
		}
	}
	return nil
}

// TemplateByUID resolves a fully-qualified template UID.
func (r *Registry) TemplateByUID(uid string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[uid]
	if !ok {
		var candidates []string
		for known := range r.templates {
			candidates = append(candidates, known)
		}
		return nil, &NotFoundError{Query: uid, Suggestions: suggestionsFor(uid, candidates)}
	}
	return t, nil
}

// TemplatesFor returns the v2 templates of one form within one profile,
// newest form_version first.
func (r *Registry) TemplatesFor(profileID, formID string) []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slice := r.byProfileForm[profileFormKey(profileID, formID)]
	out := make([]*Template, len(slice))
	copy(out, slice)
	return out
}

// TemplateUIDs returns every known v2 template UID, sorted.
func (r *Registry) TemplateUIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uids := make([]string, 0, len(r.templates))
	for uid := range r.templates {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// LoadTemplatesDir reads every *.json v2 template in dir and indexes it
// for profileID. Artifact paths are resolved relative to dir at load time.
// Templates declaring a different profile id are rejected. Returns the
// loaded UIDs; per-file failures are joined into one error so a single bad
// file does not hide the rest.
func (r *Registry) LoadTemplatesDir(profileID, dir string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning templates dir: %w", err)
	}
	sort.Strings(entries)

	var loaded []string
	var errs []error
	for _, path := range entries {
		t, err := readTemplateFile(path, dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if t.ProfileID == "" {
			t.ProfileID = profileID
		}
		if t.ProfileID != profileID {
			errs = append(errs, fmt.Errorf("%s: template belongs to profile %q, not %q", path, t.ProfileID, profileID))
			continue
		}
		if err := r.AddTemplate(t, true); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		loaded = append(loaded, t.TemplateUID)
	}
	return loaded, errors.Join(errs...)
}

// readTemplateFile decodes one v2 template file and resolves its artifact
// path against baseDir.
func readTemplateFile(path, baseDir string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if t.PDFSource != "" && !filepath.IsAbs(t.PDFSource) {
		t.PDFSource = filepath.Join(baseDir, t.PDFSource)
	}
	return &t, nil
}
