// Package export orchestrates resolve -> merge -> integrity-verify ->
// render. The deterministic primary path exports one template snapshot by
// UID; the unified entry point adds profile-based candidate selection and
// a legacy compatibility path that engages only when no v2 template
// exists for the requested form.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/formdeck/formdeck/internal/binding"
	"github.com/formdeck/formdeck/internal/fingerprint"
	"github.com/formdeck/formdeck/internal/profile"
	"github.com/formdeck/formdeck/internal/registry"
	"github.com/formdeck/formdeck/internal/render"
	"github.com/formdeck/formdeck/internal/session"
)

// DefaultTimeout bounds one export. Hashing and rendering of large
// documents are the only I/O-bound steps, so a single deadline covers the
// whole pipeline.
const DefaultTimeout = 30 * time.Second

// Engine identifies which path produced an export.
type Engine string

const (
	EngineV2     Engine = "v2"
	EngineLegacy Engine = "legacy"
)

// Result reports a completed export.
type Result struct {
	Path        string `json:"path"`
	Engine      Engine `json:"engine"`
	TemplateUID string `json:"template_uid,omitempty"`
}

// Pipeline wires the profile store, template registry, binding resolver,
// and renderer table together. It is the only component with side effects:
// it writes output files.
type Pipeline struct {
	store     *profile.Store
	registry  *registry.Registry
	resolver  *binding.Resolver
	renderers map[string]render.Renderer
	legacy    *render.LegacyFiller
	timeout   time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout overrides the per-export deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithRenderers replaces the renderer table.
func WithRenderers(renderers map[string]render.Renderer) Option {
	return func(p *Pipeline) { p.renderers = renderers }
}

// WithResolver replaces the binding resolver.
func WithResolver(r *binding.Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// New creates an export pipeline.
func New(store *profile.Store, reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		registry:  reg,
		resolver:  binding.NewResolver(),
		renderers: render.Defaults(),
		legacy:    render.NewLegacyFiller(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export runs the deterministic path for one session: resolve the
// template snapshot, bind every declared field, overlay the session's
// values (explicit user edits always win), verify artifact integrity for
// pdf, and render. On success the session transitions to EXPORTED.
// Given identical (template, context, values), two calls produce
// byte-identical output.
func (p *Pipeline) Export(ctx context.Context, sess *session.FormSession, bctx *binding.Context, outPath string) (string, error) {
	if sess.State() != session.StateDraft {
		return "", session.ErrExported
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tpl := sess.Template()
	if tpl == nil {
		found, err := p.registry.TemplateByUID(sess.TemplateUID)
		if err != nil {
			return "", err
		}
		tpl = found
	}

	values := p.resolveValues(tpl, bctx)
	for k, v := range sess.Values() {
		values[k] = v // session is the final writer
	}

	renderer, ok := p.renderers[tpl.Renderer]
	if !ok {
		return "", &UnknownRendererError{Renderer: tpl.Renderer, TemplateUID: tpl.TemplateUID}
	}

	// The artifact is re-hashed immediately before writing so the output
	// is guaranteed to come from the exact artifact that was fingerprinted.
	if tpl.Renderer == registry.RendererPDF {
		if err := fingerprint.Verify(tpl.PDFSource, tpl.PDFFingerprint); err != nil {
			return "", err
		}
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	path, err := renderer.Render(ctx, tpl, values, outPath)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", tpl.TemplateUID, err)
	}

	if err := sess.MarkExported(); err != nil {
		return "", err
	}
	slog.Info("exported", "template", tpl.TemplateUID, "renderer", tpl.Renderer, "path", path)
	return path, nil
}

// resolveValues computes binding-resolved values for every declared field.
func (p *Pipeline) resolveValues(tpl *registry.Template, bctx *binding.Context) map[string]any {
	if bctx == nil {
		bctx = &binding.Context{}
	}
	values := make(map[string]any, len(tpl.Fields))
	for _, field := range tpl.Fields {
		values[field.Key] = p.resolver.BindField(bctx, field.Binding, field.Default)
	}
	return values
}

// UnifiedRequest carries the optional parameters of a unified export.
type UnifiedRequest struct {
	OutPath   string
	Values    map[string]any
	Context   *binding.Context
	ProfileID string
	Version   string
}

// ExportUnified is the produced interface of the subsystem. A
// fully-qualified template UID resolves directly through the
// deterministic path. A bare form id selects a candidate for the active
// (or given) profile: a configured active-version override wins, else the
// newest form version. The legacy path engages only when no v2 template
// exists for the form at all — a v2 template that exists but fails
// surfaces its error rather than being silently papered over.
func (p *Pipeline) ExportUnified(ctx context.Context, formOrUID string, req UnifiedRequest) (*Result, error) {
	bctx := req.Context
	if bctx == nil {
		bctx = &binding.Context{}
	}

	if registry.IsUID(formOrUID) {
		tpl, err := p.registry.TemplateByUID(formOrUID)
		if err != nil {
			return nil, err
		}
		return p.exportTemplate(ctx, tpl, bctx, req)
	}

	profileID := req.ProfileID
	if profileID == "" && p.store != nil {
		profileID = p.store.ActiveID()
	}

	candidates := p.candidatesFor(profileID, formOrUID, req.Version)
	if len(candidates) == 0 {
		return p.exportLegacy(ctx, formOrUID, profileID, req)
	}

	tpl := p.pickCandidate(profileID, formOrUID, candidates)
	return p.exportTemplate(ctx, tpl, bctx, req)
}

// candidatesFor lists the profile's v2 templates for a form, narrowed by
// the requested version (exact or semver constraint).
func (p *Pipeline) candidatesFor(profileID, formID, version string) []*registry.Template {
	if profileID == "" {
		return nil
	}
	all := p.registry.TemplatesFor(profileID, formID)
	if version == "" {
		return all
	}
	var out []*registry.Template
	for _, t := range all {
		if registry.VersionMatches(t.FormVersion, version) {
			out = append(out, t)
		}
	}
	return out
}

// pickCandidate applies the selection rule: the profile's configured
// active version for the form wins; otherwise the newest form version
// (candidates arrive newest-first from the registry).
func (p *Pipeline) pickCandidate(profileID, formID string, candidates []*registry.Template) *registry.Template {
	if p.store != nil {
		if active := p.store.ActiveVersion(profileID, formID); active != "" {
			for _, t := range candidates {
				if t.FormVersion == active {
					return t
				}
			}
			slog.Warn("configured active version not among candidates, using newest",
				"profile", profileID, "form", formID, "active_version", active)
		}
	}
	return candidates[0]
}

// exportTemplate runs the deterministic path for one selected template.
func (p *Pipeline) exportTemplate(ctx context.Context, tpl *registry.Template, bctx *binding.Context, req UnifiedRequest) (*Result, error) {
	if bctx.Computed == nil && p.store != nil {
		computed, err := p.store.ComputedFor(tpl.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("loading computed registry for %s: %w", tpl.ProfileID, err)
		}
		bctx.Computed = computed
	}

	sess := session.New(tpl, req.Values)
	path, err := p.Export(ctx, sess, bctx, req.OutPath)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Engine: EngineV2, TemplateUID: tpl.TemplateUID}, nil
}

// exportLegacy runs the compatibility path: flat registry lookup by
// (form_id, version) plus the conventional YAML field-mapping file,
// rendered through the simpler PDF filler.
func (p *Pipeline) exportLegacy(ctx context.Context, formID, profileID string, req UnifiedRequest) (*Result, error) {
	primary := &registry.NotFoundError{Query: registry.UID(profileID, formID, "*")}

	rec, err := p.registry.Find(registry.Query{FormID: formID, Version: req.Version})
	if err != nil {
		return nil, &FallbackError{FormID: formID, Primary: primary, Legacy: err}
	}

	artifact := p.registry.ArtifactPath(rec)
	mapping, err := render.LoadMapping(render.MappingPathFor(artifact))
	if err != nil {
		return nil, &FallbackError{FormID: formID, Primary: primary, Legacy: err}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if dir := filepath.Dir(req.OutPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	path, err := p.legacy.Fill(ctx, rec, artifact, mapping, req.Values, req.OutPath)
	if err != nil {
		return nil, &FallbackError{FormID: formID, Primary: primary, Legacy: err}
	}

	slog.Info("exported via legacy path", "form", formID, "version", rec.Version, "path", path)
	return &Result{Path: path, Engine: EngineLegacy}, nil
}
