package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Registry holds flat records indexed by form id and v2 templates indexed
// by template UID. A sync.RWMutex guards the maps: reads are concurrent,
// mutation happens only through Register/AddTemplate and the reload paths.
type Registry struct {
	mu            sync.RWMutex
	records       map[string][]Record    // form_id -> newest-first
	templates     map[string]*Template   // template UID -> template
	byProfileForm map[string][]*Template // profile_id \x00 form_id -> newest-first

	path       string // backing flat registry file, optional
	baseDir    string
	dev        bool
	lastLoaded time.Time // mtime of the backing file at last load
}

// Option configures a Registry.
type Option func(*Registry)

// WithDevReload enables the cooperative dev-mode reload of the backing
// registry file. Without it ReloadIfDev and Watch are no-ops.
func WithDevReload() Option {
	return func(r *Registry) { r.dev = true }
}

// New creates an empty in-memory registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		records:       make(map[string][]Record),
		templates:     make(map[string]*Template),
		byProfileForm: make(map[string][]*Template),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates a registry backed by a flat registry file and loads it.
func Open(path string, opts ...Option) (*Registry, error) {
	r := New(opts...)
	r.path = path
	r.baseDir = filepath.Dir(path)
	if err := r.loadFile(); err != nil {
		return nil, err
	}
	return r, nil
}

// registryFile is the on-disk shape of the flat registry.
type registryFile struct {
	Version   int      `json:"version"`
	Templates []Record `json:"templates"`
}

// loadFile replaces the flat records with the backing file's contents.
func (r *Registry) loadFile() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("stat registry file: %w", err)
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading registry file: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing registry file %s: %w", r.path, err)
	}

	records := make(map[string][]Record, len(file.Templates))
	for _, rec := range file.Templates {
		if err := r.validateRecord(&rec); err != nil {
			return fmt.Errorf("registry file %s: %w", r.path, err)
		}
		records[rec.FormID] = append(records[rec.FormID], rec)
	}
	for formID := range records {
		sortRecords(records[formID])
	}

	r.mu.Lock()
	r.records = records
	r.lastLoaded = info.ModTime()
	r.mu.Unlock()
	return nil
}

// Save writes the flat records back to the backing registry file.
func (r *Registry) Save() error {
	if r.path == "" {
		return errors.New("registry has no backing file")
	}
	file := registryFile{Version: 1, Templates: r.Records()}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry file: %w", err)
	}
	if err := os.WriteFile(r.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing registry file: %w", err)
	}
	return nil
}

// ReloadIfDev re-reads the backing registry file, but only under the dev
// flag and only when the file's modification time has advanced since the
// last load. This is a cooperative, single-writer refresh.
func (r *Registry) ReloadIfDev() (bool, error) {
	if !r.dev || r.path == "" {
		return false, nil
	}
	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("stat registry file: %w", err)
	}
	r.mu.RLock()
	stale := info.ModTime().After(r.lastLoaded)
	r.mu.RUnlock()
	if !stale {
		return false, nil
	}
	if err := r.loadFile(); err != nil {
		return false, err
	}
	return true, nil
}

// Register adds a flat record. Required fields are validated, pdf/docx
// records must reference an existing artifact, and a duplicate
// (form_id, version) is rejected unless allowReplace is set, in which case
// the old record is replaced in place and ordering recomputed.
func (r *Registry) Register(rec Record, allowReplace bool) error {
	if err := r.validateRecord(&rec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.records[rec.FormID]
	for i, old := range existing {
		if old.Version == rec.Version {
			if !allowReplace {
				return &DuplicateError{FormID: rec.FormID, Version: rec.Version}
			}
			existing[i] = rec
			sortRecords(existing)
			return nil
		}
	}
	r.records[rec.FormID] = append(existing, rec)
	sortRecords(r.records[rec.FormID])
	return nil
}

// validateRecord checks required fields and artifact existence.
func (r *Registry) validateRecord(rec *Record) error {
	if rec.FormID == "" {
		return &ValidationError{Field: "form_id", Message: "required"}
	}
	if rec.Version == "" {
		return &ValidationError{Field: "version", Message: "required"}
	}
	if !ValidFormat(rec.Format) {
		return &ValidationError{Field: "format", Message: fmt.Sprintf("unknown format %q", rec.Format)}
	}
	// Internal-format records render without a backing artifact.
	if rec.Format == FormatPDF || rec.Format == FormatDOCX {
		if rec.FilePath == "" {
			return &ValidationError{Field: "file_path", Message: fmt.Sprintf("required for %s format", rec.Format)}
		}
		if _, err := os.Stat(r.resolveArtifact(rec.FilePath)); err != nil {
			return &ValidationError{Field: "file_path", Message: fmt.Sprintf("artifact %s does not exist", rec.FilePath)}
		}
	}
	return nil
}

// resolveArtifact resolves a record's artifact path against the registry
// file's directory.
func (r *Registry) resolveArtifact(path string) string {
	if filepath.IsAbs(path) || r.baseDir == "" {
		return path
	}
	return filepath.Join(r.baseDir, path)
}

// ArtifactPath returns the absolute artifact path for a record.
func (r *Registry) ArtifactPath(rec *Record) string {
	return r.resolveArtifact(rec.FilePath)
}

// Query narrows a template lookup. FormID takes precedence over ClassName
// when both are set. Version may be an exact version string or a semver
// constraint such as "^2025" or ">=2025.5".
type Query struct {
	FormID            string
	ClassName         string
	Version           string
	Jurisdiction      string
	IncludeDeprecated bool
}

// Find answers a precedence-based lookup:
//   - form_id lookup when given, otherwise class_name lookup
//   - exact jurisdiction match preferred; fall back to records with no
//     jurisdiction set
//   - deprecated records excluded unless requested
//   - records are newest-first, so the first survivor wins
//
// A miss returns a *NotFoundError carrying fuzzy suggestions.
func (r *Registry) Find(q Query) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pool []Record
	switch {
	case q.FormID != "":
		pool = append(pool, r.records[q.FormID]...)
	case q.ClassName != "":
		for _, recs := range r.records {
			for _, rec := range recs {
				if rec.ClassName == q.ClassName {
					pool = append(pool, rec)
				}
			}
		}
		sortRecords(pool)
	default:
		return nil, &ValidationError{Field: "query", Message: "form_id or class_name is required"}
	}

	candidates := pool[:0:0]
	for _, rec := range pool {
		if rec.Deprecated && !q.IncludeDeprecated {
			continue
		}
		if !VersionMatches(rec.Version, q.Version) {
			continue
		}
		candidates = append(candidates, rec)
	}

	if q.Jurisdiction != "" {
		exact := filterJurisdiction(candidates, q.Jurisdiction)
		if len(exact) == 0 {
			exact = filterJurisdiction(candidates, "")
		}
		candidates = exact
	}

	if len(candidates) == 0 {
		return nil, r.notFoundLocked(q)
	}
	rec := candidates[0]
	return &rec, nil
}

// ResolveForCreation picks the template for a new form instance.
// An explicit preferred form id wins over class-based lookup.
func (r *Registry) ResolveForCreation(formClass, preferredFormID, version, jurisdiction string) (*Record, error) {
	if preferredFormID != "" {
		rec, err := r.Find(Query{FormID: preferredFormID, Version: version, Jurisdiction: jurisdiction})
		if err == nil {
			return rec, nil
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		// Fall through to class lookup on a plain miss.
	}
	return r.Find(Query{ClassName: formClass, Version: version, Jurisdiction: jurisdiction})
}

// notFoundLocked builds a NotFoundError with suggestions from everything
// the registry knows. Caller must hold at least the read lock.
func (r *Registry) notFoundLocked(q Query) error {
	query := q.FormID
	if query == "" {
		query = q.ClassName
	}
	var candidates []string
	for formID, recs := range r.records {
		candidates = append(candidates, formID)
		for _, rec := range recs {
			candidates = append(candidates, rec.Title)
			candidates = append(candidates, rec.Tags...)
		}
	}
	return &NotFoundError{Query: query, Suggestions: suggestionsFor(query, candidates)}
}

// FormIDs returns all known form ids, sorted.
func (r *Registry) FormIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Records returns every flat record, grouped by form id in sorted order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, id := range r.formIDsLocked() {
		out = append(out, r.records[id]...)
	}
	return out
}

func (r *Registry) formIDsLocked() []string {
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VersionMatches reports whether a record version satisfies the query
// version: empty matches all, an exact string match always wins, and
// anything else is tried as a semver constraint.
func VersionMatches(recordVersion, queryVersion string) bool {
	if queryVersion == "" || recordVersion == queryVersion {
		return true
	}
	constraint, err := semver.NewConstraint(queryVersion)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(recordVersion)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

func filterJurisdiction(recs []Record, jurisdiction string) []Record {
	var out []Record
	for _, rec := range recs {
		if rec.Jurisdiction == jurisdiction {
			out = append(out, rec)
		}
	}
	return out
}

// sortRecords orders records newest-first by parsed semantic version.
// Versions that do not parse sort after all parseable ones, tie-broken by
// raw string comparison (descending, mirroring newest-first).
func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return versionLess(recs[j].Version, recs[i].Version)
	})
}

// versionLess reports whether a orders before b in oldest-first terms.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.LessThan(vb)
	case errA == nil:
		// Parseable versions order after (i.e. newer than) unparseable.
		return false
	case errB == nil:
		return true
	default:
		return a < b
	}
}
