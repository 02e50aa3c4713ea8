package profile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"github.com/formdeck/formdeck/internal/binding"
	"github.com/formdeck/formdeck/internal/fingerprint"
	"github.com/formdeck/formdeck/internal/registry"
)

// Level classifies a lint issue. ERROR blocks activation; WARNING is
// advisory.
type Level string

const (
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
)

// Lint issue codes.
const (
	CodeMissingField        = "MISSING_FIELD"
	CodeBadManifest         = "BAD_MANIFEST"
	CodeBadTemplate         = "BAD_TEMPLATE"
	CodeBadSchemaVersion    = "BAD_SCHEMA_VERSION"
	CodeDuplicateFieldKey   = "DUPLICATE_FIELD_KEY"
	CodeUnknownSource       = "UNKNOWN_SOURCE"
	CodeUnknownBinding      = "UNKNOWN_BINDING"
	CodeSourceMismatch      = "SOURCE_MISMATCH"
	CodeMissingArtifact     = "MISSING_ARTIFACT"
	CodeFingerprintMismatch = "FINGERPRINT_MISMATCH"
)

// Issue is one lint finding. Issues are collected and returned as a batch
// so all problems can be shown at once.
type Issue struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

//go:embed schemas/manifest.schema.json
var manifestSchemaJSON []byte

//go:embed schemas/template.schema.json
var templateSchemaJSON []byte

var (
	schemaOnce     sync.Once
	manifestSchema *jsonschema.Schema
	templateSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if schemaErr = compiler.AddResource("manifest.schema.json", bytes.NewReader(manifestSchemaJSON)); schemaErr != nil {
			return
		}
		if schemaErr = compiler.AddResource("template.schema.json", bytes.NewReader(templateSchemaJSON)); schemaErr != nil {
			return
		}
		if manifestSchema, schemaErr = compiler.Compile("manifest.schema.json"); schemaErr != nil {
			return
		}
		templateSchema, schemaErr = compiler.Compile("template.schema.json")
	})
	return manifestSchema, templateSchema, schemaErr
}

// Lint validates a profile and everything its chain contributes: manifest
// completeness and schema, template schema-version compatibility,
// duplicate field keys, binding keys against the merged catalog and
// computed registry, and artifact presence plus fingerprint match.
// The returned slice holds every finding; err is reserved for failures of
// the lint run itself (unknown profile, cyclic chain).
func (s *Store) Lint(id string) ([]Issue, error) {
	chain, err := s.Chain(id)
	if err != nil {
		return nil, err
	}
	catalog, err := s.CatalogFor(id)
	if err != nil {
		return nil, err
	}
	computed, err := s.ComputedFor(id)
	if err != nil {
		return nil, err
	}

	manifestSchema, templateSchema, err := compiledSchemas()
	if err != nil {
		return nil, fmt.Errorf("compiling lint schemas: %w", err)
	}

	var issues []Issue
	seenFieldKeys := make(map[string]string) // field key -> first template file
	var artifacts []artifactCheck

	for _, pid := range chain {
		p, err := s.Get(pid)
		if err != nil {
			return nil, err
		}
		issues = append(issues, lintManifest(p, manifestSchema)...)

		dir := p.TemplatesDir()
		if dir == "" {
			continue
		}
		paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("scanning templates of %s: %w", pid, err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			tplIssues, checks := lintTemplateFile(path, dir, templateSchema, catalog, computed, seenFieldKeys)
			issues = append(issues, tplIssues...)
			artifacts = append(artifacts, checks...)
		}
	}

	issues = append(issues, verifyArtifacts(artifacts)...)
	return issues, nil
}

// lintManifest checks one manifest's completeness and declared paths.
func lintManifest(p *Profile, schema *jsonschema.Schema) []Issue {
	var issues []Issue
	manifestPath := filepath.Join(p.Dir, ManifestFileName)

	if doc, err := readJSONDoc(manifestPath); err != nil {
		issues = append(issues, Issue{
			Level: LevelError, Code: CodeBadManifest,
			Message: err.Error(), Path: manifestPath,
		})
	} else if err := schema.Validate(doc); err != nil {
		issues = append(issues, Issue{
			Level: LevelError, Code: CodeBadManifest,
			Message: fmt.Sprintf("schema validation: %v", err), Path: manifestPath,
		})
	}

	if p.Manifest.Name == "" {
		issues = append(issues, Issue{
			Level: LevelError, Code: CodeMissingField,
			Message: fmt.Sprintf("profile %s: manifest field \"name\" is required", p.ID()),
			Path:    manifestPath,
		})
	}
	for field, path := range map[string]string{
		"catalog":       p.CatalogPath(),
		"templates_dir": p.TemplatesDir(),
		"computed":      p.ComputedPath(),
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			issues = append(issues, Issue{
				Level: LevelError, Code: CodeMissingField,
				Message: fmt.Sprintf("profile %s: declared %s %q does not exist", p.ID(), field, path),
				Path:    manifestPath,
			})
		}
	}
	return issues
}

// artifactCheck is one deferred fingerprint verification.
type artifactCheck struct {
	templatePath string
	artifact     string
	expected     fingerprint.Digest
}

// lintTemplateFile validates one v2 template file and queues its artifact
// for fingerprint verification.
func lintTemplateFile(
	path, baseDir string,
	schema *jsonschema.Schema,
	catalog *Catalog,
	computed *binding.ComputedRegistry,
	seenFieldKeys map[string]string,
) ([]Issue, []artifactCheck) {
	var issues []Issue

	doc, err := readJSONDoc(path)
	if err != nil {
		return []Issue{{Level: LevelError, Code: CodeBadTemplate, Message: err.Error(), Path: path}}, nil
	}
	if err := schema.Validate(doc); err != nil {
		issues = append(issues, Issue{
			Level: LevelError, Code: CodeBadTemplate,
			Message: fmt.Sprintf("schema validation: %v", err), Path: path,
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return append(issues, Issue{Level: LevelError, Code: CodeBadTemplate, Message: err.Error(), Path: path}), nil
	}
	var tpl registry.Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return append(issues, Issue{
			Level: LevelError, Code: CodeBadTemplate,
			Message: fmt.Sprintf("parsing template: %v", err), Path: path,
		}), nil
	}

	if tpl.TemplateVersion != registry.TemplateSchemaVersion {
		issues = append(issues, Issue{
			Level: LevelError, Code: CodeBadSchemaVersion,
			Message: fmt.Sprintf("template_version %d is not supported (want %d)", tpl.TemplateVersion, registry.TemplateSchemaVersion),
			Path:    path,
		})
	}

	localKeys := make(map[string]bool)
	for _, field := range tpl.Fields {
		if localKeys[field.Key] {
			issues = append(issues, Issue{
				Level: LevelError, Code: CodeDuplicateFieldKey,
				Message: fmt.Sprintf("field key %q appears more than once", field.Key),
				Path:    path,
			})
		}
		localKeys[field.Key] = true

		if first, dup := seenFieldKeys[field.Key]; dup && first != path {
			issues = append(issues, Issue{
				Level: LevelWarning, Code: CodeDuplicateFieldKey,
				Message: fmt.Sprintf("field key %q is also declared in %s", field.Key, first),
				Path:    path,
			})
		} else if !dup {
			seenFieldKeys[field.Key] = path
		}

		issues = append(issues, lintBinding(field, catalog, computed, path)...)
	}

	if tpl.Renderer == registry.RendererPDF && tpl.PDFSource != "" {
		artifact := tpl.PDFSource
		if !filepath.IsAbs(artifact) {
			artifact = filepath.Join(baseDir, artifact)
		}
		return issues, []artifactCheck{{templatePath: path, artifact: artifact, expected: tpl.PDFFingerprint}}
	}
	return issues, nil
}

// lintBinding checks one field binding against the merged catalog and
// computed registry.
func lintBinding(field registry.Field, catalog *Catalog, computed *binding.ComputedRegistry, path string) []Issue {
	b := field.Binding
	if !binding.ValidSource(b.Source) {
		return []Issue{{
			Level: LevelError, Code: CodeUnknownSource,
			Message: fmt.Sprintf("field %q: unknown binding source %q", field.Key, b.Source),
			Path:    path,
		}}
	}
	if b.Source == binding.SourceComputed {
		if !computed.Has(b.Key) {
			return []Issue{{
				Level: LevelError, Code: CodeUnknownBinding,
				Message: fmt.Sprintf("field %q: computed binding %q is not registered in the chain", field.Key, b.Key),
				Path:    path,
			}}
		}
		return nil
	}

	entry, ok := catalog.Keys[b.Key]
	if !ok {
		return []Issue{{
			Level: LevelError, Code: CodeUnknownBinding,
			Message: fmt.Sprintf("field %q: binding key %q is absent from the merged catalog", field.Key, b.Key),
			Path:    path,
		}}
	}
	if entry.Source != "" && entry.Source != b.Source {
		return []Issue{{
			Level: LevelWarning, Code: CodeSourceMismatch,
			Message: fmt.Sprintf("field %q: binding source %q differs from catalog source %q for key %q", field.Key, b.Source, entry.Source, b.Key),
			Path:    path,
		}}
	}
	return nil
}

// verifyArtifacts checks artifact presence and fingerprints concurrently.
// Hashing streams each file, and the group bounds parallelism so a chain
// with many templates does not open every artifact at once.
func verifyArtifacts(checks []artifactCheck) []Issue {
	if len(checks) == 0 {
		return nil
	}

	issues := make([][]Issue, len(checks))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(4)
	for i, check := range checks {
		g.Go(func() error {
			if _, err := os.Stat(check.artifact); err != nil {
				issues[i] = []Issue{{
					Level: LevelError, Code: CodeMissingArtifact,
					Message: fmt.Sprintf("artifact %s does not exist", check.artifact),
					Path:    check.templatePath,
				}}
				return nil
			}
			if err := fingerprint.Verify(check.artifact, check.expected); err != nil {
				issues[i] = []Issue{{
					Level: LevelError, Code: CodeFingerprintMismatch,
					Message: err.Error(), Path: check.templatePath,
				}}
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines only record issues, they never fail

	var out []Issue
	for _, batch := range issues {
		out = append(out, batch...)
	}
	return out
}

// readJSONDoc decodes a JSON file into the generic shape jsonschema
// validates against.
func readJSONDoc(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// HasErrors reports whether any issue in the batch is ERROR-level.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Level == LevelError {
			return true
		}
	}
	return false
}
