// Package registry indexes versioned template records and answers
// precedence-based lookup queries. Flat records describe the legacy
// catalog of renderable forms; v2 templates are per-profile definitions
// with field bindings and a fingerprinted source artifact.
package registry

import (
	"fmt"
	"strings"

	"github.com/formdeck/formdeck/internal/binding"
	"github.com/formdeck/formdeck/internal/fingerprint"
)

// Format identifies how a flat record's artifact is rendered.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatInternal Format = "internal"
)

// ValidFormat reports whether f is a known record format.
func ValidFormat(f Format) bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatInternal:
		return true
	}
	return false
}

// Record is a flat (v1) template record.
// (FormID, Version) is unique within a registry unless an explicit
// replace is requested. pdf/docx records must reference an existing
// artifact file.
type Record struct {
	FormID       string   `json:"form_id"`
	Title        string   `json:"title"`
	ClassName    string   `json:"class_name"`
	Version      string   `json:"version"`
	Format       Format   `json:"format"`
	FilePath     string   `json:"file_path,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Related      []string `json:"related,omitempty"`
	Deprecated   bool     `json:"deprecated,omitempty"`
}

// HasTag checks if the record carries a specific tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Renderer types accepted by v2 templates.
const (
	RendererPDF   = "pdf"
	RendererPrint = "print"
	RendererHTML  = "html"
)

// TemplateSchemaVersion is the v2 template schema this build understands.
const TemplateSchemaVersion = 2

// Field is one declared field of a v2 template.
type Field struct {
	Name    string               `json:"name"`
	Key     string               `json:"key"`
	Label   string               `json:"label,omitempty"`
	Type    string               `json:"type,omitempty"`
	Binding binding.FieldBinding `json:"binding"`
	Default any                  `json:"default,omitempty"`
}

// Template is a per-profile v2 template definition.
type Template struct {
	TemplateVersion int                `json:"template_version"`
	ProfileID       string             `json:"profile_id"`
	FormID          string             `json:"form_id"`
	FormVersion     string             `json:"form_version"`
	TemplateUID     string             `json:"template_uid"`
	Title           string             `json:"title,omitempty"`
	Renderer        string             `json:"renderer"`
	PDFSource       string             `json:"pdf_source,omitempty"`
	PDFFingerprint  fingerprint.Digest `json:"pdf_fingerprint,omitempty"`
	Fields          []Field            `json:"fields"`
}

// Clone returns an independent copy of the template, including its fields.
// Sessions snapshot templates at creation time so a hot reload cannot
// change what an in-flight session exports.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Fields = make([]Field, len(t.Fields))
	copy(out.Fields, t.Fields)
	return &out
}

// UID formats the stable template identifier <profile>:<form_id>@<version>.
func UID(profileID, formID, version string) string {
	return fmt.Sprintf("%s:%s@%s", profileID, formID, version)
}

// ParseUID splits a template UID into its parts.
func ParseUID(uid string) (profileID, formID, version string, err error) {
	colon := strings.Index(uid, ":")
	at := strings.LastIndex(uid, "@")
	if colon <= 0 || at <= colon+1 || at == len(uid)-1 {
		return "", "", "", fmt.Errorf("malformed template UID %q (want <profile>:<form_id>@<version>)", uid)
	}
	return uid[:colon], uid[colon+1 : at], uid[at+1:], nil
}

// IsUID reports whether s looks like a fully-qualified template UID.
func IsUID(s string) bool {
	_, _, _, err := ParseUID(s)
	return err == nil
}
