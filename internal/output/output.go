// Package output provides CLI formatters for lint results and registry
// listings.
package output

import (
	"fmt"
	"io"

	"github.com/formdeck/formdeck/internal/profile"
)

// IssueFormatter renders a batch of lint issues for one profile.
type IssueFormatter interface {
	Format(profileID string, issues []profile.Issue) error
}

// NewIssueFormatter returns a formatter for the given format name.
func NewIssueFormatter(format string, w io.Writer) (IssueFormatter, error) {
	switch format {
	case "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "yaml":
		return NewYAMLFormatter(w), nil
	case "sarif":
		return NewSARIFFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: table, json, yaml, sarif)", format)
	}
}
