package output

import (
	"io"

	"github.com/goccy/go-yaml"

	"github.com/formdeck/formdeck/internal/profile"
)

// YAMLFormatter formats lint issues as YAML.
type YAMLFormatter struct {
	writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

// Format writes the lint issues as YAML.
func (f *YAMLFormatter) Format(profileID string, issues []profile.Issue) error {
	encoder := yaml.NewEncoder(f.writer, yaml.Indent(2))
	if err := encoder.Encode(newLintReport(profileID, issues)); err != nil {
		return err
	}
	return encoder.Close()
}
