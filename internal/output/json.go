package output

import (
	"encoding/json"
	"io"

	"github.com/formdeck/formdeck/internal/profile"
)

// JSONFormatter formats lint issues as JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// lintReport is the JSON/YAML shape of one profile's lint result.
type lintReport struct {
	ProfileID string          `json:"profile_id" yaml:"profile_id"`
	Errors    int             `json:"errors" yaml:"errors"`
	Warnings  int             `json:"warnings" yaml:"warnings"`
	Issues    []profile.Issue `json:"issues" yaml:"issues"`
}

func newLintReport(profileID string, issues []profile.Issue) lintReport {
	report := lintReport{ProfileID: profileID, Issues: issues}
	if report.Issues == nil {
		report.Issues = []profile.Issue{}
	}
	for _, issue := range issues {
		if issue.Level == profile.LevelError {
			report.Errors++
		} else {
			report.Warnings++
		}
	}
	return report
}

// Format writes the lint issues as pretty-printed JSON.
func (f *JSONFormatter) Format(profileID string, issues []profile.Issue) error {
	data, err := json.MarshalIndent(newLintReport(profileID, issues), "", "  ")
	if err != nil {
		return err
	}
	if _, err := f.writer.Write(data); err != nil {
		return err
	}
	_, err = f.writer.Write([]byte("\n"))
	return err
}
