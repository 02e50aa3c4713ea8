package output

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v3/pkg/report/v210/sarif"

	"github.com/formdeck/formdeck/internal/profile"
	"github.com/formdeck/formdeck/internal/version"
)

// SARIFFormatter formats lint issues as SARIF 2.1.0 JSON. Each distinct
// issue code becomes a rule; each issue becomes a result located at the
// offending file when the issue carries a path.
type SARIFFormatter struct {
	writer io.Writer
}

// NewSARIFFormatter creates a new SARIF formatter.
func NewSARIFFormatter(w io.Writer) *SARIFFormatter {
	return &SARIFFormatter{writer: w}
}

// Format writes the lint issues as SARIF 2.1.0 JSON.
func (f *SARIFFormatter) Format(profileID string, issues []profile.Issue) error {
	report := sarif.NewReport()

	run := sarif.NewRunWithInformationURI("FormDeck", "https://github.com/formdeck/formdeck")
	run.Tool.Driver.Version = ptrString(version.Version)

	addRules(run, issues)
	addResults(run, profileID, issues)

	props := sarif.NewPropertyBag()
	props.Add("profile_id", profileID)
	run.WithProperties(props)

	report.AddRun(run)
	if err := report.Write(f.writer); err != nil {
		return fmt.Errorf("failed to write SARIF output: %w", err)
	}
	_, err := f.writer.Write([]byte("\n"))
	return err
}

// addRules registers one SARIF rule per distinct issue code.
func addRules(run *sarif.Run, issues []profile.Issue) {
	seen := make(map[string]bool)
	for _, issue := range issues {
		if seen[issue.Code] {
			continue
		}
		seen[issue.Code] = true

		name := issue.Code
		rule := sarif.NewReportingDescriptor().WithID(issue.Code)
		rule.WithName(name)
		rule.WithShortDescription(&sarif.MultiformatMessageString{Text: &name})
		rule.WithDefaultConfiguration(&sarif.ReportingConfiguration{
			Level: levelFor(issue.Level),
		})
		run.Tool.Driver.AddRule(rule)
	}
}

// addResults converts each issue to a SARIF result.
func addResults(run *sarif.Run, profileID string, issues []profile.Issue) {
	for _, issue := range issues {
		result := sarif.NewRuleResult(issue.Code)
		result.Level = levelFor(issue.Level)
		result.Message = sarif.NewTextMessage(issue.Message)
		if issue.Path != "" {
			pLoc := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithURI(issue.Path))
			result.Locations = []*sarif.Location{
				sarif.NewLocation().WithPhysicalLocation(pLoc),
			}
		}
		props := sarif.NewPropertyBag()
		props.Add("profile_id", profileID)
		result.WithProperties(props)
		run.AddResult(result)
	}
}

func levelFor(level profile.Level) string {
	if level == profile.LevelError {
		return "error"
	}
	return "warning"
}

func ptrString(s string) *string {
	return &s
}
