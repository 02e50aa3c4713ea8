package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/formdeck/formdeck/internal/profile"
	"github.com/formdeck/formdeck/internal/registry"
)

// TableFormatter formats lint issues as a human-readable table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Format writes the lint issues grouped under a per-profile header.
func (f *TableFormatter) Format(profileID string, issues []profile.Issue) error {
	if len(issues) == 0 {
		fmt.Fprintf(f.writer, "Profile %s: no issues\n", profileID)
		return nil
	}

	errs, warns := 0, 0
	for _, issue := range issues {
		if issue.Level == profile.LevelError {
			errs++
		} else {
			warns++
		}
	}
	fmt.Fprintf(f.writer, "Profile %s: %d error(s), %d warning(s)\n", profileID, errs, warns)
	fmt.Fprintln(f.writer, strings.Repeat("─", 80))

	for _, issue := range issues {
		symbol := "⚠"
		if issue.Level == profile.LevelError {
			symbol = "✗"
		}
		fmt.Fprintf(f.writer, "%s [%s] %s\n", symbol, issue.Code, issue.Message)
		if issue.Path != "" {
			fmt.Fprintf(f.writer, "    at %s\n", issue.Path)
		}
	}
	fmt.Fprintln(f.writer, strings.Repeat("─", 80))
	return nil
}

// WriteRecordList renders flat registry records as a listing table.
func WriteRecordList(w io.Writer, records []registry.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No templates registered.")
		return
	}
	fmt.Fprintf(w, "%-16s %-10s %-10s %-14s %s\n", "FORM", "VERSION", "FORMAT", "JURISDICTION", "TITLE")
	for _, rec := range records {
		title := rec.Title
		if rec.Deprecated {
			title += " (deprecated)"
		}
		fmt.Fprintf(w, "%-16s %-10s %-10s %-14s %s\n",
			rec.FormID, rec.Version, rec.Format, rec.Jurisdiction, title)
	}
}

// WriteTemplateList renders v2 template UIDs, one per line.
func WriteTemplateList(w io.Writer, uids []string) {
	if len(uids) == 0 {
		fmt.Fprintln(w, "No v2 templates loaded.")
		return
	}
	for _, uid := range uids {
		fmt.Fprintln(w, uid)
	}
}
