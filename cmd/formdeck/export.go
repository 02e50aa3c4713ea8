package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/internal/binding"
	"github.com/formdeck/formdeck/internal/export"
	"github.com/formdeck/formdeck/internal/registry"
)

var (
	exportOut         string
	exportProfile     string
	exportVersion     string
	exportSets        []string
	exportContextFile string
	exportInteractive bool
)

// exportCmd renders one document through the unified export path.
var exportCmd = &cobra.Command{
	Use:   "export <form-id | template-uid>",
	Short: "Export a filled document",
	Long: `Export a form through the deterministic pipeline. A fully-qualified
template UID (profile:form@version) resolves directly; a bare form id
selects a candidate for the active (or --profile) profile, preferring a
configured active version, else the newest. The legacy mapping-file path
engages only when no v2 template exists for the form.

Values:
  --set k=v          Set a field value (repeatable)
  --context ctx.json Load context buckets (constants, mission, personnel, env)
  --interactive      Prompt for every declared field`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		reg, err := openRegistry(store)
		if err != nil {
			return err
		}

		bctx, err := loadExportContext(exportContextFile)
		if err != nil {
			return err
		}
		values, err := parseSetFlags(exportSets)
		if err != nil {
			return err
		}

		if exportInteractive {
			if err := promptForValues(reg, store.ActiveID(), args[0], values); err != nil {
				return err
			}
		}

		pipeline := export.New(store, reg)
		result, err := pipeline.ExportUnified(cmd.Context(), args[0], export.UnifiedRequest{
			OutPath:   exportOut,
			Values:    values,
			Context:   bctx,
			ProfileID: exportProfile,
			Version:   exportVersion,
		})
		if err != nil {
			return err
		}

		fmt.Printf("exported %s (%s engine)\n", result.Path, result.Engine)
		return nil
	},
}

// contextFile is the on-disk shape of --context.
type contextFile struct {
	Constants map[string]any `json:"constants"`
	Mission   map[string]any `json:"mission"`
	Personnel map[string]any `json:"personnel"`
	Env       map[string]any `json:"env"`
}

// loadExportContext reads the optional context file into binding buckets.
func loadExportContext(path string) (*binding.Context, error) {
	if path == "" {
		return &binding.Context{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}
	var file contextFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing context file %s: %w", path, err)
	}
	return &binding.Context{
		Constants: file.Constants,
		Mission:   file.Mission,
		Personnel: file.Personnel,
		Env:       file.Env,
	}, nil
}

// parseSetFlags turns repeated --set k=v flags into a values map.
func parseSetFlags(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected k=v", set)
		}
		values[key] = value
	}
	return values, nil
}

// promptForValues runs an interactive form over the selected template's
// declared fields. Values already given via --set are pre-filled and kept.
func promptForValues(reg *registry.Registry, activeProfile, formOrUID string, values map[string]any) error {
	var tpl *registry.Template
	if registry.IsUID(formOrUID) {
		found, err := reg.TemplateByUID(formOrUID)
		if err != nil {
			return err
		}
		tpl = found
	} else {
		profileID := exportProfile
		if profileID == "" {
			profileID = activeProfile
		}
		candidates := reg.TemplatesFor(profileID, formOrUID)
		if len(candidates) == 0 {
			return fmt.Errorf("no v2 template for %q, interactive mode needs declared fields", formOrUID)
		}
		tpl = candidates[0]
	}

	inputs := make(map[string]*string, len(tpl.Fields))
	var fields []huh.Field
	for _, field := range tpl.Fields {
		value := new(string)
		if existing, ok := values[field.Key]; ok {
			*value = fmt.Sprint(existing)
		}
		inputs[field.Key] = value

		title := field.Label
		if title == "" {
			title = field.Name
		}
		fields = append(fields, huh.NewInput().Title(title).Value(value))
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return err
	}

	for key, value := range inputs {
		if *value != "" {
			values[key] = *value
		}
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file path")
	exportCmd.Flags().StringVar(&exportProfile, "profile", "", "Profile to resolve against (default: active)")
	exportCmd.Flags().StringVar(&exportVersion, "version", "", "Exact version or semver constraint")
	exportCmd.Flags().StringArrayVar(&exportSets, "set", nil, "Set a field value as k=v (repeatable)")
	exportCmd.Flags().StringVar(&exportContextFile, "context", "", "JSON file with context buckets")
	exportCmd.Flags().BoolVar(&exportInteractive, "interactive", false, "Prompt for field values")
	_ = exportCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(exportCmd)
}
