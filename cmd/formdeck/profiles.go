package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/internal/output"
	"github.com/formdeck/formdeck/internal/profile"
)

var lintFormat string

// profilesCmd groups profile management subcommands.
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage configuration profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded profiles",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		active := store.ActiveID()
		for _, id := range store.IDs() {
			p, err := store.Get(id)
			if err != nil {
				continue
			}
			marker := " "
			if id == active {
				marker = "*"
			}
			line := fmt.Sprintf("%s %-20s %s", marker, id, p.Manifest.Name)
			if len(p.Manifest.Inherits) > 0 {
				line += fmt.Sprintf(" (inherits %s)", strings.Join(p.Manifest.Inherits, ", "))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var profilesLintCmd = &cobra.Command{
	Use:   "lint [profile-id]",
	Short: "Validate a profile's manifest, catalog, templates, and bindings",
	Long: `Run the full validation pass over one profile (or the active profile
when none is given): manifest schema, inheritance chain, template files,
binding references against the merged catalog and computed registry, and
artifact fingerprints. Errors block activation; warnings are advisory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		id := store.ActiveID()
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return errors.New("no profile given and no active profile set")
		}

		issues, err := store.Lint(id)
		if err != nil {
			return err
		}

		formatter, err := output.NewIssueFormatter(lintFormat, os.Stdout)
		if err != nil {
			return err
		}
		if err := formatter.Format(id, issues); err != nil {
			return err
		}
		if profile.HasErrors(issues) {
			os.Exit(1)
		}
		return nil
	},
}

var profilesUseCmd = &cobra.Command{
	Use:   "use <profile-id>",
	Short: "Set the active profile",
	Long: `Activate a profile after a passing lint. Activation is refused when
lint reports any error; the blocking issues are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		if err := store.SetActive(args[0]); err != nil {
			var actErr *profile.ActivationError
			if errors.As(err, &actErr) {
				formatter := output.NewTableFormatter(os.Stderr)
				_ = formatter.Format(args[0], actErr.Issues)
			}
			return err
		}
		fmt.Printf("active profile: %s\n", args[0])
		return nil
	},
}

var profilesReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rescan the profiles root",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		report, err := store.HotReload()
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d profile(s), skipped %d\n", len(report.Loaded), len(report.Skipped))
		for _, skipped := range report.Skipped {
			fmt.Printf("  skipped %s: %v\n", skipped.Path, skipped.Err)
		}
		if active := store.ActiveID(); active != "" {
			fmt.Printf("active profile: %s\n", active)
		} else {
			fmt.Println("no active profile")
		}
		return nil
	},
}

func init() {
	profilesLintCmd.Flags().StringVar(&lintFormat, "format", "table", "Output format: table, json, yaml, sarif")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesLintCmd)
	profilesCmd.AddCommand(profilesUseCmd)
	profilesCmd.AddCommand(profilesReloadCmd)
	rootCmd.AddCommand(profilesCmd)
}
