package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formdeck/formdeck/internal/output"
	"github.com/formdeck/formdeck/internal/registry"
)

var (
	allowReplace       bool
	searchVersion      string
	searchJurisdiction string
	includeDeprecated  bool
)

// templatesCmd groups template registry subcommands.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the template registry",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered templates",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		reg, err := openRegistry(store)
		if err != nil {
			return err
		}

		output.WriteRecordList(os.Stdout, reg.Records())
		if uids := reg.TemplateUIDs(); len(uids) > 0 {
			fmt.Println()
			fmt.Println("v2 templates:")
			output.WriteTemplateList(os.Stdout, uids)
		}
		return nil
	},
}

var templatesSearchCmd = &cobra.Command{
	Use:   "search <form-id>",
	Short: "Look up a template by form id",
	Long: `Resolve a form id through the precedence rules: newest matching
version first, exact jurisdiction preferred with fallback to records
that set none. A miss prints fuzzy suggestions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		reg, err := openRegistry(store)
		if err != nil {
			return err
		}

		rec, err := reg.Find(registry.Query{
			FormID:            args[0],
			Version:           searchVersion,
			Jurisdiction:      searchJurisdiction,
			IncludeDeprecated: includeDeprecated,
		})
		if err != nil {
			var nf *registry.NotFoundError
			if errors.As(err, &nf) && len(nf.Suggestions) > 0 {
				fmt.Fprintf(os.Stderr, "not found: %s\ndid you mean: %s\n",
					args[0], strings.Join(nf.Suggestions, ", "))
				os.Exit(1)
			}
			return err
		}

		output.WriteRecordList(os.Stdout, []registry.Record{*rec})
		return nil
	},
}

var templatesRegisterCmd = &cobra.Command{
	Use:   "register <record.json>",
	Short: "Register a template record in the flat registry",
	Long: `Validate a record file and add it to the backing registry file set
via --registry. A duplicate (form_id, version) is rejected unless
--allow-replace is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		reg, err := openRegistry(store)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading record file: %w", err)
		}
		var rec registry.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("parsing record file %s: %w", args[0], err)
		}

		if err := reg.Register(rec, allowReplace); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Printf("registered %s@%s\n", rec.FormID, rec.Version)
		return nil
	},
}

var templatesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the flat registry file and hot-reload it (dev mode)",
	Long: `Run until interrupted, reloading the registry file set via
--registry whenever it changes on disk. Intended for template authoring.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		reg, err := openRegistry(store, registry.WithDevReload())
		if err != nil {
			return err
		}
		return reg.Watch(cmd.Context())
	},
}

func init() {
	templatesSearchCmd.Flags().StringVar(&searchVersion, "version", "", "Exact version or semver constraint")
	templatesSearchCmd.Flags().StringVar(&searchJurisdiction, "jurisdiction", "", "Preferred jurisdiction")
	templatesSearchCmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", false, "Include deprecated records")
	templatesRegisterCmd.Flags().BoolVar(&allowReplace, "allow-replace", false, "Replace an existing (form_id, version) record")

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesSearchCmd)
	templatesCmd.AddCommand(templatesRegisterCmd)
	templatesCmd.AddCommand(templatesWatchCmd)
	rootCmd.AddCommand(templatesCmd)
}
