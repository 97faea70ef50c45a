package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"covertype/internal/assets"
	"covertype/internal/features"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature schema derived from the reference dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadSettings()
			if err != nil {
				return err
			}
			a, err := loadAssets(c)
			if err != nil {
				return fmt.Errorf("failed to load artifacts: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.Schema.Partition())
			}
			printSchema(cmd.OutOrStdout(), a)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the partition as JSON")
	return cmd
}

func printSchema(w io.Writer, a *assets.Assets) {
	fmt.Fprintf(w, "Model loaded. Expecting %d features.\n\n", a.Schema.Len())

	fmt.Fprintf(w, "Numeric (%d):\n", len(a.Form.Numeric))
	for _, nf := range a.Form.Numeric {
		fmt.Fprintf(w, "  %-40s %s\n", nf.Name, nf.Display())
	}
	for _, sel := range []struct {
		title   string
		options []string
	}{
		{a.Form.Wilderness.Title, optionNames(a.Form.Wilderness.Options)},
		{a.Form.Soil.Title, optionNames(a.Form.Soil.Options)},
	} {
		fmt.Fprintf(w, "\n%s (%d):\n", sel.title, len(sel.options))
		if len(sel.options) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(sel.options, ", "))
		}
	}
	fmt.Fprintf(w, "\nLabels: %s\n", strings.Join(a.Encoder.Classes(), ", "))
}

func optionNames(opts []features.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Name
	}
	return out
}
