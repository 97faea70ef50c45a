package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"covertype/internal/features"
	"covertype/internal/ml"

	"github.com/spf13/cobra"
)

type inputFlags struct {
	set        []string
	wilderness string
	soil       string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "numeric feature value as Name=value (repeatable)")
	cmd.Flags().StringVar(&f.wilderness, "wilderness", "", "wilderness area column or label")
	cmd.Flags().StringVar(&f.soil, "soil", "", "soil type column or label")
}

// raw splits the --set pairs into a name to text map.
func (f *inputFlags) raw() (map[string]string, error) {
	raw := make(map[string]string, len(f.set))
	for _, kv := range f.set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected Name=value", kv)
		}
		raw[strings.TrimSpace(name)] = value
	}
	return raw, nil
}

func newPredictCmd() *cobra.Command {
	var (
		flags  inputFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one prediction offline against the configured artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadSettings()
			if err != nil {
				return err
			}
			a, err := loadAssets(c)
			if err != nil {
				return fmt.Errorf("failed to load artifacts: %w", err)
			}
			pipeline, err := a.NewPipeline(c.TopK, nil)
			if err != nil {
				return err
			}

			raw, err := flags.raw()
			if err != nil {
				return err
			}
			if err := checkNumericNames(a.Form.Numeric, raw); err != nil {
				return err
			}

			var (
				out ml.Outcome
				vec features.Vector
			)
			in, err := a.Form.ParseRaw(raw, flags.wilderness, flags.soil)
			if err == nil {
				vec, err = a.Form.Assemble(in)
			}
			if err != nil {
				out = pipeline.Reject(err)
			} else {
				out = pipeline.Run(cmd.Context(), vec.Values())
			}

			if asJSON {
				if err := writeOutcomeJSON(cmd.OutOrStdout(), out, vec); err != nil {
					return err
				}
			}
			if !out.OK() {
				return fmt.Errorf("Prediction error: %w", out.Err.Err)
			}
			if !asJSON {
				printPrediction(cmd.OutOrStdout(), out.Prediction.Label, out.Prediction.Top)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	return cmd
}

func checkNumericNames(fields []features.NumericField, raw map[string]string) error {
	known := make(map[string]bool, len(fields))
	for _, nf := range fields {
		known[nf.Name] = true
	}
	var unknown []string
	for name := range raw {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("not numeric features: %v", unknown)
}

func printPrediction(w io.Writer, label string, top []ml.ClassProbability) {
	fmt.Fprintf(w, "Predicted Forest Cover Type: %s\n", label)
	if len(top) == 0 {
		return
	}
	fmt.Fprintln(w, "Top Class Probabilities:")
	for _, p := range top {
		fmt.Fprintf(w, "- %s: %.2f%%\n", p.Label, p.Percent())
	}
}

// writeOutcomeJSON prints the outcome and, when assembly succeeded, the
// vector that was fed to the model.
func writeOutcomeJSON(w io.Writer, out ml.Outcome, vec features.Vector) error {
	body := map[string]any{"id": out.ID}
	if vec.Len() > 0 {
		body["vector"] = vec.Map()
	}
	if out.OK() {
		body["label"] = out.Prediction.Label
		if out.Prediction.Top != nil {
			body["top"] = out.Prediction.Top
		}
	} else {
		body["error"] = out.Err.Err.Error()
		body["stage"] = out.Err.Stage
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}
