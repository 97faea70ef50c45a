package main

import (
	"encoding/json"
	"time"

	"covertype/internal/client"
	"covertype/internal/features"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var (
		flags   inputFlags
		baseURL string
		timeout time.Duration
		history int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Predict through a running server's JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging("warn", "console")
			c := client.New(baseURL, timeout)
			out := cmd.OutOrStdout()

			if history > 0 {
				records, err := c.History(cmd.Context(), history)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			schema, err := c.Schema(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := flags.raw()
			if err != nil {
				return err
			}
			if err := checkNumericNames(schema.Numeric, raw); err != nil {
				return err
			}
			in := features.Input{
				Numeric:    make(map[string]float64, len(raw)),
				Wilderness: flags.wilderness,
				Soil:       flags.soil,
			}
			for _, nf := range schema.Numeric {
				if text, ok := raw[nf.Name]; ok {
					v, err := nf.Parse(text)
					if err != nil {
						return err
					}
					in.Numeric[nf.Name] = v
				}
			}

			resp, err := c.Predict(cmd.Context(), in)
			if err != nil {
				return err
			}
			printPrediction(out, resp.Label, resp.Top)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8501", "predictor base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().IntVar(&history, "history", 0, "list the N most recent stored predictions instead of predicting")
	return cmd
}
