package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/config"
	"github.com/SmitUplenchwar2687/Spigot/internal/recorder"
	"github.com/SmitUplenchwar2687/Spigot/pkg/generate"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample traffic files and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate traffic" to create a sample traffic file.
Use "generate config" to create an example config file.`,
	}

	cmd.AddCommand(newGenerateTrafficCmd(), newGenerateConfigCmd())
	return cmd
}

func newGenerateTrafficCmd() *cobra.Command {
	var (
		output   string
		count    int
		keys     int
		duration time.Duration
		pattern  string
		seed     int64
		ndjson   bool
	)

	cmd := &cobra.Command{
		Use:   "traffic",
		Short: "Generate a sample traffic file",
		Long: `Creates a realistic traffic file with configurable parameters.
Each record carries a model and prompt_id in its metadata so repeated
requests can be served from the response cache during replay.

Patterns:
  steady    Evenly distributed requests
  burst     Concentrated bursts with quiet periods
  ramp      Gradually increasing request rate`,
		Example: `  spigot generate traffic --output traffic.json --count 100 --keys 5
  spigot generate traffic --output burst.json --count 200 --pattern burst --duration 10m
  spigot generate traffic --output traffic.ndjson --ndjson --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := generate.DefaultOptions()
			opts.Count = count
			opts.Keys = keys
			opts.Duration = duration
			opts.Pattern = pattern
			opts.Seed = seed
			records, err := generate.GenerateTraffic(opts)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating file: %w", err)
			}
			defer f.Close()

			rec := recorder.New(nil)
			if ndjson {
				rec = recorder.New(f)
			}
			for _, r := range records {
				if err := rec.Record(r); err != nil {
					return fmt.Errorf("writing records: %w", err)
				}
			}
			if !ndjson {
				if err := rec.ExportJSON(f); err != nil {
					return fmt.Errorf("writing records: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d traffic records to %s\n", len(records), output)
			fmt.Fprintf(out, "  Keys:     %d\n", keys)
			fmt.Fprintf(out, "  Duration: %s\n", duration)
			fmt.Fprintf(out, "  Pattern:  %s\n", pattern)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "traffic.json", "output file path")
	cmd.Flags().IntVar(&count, "count", 100, "number of records to generate")
	cmd.Flags().IntVar(&keys, "keys", 3, "number of distinct user keys")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Minute, "time span for generated traffic")
	cmd.Flags().StringVar(&pattern, "pattern", "steady", "traffic pattern (steady, burst, ramp)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible output (default: time-based)")
	cmd.Flags().BoolVar(&ndjson, "ndjson", false, "write newline-delimited JSON instead of an array")

	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate an example config file (YAML, or JSON for .json paths)",
		Example: `  spigot generate config --output spigot.yaml
  spigot generate config --output spigot.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config at %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "spigot.yaml", "output file path")
	return cmd
}
