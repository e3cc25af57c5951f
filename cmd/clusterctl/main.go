// Command clusterctl works with report fixtures offline: it generates mock
// report sets, validates them and runs the cluster aggregation over a file.
//
// Usage:
//
//	go run ./cmd/clusterctl genmock --out data/mock/dhaka_reports.json
//	go run ./cmd/clusterctl validate --input data/mock/dhaka_reports.json
//	go run ./cmd/clusterctl aggregate --input data/mock/dhaka_reports.json --view heatmap
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterctl",
		Short:         "Durjog report fixture and clustering toolkit",
		Long:          "clusterctl generates, validates and aggregates emergency report fixtures without a running service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenmockCmd(), newValidateCmd(), newAggregateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
