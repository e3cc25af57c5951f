package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durjog/durjog-map/internal/config"
	"github.com/durjog/durjog-map/internal/domain"
)

type aggregateOutput struct {
	View     string           `json:"view"`
	Reports  int              `json:"reports"`
	Clusters []domain.Cluster `json:"clusters,omitempty"`
	Markers  []domain.Marker  `json:"markers"`
}

func newAggregateCmd() *cobra.Command {
	var (
		input, view, profilesFile string
		withClusters              bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Cluster the active reports of a fixture for one view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := loadJSON[domain.EmergencyReport](input)
			if err != nil {
				return err
			}
			profiles, err := config.LoadViewProfiles(profilesFile)
			if err != nil {
				return err
			}
			prof, ok := domain.FindProfile(profiles, view)
			if !ok {
				return fmt.Errorf("unknown view %q", view)
			}

			active := domain.ActiveOnly(reports)
			clusters, err := prof.Aggregate(active)
			if err != nil {
				return err
			}

			out := aggregateOutput{
				View:    prof.Name,
				Reports: len(active),
				Markers: domain.BuildMarkers(clusters, prof),
			}
			if withClusters {
				out.Clusters = clusters
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "path to a report fixture")
	cmd.Flags().StringVar(&view, "view", domain.MarkersView, "view profile name")
	cmd.Flags().StringVar(&profilesFile, "profiles", "", "view profiles YAML, defaults to the built-in views")
	cmd.Flags().BoolVar(&withClusters, "clusters", false, "include raw clusters with their members")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
