package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/durjog/durjog-map/internal/config"
	"github.com/durjog/durjog-map/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var input, profilesFile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a report fixture for schema and clustering consistency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := loadJSON[domain.EmergencyReport](input)
			if err != nil {
				return err
			}
			profiles, err := config.LoadViewProfiles(profilesFile)
			if err != nil {
				return err
			}

			phases := validateFixture(reports, profiles)
			if !report(cmd.OutOrStdout(), phases) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "path to a report fixture")
	cmd.Flags().StringVar(&profilesFile, "profiles", "", "view profiles YAML, defaults to the built-in views")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func validateFixture(reports []domain.EmergencyReport, profiles []domain.ViewProfile) []*phase {
	return []*phase{
		validateSchema(reports),
		validateUniqueIDs(reports),
		validateAggregation(reports, profiles),
	}
}

func validateSchema(reports []domain.EmergencyReport) *phase {
	p := &phase{name: "schema"}
	for i, r := range reports {
		if err := domain.ValidateReport(r); err != nil {
			p.errorf("report %d (%s): %v", i, r.ID, err)
		}
		if r.Urgency != "" && !r.Urgency.Valid() {
			p.errorf("report %d (%s): unknown urgency %q", i, r.ID, r.Urgency)
		}
		if !r.Status.Valid() {
			p.errorf("report %d (%s): unknown status %q", i, r.ID, r.Status)
		}
		if r.Timestamp.IsZero() {
			p.errorf("report %d (%s): missing timestamp", i, r.ID)
		}
	}
	return p
}

func validateUniqueIDs(reports []domain.EmergencyReport) *phase {
	p := &phase{name: "unique ids"}
	seen := make(map[string]int, len(reports))
	for i, r := range reports {
		if r.ID == "" {
			p.errorf("report %d: missing id", i)
			continue
		}
		if j, ok := seen[r.ID]; ok {
			p.errorf("report %d: id %s already used by report %d", i, r.ID, j)
			continue
		}
		seen[r.ID] = i
	}
	return p
}

// validateAggregation checks that every view keeps each valid active report
// in exactly one cluster and styles every cluster.
func validateAggregation(reports []domain.EmergencyReport, profiles []domain.ViewProfile) *phase {
	p := &phase{name: "aggregation"}
	active := domain.ActiveOnly(reports)
	valid := 0
	for _, r := range active {
		if domain.ValidateReport(r) == nil {
			valid++
		}
	}

	for _, prof := range profiles {
		clusters, err := prof.Aggregate(active)
		if err != nil {
			p.errorf("view %s: %v", prof.Name, err)
			continue
		}

		total := 0
		keys := make(map[string]bool, len(clusters))
		for _, c := range clusters {
			total += c.Count
			if keys[c.Key] {
				p.errorf("view %s: duplicate cluster key %s", prof.Name, c.Key)
			}
			keys[c.Key] = true
			if c.Count != len(c.Members) {
				p.errorf("view %s: cluster %s count %d but %d members", prof.Name, c.Key, c.Count, len(c.Members))
			}
		}
		if total != valid {
			p.errorf("view %s: clusters hold %d reports, expected %d", prof.Name, total, valid)
		}
		if markers := domain.BuildMarkers(clusters, prof); len(markers) != len(clusters) {
			p.errorf("view %s: %d markers for %d clusters", prof.Name, len(markers), len(clusters))
		}
	}
	return p
}

func report(w io.Writer, phases []*phase) bool {
	ok := true
	for _, p := range phases {
		if p.passed() {
			fmt.Fprintf(w, "PASS %s\n", p.name)
			continue
		}
		ok = false
		fmt.Fprintf(w, "FAIL %s (%d errors)\n", p.name, len(p.errors))
		for _, e := range p.errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return ok
}
