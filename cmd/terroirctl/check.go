package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/terroir-match-service/internal/adapter/catalogfile"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/spf13/cobra"
)

// errCheckFailed is returned when any check phase reports errors.
var errCheckFailed = errors.New("catalog check failed")

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [catalog]",
		Short: "Validate a catalog document",
		Long: "Reads a JSON or YAML catalog (the embedded catalog when no path is given) " +
			"and reports each integrity check as PASS or FAIL.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				regions []domain.RegionProfile
				err     error
				origin  = "embedded catalog"
			)
			if len(args) == 1 {
				origin = args[0]
				regions, err = catalogfile.ReadRegions(args[0])
			} else {
				regions, err = catalogfile.DefaultRegions()
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", origin, err)
			}
			return runChecks(cmd.OutOrStdout(), origin, regions)
		},
	}
}

func runChecks(w io.Writer, origin string, regions []domain.RegionProfile) error {
	phases := []*phase{
		checkIdentity(regions),
		checkNumericFields(regions),
		checkSoilTotals(regions),
		checkCatalogBuilds(regions),
	}

	fmt.Fprintf(w, "=== Catalog check: %s ===\n\n", origin)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-36s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nRegions: %d\n", len(regions))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if !allPassed {
		fmt.Fprintln(w, "\nCheck FAILED.")
		return errCheckFailed
	}
	fmt.Fprintln(w, "\nAll checks passed.")
	return nil
}

func checkIdentity(regions []domain.RegionProfile) *phase {
	p := &phase{name: "Region identity"}
	if len(regions) == 0 {
		p.errorf("catalog has no regions")
	}
	seen := make(map[string]int, len(regions))
	for i, r := range regions {
		if strings.TrimSpace(r.ID) == "" {
			p.errorf("region %d: empty region name", i)
			continue
		}
		if strings.TrimSpace(r.Country) == "" {
			p.errorf("%s: empty country", r.ID)
		}
		if j, dup := seen[r.ID]; dup {
			p.errorf("%s: duplicate of region %d", r.ID, j)
		}
		seen[r.ID] = i
	}
	return p
}

func checkNumericFields(regions []domain.RegionProfile) *phase {
	p := &phase{name: "Numeric fields present and finite"}
	for _, r := range regions {
		if err := r.Terroir().Validate(); err != nil {
			p.errorf("%s: %v", r.ID, err)
		}
	}
	return p
}

func checkSoilTotals(regions []domain.RegionProfile) *phase {
	p := &phase{name: fmt.Sprintf("Soil sums to 100 ± %g", domain.CatalogSoilTolerance)}
	for _, r := range regions {
		if err := r.Soil.Validate(domain.CatalogSoilTolerance); err != nil {
			p.errorf("%s: %v", r.ID, err)
		}
	}
	return p
}

func checkCatalogBuilds(regions []domain.RegionProfile) *phase {
	p := &phase{name: "Catalog loads"}
	if _, err := domain.NewCatalog(regions); err != nil {
		p.errorf("%v", err)
	}
	return p
}
