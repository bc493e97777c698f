// Package report renders run summaries from the run-history store.
//
// Three renderings are supported: an HTML page with step timing and
// check outcome charts, a plain text table, and JSON for downstream
// tooling.
package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/penaguerrero/nptt/internal/store"
)

// Data is everything needed to render one run's report.
type Data struct {
	Run     store.Run          `json:"run"`
	Timings []store.StepTiming `json:"step_timings"`
	Results []store.TestResult `json:"test_results"`
}

// FamilyTally counts check outcomes for one test family.
type FamilyTally struct {
	Family string `json:"family"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

// familyTallies aggregates check outcomes by family, in first-seen order.
func familyTallies(results []store.TestResult) []FamilyTally {
	index := map[string]int{}
	var tallies []FamilyTally
	for _, r := range results {
		i, ok := index[r.Family]
		if !ok {
			i = len(tallies)
			index[r.Family] = i
			tallies = append(tallies, FamilyTally{Family: r.Family})
		}
		if r.Pass {
			tallies[i].Passed++
		} else {
			tallies[i].Failed++
		}
	}
	return tallies
}

var titleCaser = cases.Title(language.English)

// displayName turns a step name like "assign_wcs" into "Assign Wcs"
// for chart labels.
func displayName(step string) string {
	return titleCaser.String(strings.ReplaceAll(step, "_", " "))
}
