// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package eval

import (
	"fmt"
	"io"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/recbench/internal/store"
)

// ScenarioResult holds one algorithm's metrics for one scenario, averaged
// across folds.
type ScenarioResult struct {
	MAE        float64 `json:"mae"`
	MAEDefined bool    `json:"mae_defined"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
}

// Report is the cross-fold outcome of a run.
type Report struct {
	Folds int `json:"folds"`

	// Results is keyed by algorithm tag, then by scenario key.
	Results map[string]map[string]ScenarioResult `json:"results"`
}

// scenarioKey names one evaluation scenario. Neighbor algorithms depend on
// a single similarity kind; walks traverse both sides.
func scenarioKey(alg store.Algorithm, userSim, itemSim store.SimilarityKind, n int) string {
	switch alg {
	case store.AlgUserBased:
		return fmt.Sprintf("similarity> %s n> %d", userSim, n)
	case store.AlgItemBased:
		return fmt.Sprintf("similarity> %s n> %d", itemSim, n)
	default:
		return fmt.Sprintf("user> %s item> %s n> %d", userSim, itemSim, n)
	}
}

// accumulator sums per-fold results for one (algorithm, scenario) pair.
type accumulator struct {
	mae        float64
	maeSamples int
	precision  float64
	recall     float64
	f1         float64
}

type resultKey struct {
	alg      store.Algorithm
	scenario string
}

// resultSet collects per-fold metrics and averages them into a Report.
type resultSet struct {
	folds int
	sums  map[resultKey]*accumulator
}

func newResultSet() *resultSet {
	return &resultSet{sums: make(map[resultKey]*accumulator)}
}

func (rs *resultSet) add(alg store.Algorithm, scenario string, mae float64, maeDefined bool, precision, recall, f1 float64) {
	key := resultKey{alg: alg, scenario: scenario}
	acc := rs.sums[key]
	if acc == nil {
		acc = &accumulator{}
		rs.sums[key] = acc
	}
	if maeDefined {
		acc.mae += mae
		acc.maeSamples++
	}
	acc.precision += precision
	acc.recall += recall
	acc.f1 += f1
}

// report divides the sums by fold count.
func (rs *resultSet) report() *Report {
	out := &Report{Folds: rs.folds, Results: make(map[string]map[string]ScenarioResult)}
	for key, acc := range rs.sums {
		alg := string(key.alg)
		if out.Results[alg] == nil {
			out.Results[alg] = make(map[string]ScenarioResult)
		}
		res := ScenarioResult{
			Precision: acc.precision / float64(rs.folds),
			Recall:    acc.recall / float64(rs.folds),
			F1:        acc.f1 / float64(rs.folds),
		}
		if acc.maeSamples > 0 {
			res.MAE = acc.mae / float64(acc.maeSamples)
			res.MAEDefined = true
		}
		out.Results[alg][key.scenario] = res
	}
	return out
}

// WriteJSON serializes the report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("eval: encode report: %w", err)
	}
	return nil
}

// WriteText renders the report as an aligned plain-text table.
func (r *Report) WriteText(w io.Writer) error {
	algs := make([]string, 0, len(r.Results))
	for alg := range r.Results {
		algs = append(algs, alg)
	}
	sort.Strings(algs)

	var b strings.Builder
	for _, alg := range algs {
		fmt.Fprintf(&b, "\n%s\n", alg)
		scenarios := make([]string, 0, len(r.Results[alg]))
		for scenario := range r.Results[alg] {
			scenarios = append(scenarios, scenario)
		}
		sort.Strings(scenarios)
		for _, scenario := range scenarios {
			res := r.Results[alg][scenario]
			fmt.Fprintf(&b, "%s\nMAE\tP\tR\tF1\n", scenario)
			if res.MAEDefined {
				fmt.Fprintf(&b, "%.4f\t", res.MAE)
			} else {
				fmt.Fprint(&b, "-\t")
			}
			fmt.Fprintf(&b, "%.2f%%\t%.2f%%\t%.2f%%\n", res.Precision*100, res.Recall*100, res.F1*100)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("eval: write report: %w", err)
	}
	return nil
}
