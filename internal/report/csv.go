package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/pdetsolar/footprints/internal/store"
)

func writeTopCSV(path string, aggs []store.MunicipalityAggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	record := []string{
		"municipality_code", "municipality_name", "department",
		"buildings", "total_area_m2", "avg_area_m2", "total_area_km2",
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	for _, a := range aggs {
		record = []string{
			a.Code,
			a.Name,
			a.Department,
			strconv.FormatInt(a.Buildings, 10),
			strconv.FormatFloat(a.TotalAreaM2, 'f', 2, 64),
			strconv.FormatFloat(a.AvgAreaM2, 'f', 2, 64),
			strconv.FormatFloat(a.TotalAreaKM2(), 'f', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	w.Flush()
	return w.Error()
}

// writeSummaryCSV emits one row per source with its collection totals.
func writeSummaryCSV(path string, sources []SourceReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	record := []string{
		"source", "collection", "buildings", "with_municipality",
		"without_municipality", "total_area_m2", "avg_area_m2",
		"min_area_m2", "max_area_m2",
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	for _, src := range sources {
		if src.Stats == nil {
			continue
		}
		record = []string{
			src.Source,
			src.Collection,
			strconv.FormatInt(src.Stats.Total, 10),
			strconv.FormatInt(src.Stats.WithMunicipality, 10),
			strconv.FormatInt(src.Stats.WithoutMunicipality, 10),
			strconv.FormatFloat(src.Stats.TotalAreaM2, 'f', 2, 64),
			strconv.FormatFloat(src.Stats.AvgAreaM2, 'f', 2, 64),
			strconv.FormatFloat(src.Stats.MinAreaM2, 'f', 2, 64),
			strconv.FormatFloat(src.Stats.MaxAreaM2, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	w.Flush()
	return w.Error()
}

// writeComparisonCSV emits one row per municipality with per-source counts
// and areas. With exactly two sources the diff columns hold second minus
// first in the emitted source order.
func writeComparisonCSV(path string, sources []string, rows []ComparisonRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	header := []string{"municipality_code", "municipality_name"}
	for _, s := range sources {
		header = append(header, s+"_buildings", s+"_area_m2")
	}
	diff := len(sources) == 2
	if diff {
		header = append(header, "diff_buildings", "diff_area_m2")
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	for _, row := range rows {
		record := []string{row.Code, row.Name}
		for _, s := range sources {
			record = append(record,
				strconv.FormatInt(row.Counts[s], 10),
				strconv.FormatFloat(row.Areas[s], 'f', 2, 64),
			)
		}
		if diff {
			record = append(record,
				strconv.FormatInt(row.Counts[sources[1]]-row.Counts[sources[0]], 10),
				strconv.FormatFloat(row.Areas[sources[1]]-row.Areas[sources[0]], 'f', 2, 64),
			)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	w.Flush()
	return w.Error()
}
