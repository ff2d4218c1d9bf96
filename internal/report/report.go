// Package report exports per-municipality aggregates from the store:
// CSV tables, bar charts and a small HTML index over the results directory.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot/vg"

	"github.com/pdetsolar/footprints/internal/config"
	"github.com/pdetsolar/footprints/internal/store"
)

// SourceReport carries one source's aggregates.
type SourceReport struct {
	Source     string // config name, e.g. "microsoft"
	Label      string // document label, e.g. "Microsoft"
	Collection string
	Stats      *store.Stats
	Top        []store.MunicipalityAggregate
}

// CSVName returns the source's table file name.
func (r SourceReport) CSVName() string { return "top_municipalities_" + r.Source + ".csv" }

// ChartName returns the source's chart file name.
func (r SourceReport) ChartName() string { return "top_municipalities_" + r.Source + ".png" }

// ThumbName returns the source's chart thumbnail file name.
func (r SourceReport) ThumbName() string { return "top_municipalities_" + r.Source + ".webp" }

// TotalAreaKM2 converts the source's total area for presentation.
func (r SourceReport) TotalAreaKM2() float64 {
	if r.Stats == nil {
		return 0
	}
	return r.Stats.TotalAreaM2 / 1e6
}

// ComparisonRow holds one municipality's counts and areas across sources.
type ComparisonRow struct {
	Counts map[string]int64
	Areas  map[string]float64
	Code   string
	Name   string
}

// combinedArea orders comparison rows.
func (r ComparisonRow) combinedArea() float64 {
	var total float64
	for _, a := range r.Areas {
		total += a
	}
	return total
}

// Data is everything the exports render.
type Data struct {
	Database   string
	Generated  time.Time
	Sources    []SourceReport
	Comparison []ComparisonRow
	TopN       int

	// Chart canvas size in inches; zero falls back to the defaults.
	ChartWidthIn  float64
	ChartHeightIn float64
}

// TopComparison returns the comparison rows the HTML index shows.
func (d *Data) TopComparison() []ComparisonRow {
	if len(d.Comparison) > comparisonRows {
		return d.Comparison[:comparisonRows]
	}
	return d.Comparison
}

// Builder collects report data from the store and renders the exports.
type Builder struct {
	store *store.Store
	cfg   *config.Config
}

// NewBuilder wires a builder to an open store.
func NewBuilder(s *store.Store, cfg *config.Config) *Builder {
	return &Builder{store: s, cfg: cfg}
}

// Collect runs every aggregation the exports need.
func (b *Builder) Collect(ctx context.Context) (*Data, error) {
	data := &Data{
		Database:      b.store.Database(),
		Generated:     time.Now().UTC(),
		TopN:          b.cfg.Report.TopN,
		ChartWidthIn:  b.cfg.Report.ChartWidthIn,
		ChartHeightIn: b.cfg.Report.ChartHeightIn,
	}

	byCode := make(map[string]*ComparisonRow)

	for _, name := range b.cfg.SourceNames() {
		coll, _ := b.cfg.BuildingCollection(name)

		stats, err := b.store.CollectionStats(ctx, coll)
		if err != nil {
			return nil, err
		}

		top, err := b.store.TopMunicipalities(ctx, coll, b.cfg.Mongo.Municipalities, b.cfg.Report.TopN)
		if err != nil {
			return nil, err
		}

		all, err := b.store.TopMunicipalities(ctx, coll, b.cfg.Mongo.Municipalities, 0)
		if err != nil {
			return nil, err
		}
		for _, agg := range all {
			row, ok := byCode[agg.Code]
			if !ok {
				row = &ComparisonRow{
					Code:   agg.Code,
					Name:   agg.Name,
					Counts: make(map[string]int64),
					Areas:  make(map[string]float64),
				}
				byCode[agg.Code] = row
			}
			if row.Name == "" {
				row.Name = agg.Name
			}
			row.Counts[name] = agg.Buildings
			row.Areas[name] = agg.TotalAreaM2
		}

		data.Sources = append(data.Sources, SourceReport{
			Source:     name,
			Label:      store.SourceLabel(name),
			Collection: coll,
			Stats:      stats,
			Top:        top,
		})

		log.Info().
			Str("source", name).
			Str("collection", coll).
			Int64("buildings", stats.Total).
			Float64("total_area_km2", stats.TotalAreaM2/1e6).
			Msg("Source aggregated")
	}

	data.Comparison = make([]ComparisonRow, 0, len(byCode))
	for _, row := range byCode {
		data.Comparison = append(data.Comparison, *row)
	}
	sort.Slice(data.Comparison, func(i, j int) bool {
		ai, aj := data.Comparison[i].combinedArea(), data.Comparison[j].combinedArea()
		if ai != aj {
			return ai > aj
		}
		return data.Comparison[i].Code < data.Comparison[j].Code
	})

	return data, nil
}

// Write renders every export into dir.
func Write(data *Data, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	chartW := vg.Length(data.ChartWidthIn) * vg.Inch
	chartH := vg.Length(data.ChartHeightIn) * vg.Inch

	sources := make([]string, len(data.Sources))
	for i, src := range data.Sources {
		sources[i] = src.Source

		if err := writeTopCSV(filepath.Join(dir, src.CSVName()), src.Top); err != nil {
			return err
		}
		log.Info().Str("file", src.CSVName()).Msg("Table written")

		if len(src.Top) == 0 {
			log.Warn().Str("source", src.Source).Msg("No aggregates, skipping chart")
			continue
		}
		p, err := renderTopChart(src)
		if err != nil {
			return fmt.Errorf("chart for %s: %w", src.Source, err)
		}
		if err := writeChart(p, chartW, chartH, filepath.Join(dir, src.ChartName()), filepath.Join(dir, src.ThumbName())); err != nil {
			return err
		}
		log.Info().Str("file", src.ChartName()).Msg("Chart written")
	}

	if err := writeSummaryCSV(filepath.Join(dir, "summary.csv"), data.Sources); err != nil {
		return err
	}
	if err := writeComparisonCSV(filepath.Join(dir, "comparison.csv"), sources, data.Comparison); err != nil {
		return err
	}
	if len(data.Comparison) > 0 && len(sources) > 1 {
		p, err := renderComparisonChart(sources, data.Comparison)
		if err != nil {
			return fmt.Errorf("comparison chart: %w", err)
		}
		if err := writeChart(p, chartW, chartH, filepath.Join(dir, "comparison.png"), filepath.Join(dir, "comparison.webp")); err != nil {
			return err
		}
		log.Info().Str("file", "comparison.png").Msg("Chart written")
	}

	if err := writeIndex(filepath.Join(dir, "index.html"), data); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("Report written")

	return nil
}
