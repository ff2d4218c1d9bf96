// Package pipeline drives the enrichment pass: read GeoJSONL, compute each
// footprint's area, assign its municipality, write GeoJSONL.
//
// Area computation and assignment are pure per-record functions over the
// read-only municipality index, so chunks fan out to workers; results are
// written back by index, which keeps output order equal to input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pdetsolar/footprints/internal/assign"
	"github.com/pdetsolar/footprints/internal/geo"
)

// defaultChunk is the number of records processed per worker fan-out.
const defaultChunk = 512

// Status classifies the outcome of one record.
type Status int

const (
	// StatusEnriched means the record gained an area and a municipality.
	StatusEnriched Status = iota
	// StatusUnassigned means the record gained an area but no boundary
	// contains its representative point. A normal outcome, still written.
	StatusUnassigned
	// StatusSkipped means the record was dropped; Reason says why.
	StatusSkipped
)

// Result is the per-record outcome threaded through a run.
type Result struct {
	Identity *assign.Identity
	feature  *geo.Feature
	Reason   string
	AreaM2   float64
	Line     int
	Status   Status
}

// Stats aggregates results into the end-of-run summary.
type Stats struct {
	Records     int
	Written     int
	Assigned    int
	Unassigned  int
	SkippedJSON int
	SkippedGeom int
	TotalAreaM2 float64
}

func (s *Stats) add(r *Result) {
	s.Records++
	switch r.Status {
	case StatusEnriched:
		s.Written++
		s.Assigned++
		s.TotalAreaM2 += r.AreaM2
	case StatusUnassigned:
		s.Written++
		s.Unassigned++
		s.TotalAreaM2 += r.AreaM2
	case StatusSkipped:
		s.SkippedGeom++
	}
}

func (s *Stats) skipLine() {
	s.Records++
	s.SkippedJSON++
}

// Log writes the end-of-run summary.
func (s *Stats) Log() {
	log.Info().
		Int("records", s.Records).
		Int("written", s.Written).
		Int("assigned", s.Assigned).
		Int("unassigned", s.Unassigned).
		Int("skipped_json", s.SkippedJSON).
		Int("skipped_geometry", s.SkippedGeom).
		Float64("total_area_m2", geo.Round(s.TotalAreaM2, 2)).
		Msg("Enrichment finished")
}

// Pipeline owns one enrichment run over a municipality index.
type Pipeline struct {
	index   *assign.Index
	workers int
	chunk   int
}

// New builds a pipeline. workers <= 1 runs sequentially.
func New(index *assign.Index, workers, chunk int) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	if chunk <= 0 {
		chunk = defaultChunk
	}

	return &Pipeline{index: index, workers: workers, chunk: chunk}
}

type item struct {
	feature *geo.Feature
	line    int
}

// Run streams features from r to w and returns the run statistics.
// Malformed lines and invalid geometries are counted and skipped, never
// fatal; only an unreadable input or unwritable output aborts.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, w io.Writer) (*Stats, error) {
	reader := geo.NewReader(r)
	writer := geo.NewWriter(w)

	stats := &Stats{}
	buf := make([]item, 0, p.chunk)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		f, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			var lineErr *geo.LineError
			if errors.As(err, &lineErr) {
				stats.skipLine()
				log.Debug().Int("line", lineErr.Line).Err(lineErr.Err).Msg("Skipped unparseable line")
				continue
			}

			return stats, fmt.Errorf("reading input: %w", err)
		}

		buf = append(buf, item{feature: f, line: reader.Line()})
		if len(buf) >= p.chunk {
			if err := p.flush(buf, stats, writer); err != nil {
				return stats, err
			}
			buf = buf[:0]
		}
	}

	if err := p.flush(buf, stats, writer); err != nil {
		return stats, err
	}
	if err := writer.Flush(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}

	return stats, nil
}

// flush fans one chunk out to the workers and writes results in input order.
func (p *Pipeline) flush(buf []item, stats *Stats, writer *geo.Writer) error {
	if len(buf) == 0 {
		return nil
	}

	results := make([]*Result, len(buf))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)
	for i := range buf {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = p.process(buf[i].feature, buf[i].line)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		stats.add(res)

		if res.Status == StatusSkipped {
			log.Debug().Int("line", res.Line).Str("reason", res.Reason).Msg("Skipped record")
			continue
		}
		if err := writer.Write(res.feature); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	return nil
}

// process computes one record's area and assignment.
func (p *Pipeline) process(f *geo.Feature, line int) *Result {
	res := &Result{Line: line, feature: f}

	g, err := f.Geom()
	if err == nil {
		res.AreaM2, err = geo.AreaM2(g)
	}
	if err != nil {
		res.Status = StatusSkipped

		var invalid *geo.InvalidGeometryError
		if errors.As(err, &invalid) {
			res.Reason = invalid.Reason
		} else {
			res.Reason = err.Error()
		}

		return res
	}

	if f.Properties == nil {
		f.Properties = make(map[string]interface{}, 4)
	}
	f.Properties["area_m2"] = res.AreaM2

	if id := p.index.Assign(g); id != nil {
		res.Status = StatusEnriched
		res.Identity = id
		f.Properties["municipality_code"] = id.Code
		f.Properties["municipality_name"] = id.Name
		f.Properties["department"] = id.Department
	} else {
		res.Status = StatusUnassigned
	}

	return res
}
