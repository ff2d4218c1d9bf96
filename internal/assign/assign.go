// Package assign locates the municipality containing a building footprint.
//
// The candidate set is immutable after construction and safe for concurrent
// readers; ties on shared boundaries resolve to the first candidate in load
// order, and that order is kept stable across runs.
package assign

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"

	"github.com/pdetsolar/footprints/internal/geo"
)

// Identity is the attribute set copied onto an assigned building.
type Identity struct {
	Code       string
	Name       string
	Department string
}

// Municipality is one candidate boundary.
type Municipality struct {
	Identity
	Subregion string
	Seq       int // load order, defines the tie-break

	boundary geom.T
	bounds   rtreego.Rect
}

// NewMunicipality validates the boundary and precomputes its bounding box.
func NewMunicipality(seq int, id Identity, subregion string, boundary geom.T) (*Municipality, error) {
	if err := geo.Validate(boundary); err != nil {
		return nil, err
	}

	b := boundary.Bounds()
	w := b.Max(0) - b.Min(0)
	h := b.Max(1) - b.Min(1)
	if w <= 0 {
		w = 1e-9
	}
	if h <= 0 {
		h = 1e-9
	}

	rect, err := rtreego.NewRect(rtreego.Point{b.Min(0), b.Min(1)}, []float64{w, h})
	if err != nil {
		return nil, err
	}

	return &Municipality{
		Identity:  id,
		Subregion: subregion,
		Seq:       seq,
		boundary:  boundary,
		bounds:    rect,
	}, nil
}

// Geom exposes the parsed boundary geometry.
func (m *Municipality) Geom() geom.T { return m.boundary }

// Bounds implements rtreego.Spatial.
func (m *Municipality) Bounds() rtreego.Rect { return m.bounds }

// Index is a bounding-box R-tree over the candidate set. It prunes the
// containment scan to candidates whose box covers the query point; the scan
// itself still runs in load order so the tree cannot reorder ties.
type Index struct {
	tree       *rtreego.Rtree
	candidates []*Municipality
}

// NewIndex builds the index over the candidates.
func NewIndex(candidates []*Municipality) *Index {
	ordered := make([]*Municipality, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	tree := rtreego.NewTree(2, 25, 50)
	for _, m := range ordered {
		tree.Insert(m)
	}

	return &Index{tree: tree, candidates: ordered}
}

// Size returns the number of candidates.
func (ix *Index) Size() int { return len(ix.candidates) }

// Candidates returns the candidate set in load order.
func (ix *Index) Candidates() []*Municipality { return ix.candidates }

// Locate returns the identity of the first candidate (in load order) whose
// boundary contains the point, or nil when the point is outside every
// boundary. Nil is the normal "unassigned" outcome, not an error.
func (ix *Index) Locate(lon, lat float64) *Identity {
	pt := rtreego.Point{lon, lat}
	hits := ix.tree.SearchIntersect(pt.ToRect(1e-9))
	if len(hits) == 0 {
		return nil
	}

	matches := make([]*Municipality, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, h.(*Municipality))
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Seq < matches[j].Seq })

	for _, m := range matches {
		if geo.Contains(m.boundary, lon, lat) {
			id := m.Identity
			return &id
		}
	}

	return nil
}

// Assign locates the municipality containing the building's representative
// point.
func (ix *Index) Assign(building geom.T) *Identity {
	lon, lat := geo.RepresentativePoint(building)
	return ix.Locate(lon, lat)
}
