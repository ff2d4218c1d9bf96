package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pdetsolar/footprints/internal/assign"
)

// Geometry is the GeoJSON geometry sub-document stored with each record.
// Coordinates stay untyped; the 2dsphere index and the validator constrain
// them server side.
type Geometry struct {
	Coordinates interface{} `bson:"coordinates" json:"coordinates"`
	Type        string      `bson:"type" json:"type"`
}

// GeometryFromJSON decodes a raw GeoJSON geometry member.
func GeometryFromJSON(raw json.RawMessage) (Geometry, error) {
	var g Geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return Geometry{}, fmt.Errorf("decoding geometry: %w", err)
	}
	if g.Type == "" || g.Coordinates == nil {
		return Geometry{}, errors.New("decoding geometry: missing type or coordinates")
	}

	return g, nil
}

// JSON re-encodes the geometry as GeoJSON.
func (g Geometry) JSON() (json.RawMessage, error) {
	return json.Marshal(g)
}

// MunicipalityDoc is one boundary record. Field names follow the DANE
// vocabulary the collection validator requires.
type MunicipalityDoc struct {
	CodigoDane         string               `bson:"codigo_dane"`
	Nombre             string               `bson:"nombre"`
	Departamento       string               `bson:"departamento"`
	CodigoDepartamento string               `bson:"codigo_departamento,omitempty"`
	SubregionPDET      string               `bson:"subregion_pdet,omitempty"`
	Geometry           Geometry             `bson:"geometry"`
	Metadata           MunicipalityMetadata `bson:"metadata"`
	Seq                int                  `bson:"seq"`
	IsPDET             bool                 `bson:"is_pdet"`
}

// MunicipalityMetadata records where a boundary came from.
type MunicipalityMetadata struct {
	LoadDate time.Time `bson:"load_date"`
	Source   string    `bson:"source"`
	AreaKM2  float64   `bson:"area_km2,omitempty"`
	Year     int       `bson:"year,omitempty"`
}

// ReplaceMunicipalities wipes the boundary collection and loads the given
// documents in one unordered insert. Returns the number inserted.
func (s *Store) ReplaceMunicipalities(ctx context.Context, coll string, docs []MunicipalityDoc) (int, error) {
	c := s.collection(coll)

	if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
		return 0, fmt.Errorf("clearing %s: %w", coll, err)
	}

	if len(docs) == 0 {
		return 0, nil
	}

	rows := make([]interface{}, len(docs))
	for i := range docs {
		rows[i] = docs[i]
	}
	res, err := c.InsertMany(ctx, rows, options.InsertMany().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", coll, err)
	}

	log.Info().Int("count", len(res.InsertedIDs)).Str("collection", coll).Msg("Municipalities replaced")

	return len(res.InsertedIDs), nil
}

// Municipalities reads every boundary record ordered by its position in the
// source file. That order decides ties when boundaries overlap.
func (s *Store) Municipalities(ctx context.Context, coll string) ([]MunicipalityDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := s.collection(coll).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", coll, err)
	}

	var docs []MunicipalityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading %s: %w", coll, err)
	}

	return docs, nil
}

// Candidates turns boundary records into assignment candidates.
func Candidates(docs []MunicipalityDoc) ([]*assign.Municipality, error) {
	out := make([]*assign.Municipality, 0, len(docs))
	for _, doc := range docs {
		raw, err := doc.Geometry.JSON()
		if err != nil {
			return nil, fmt.Errorf("municipality %s: %w", doc.CodigoDane, err)
		}

		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("municipality %s: %w", doc.CodigoDane, err)
		}

		m, err := assign.NewMunicipality(doc.Seq, assign.Identity{
			Code:       doc.CodigoDane,
			Name:       doc.Nombre,
			Department: doc.Departamento,
		}, doc.SubregionPDET, g)
		if err != nil {
			return nil, fmt.Errorf("municipality %s: %w", doc.CodigoDane, err)
		}

		out = append(out, m)
	}

	return out, nil
}
