package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pdetsolar/footprints/internal/config"
)

// CollectionSpec describes one collection: its schema validator and the
// indexes it must carry.
type CollectionSpec struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

// geometrySchema constrains the GeoJSON geometry sub-document.
func geometrySchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"type", "coordinates"},
		"properties": bson.M{
			"type": bson.M{
				"enum":        bson.A{"Polygon", "MultiPolygon"},
				"description": "GeoJSON geometry type",
			},
			"coordinates": bson.M{
				"bsonType":    "array",
				"description": "geometry coordinates",
			},
		},
	}
}

func geometryIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "geometry", Value: "2dsphere"}},
		Options: options.Index().SetName("geometry_2dsphere"),
	}
}

// MunicipalitySpec is the provisioning plan for the boundary collection.
func MunicipalitySpec(name string) CollectionSpec {
	return CollectionSpec{
		Name: name,
		Validator: bson.M{
			"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"codigo_dane", "nombre", "departamento", "geometry"},
				"properties": bson.M{
					"codigo_dane": bson.M{
						"bsonType":    "string",
						"description": "five digit DANE municipality code",
					},
					"nombre": bson.M{
						"bsonType":    "string",
						"description": "municipality name",
					},
					"departamento": bson.M{
						"bsonType":    "string",
						"description": "department name",
					},
					"codigo_departamento": bson.M{
						"bsonType":    "string",
						"description": "two digit DANE department code",
					},
					"is_pdet": bson.M{
						"bsonType":    "bool",
						"description": "whether the municipality belongs to a PDET subregion",
					},
					"seq": bson.M{
						"bsonType":    "int",
						"description": "position in the boundary file, first match wins on overlap",
					},
					"geometry": geometrySchema(),
				},
			},
		},
		Indexes: []mongo.IndexModel{
			geometryIndex(),
			{
				Keys:    bson.D{{Key: "codigo_dane", Value: 1}},
				Options: options.Index().SetName("codigo_dane_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "is_pdet", Value: 1}},
				Options: options.Index().SetName("is_pdet_index"),
			},
		},
	}
}

// BuildingSpec is the provisioning plan for one source's footprint
// collection. The source label is baked into the validator so documents
// from another source bounce off.
func BuildingSpec(name, sourceLabel string) CollectionSpec {
	return CollectionSpec{
		Name: name,
		Validator: bson.M{
			"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": bson.A{"geometry", "area_m2", "source"},
				"properties": bson.M{
					"municipality_code": bson.M{
						"bsonType":    "string",
						"description": "DANE code of the containing municipality",
					},
					"municipality_name": bson.M{
						"bsonType":    "string",
						"description": "name of the containing municipality",
					},
					"geometry": geometrySchema(),
					"area_m2": bson.M{
						"bsonType":    "double",
						"minimum":     0,
						"description": "roof area in square meters",
					},
					"source": bson.M{
						"enum":        bson.A{sourceLabel},
						"description": "dataset the footprint came from",
					},
					"confidence": bson.M{
						"bsonType":    "double",
						"minimum":     0,
						"maximum":     1,
						"description": "detection confidence",
					},
					"capture_date": bson.M{
						"bsonType":    "date",
						"description": "imagery capture date",
					},
					"full_plus_code": bson.M{
						"bsonType":    "string",
						"description": "full plus code of the footprint",
					},
				},
			},
		},
		Indexes: []mongo.IndexModel{
			geometryIndex(),
			{
				Keys:    bson.D{{Key: "municipality_code", Value: 1}},
				Options: options.Index().SetName("municipality_code_index"),
			},
			{
				Keys:    bson.D{{Key: "area_m2", Value: 1}},
				Options: options.Index().SetName("area_m2_index"),
			},
		},
	}
}

// SourceLabel derives the document source value from a config source name.
func SourceLabel(name string) string {
	if name == "" {
		return ""
	}
	r := []rune(strings.ToLower(name))
	r[0] = unicode.ToUpper(r[0])

	return string(r)
}

// Specs builds the provisioning plan for every configured collection.
func Specs(cfg *config.Config) []CollectionSpec {
	specs := []CollectionSpec{MunicipalitySpec(cfg.Mongo.Municipalities)}
	for _, name := range cfg.SourceNames() {
		coll, _ := cfg.BuildingCollection(name)
		specs = append(specs, BuildingSpec(coll, SourceLabel(name)))
	}

	return specs
}

// EnsureCollections creates any missing collections with their validators
// and brings their indexes up. Existing collections are left as they are,
// so the operation is safe to repeat.
func (s *Store) EnsureCollections(ctx context.Context, specs ...CollectionSpec) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, spec := range specs {
		if have[spec.Name] {
			log.Debug().Str("collection", spec.Name).Msg("Collection already exists")
		} else {
			opts := options.CreateCollection().
				SetValidator(spec.Validator).
				SetValidationLevel("strict").
				SetValidationAction("error")
			if err := s.db.CreateCollection(ctx, spec.Name, opts); err != nil {
				return fmt.Errorf("creating collection %s: %w", spec.Name, err)
			}
			log.Info().Str("collection", spec.Name).Msg("Collection created")
		}

		if len(spec.Indexes) == 0 {
			continue
		}
		names, err := s.collection(spec.Name).Indexes().CreateMany(ctx, spec.Indexes)
		if err != nil {
			return fmt.Errorf("creating indexes on %s: %w", spec.Name, err)
		}
		log.Info().Str("collection", spec.Name).Strs("indexes", names).Msg("Indexes ensured")
	}

	return nil
}
