package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultBatchSize is the number of documents per bulk write.
const DefaultBatchSize = 10000

// BuildingDoc is one footprint record, flattened so the collection
// validator can see area_m2 and source at the top level.
type BuildingDoc struct {
	Geometry         Geometry         `bson:"geometry"`
	Source           string           `bson:"source"`
	MunicipalityCode string           `bson:"municipality_code,omitempty"`
	MunicipalityName string           `bson:"municipality_name,omitempty"`
	Department       string           `bson:"department,omitempty"`
	FullPlusCode     string           `bson:"full_plus_code,omitempty"`
	Metadata         BuildingMetadata `bson:"metadata"`
	AreaM2           float64          `bson:"area_m2"`
	Confidence       float64          `bson:"confidence,omitempty"`
}

// BuildingMetadata stamps every document of one load run.
type BuildingMetadata struct {
	LoadDate    time.Time `bson:"load_date"`
	LoadID      string    `bson:"load_id"`
	Version     string    `bson:"version"`
	BatchLoaded bool      `bson:"batch_loaded"`
}

// NewLoadMetadata mints the shared stamp for one load run.
func NewLoadMetadata(version string) BuildingMetadata {
	return BuildingMetadata{
		LoadDate:    time.Now().UTC(),
		LoadID:      uuid.NewString(),
		Version:     version,
		BatchLoaded: true,
	}
}

// LoadStats accumulates one bulk load run.
type LoadStats struct {
	Read     int
	Inserted int
	Invalid  int
	Failed   int
}

// Merge folds another run's counters in.
func (s *LoadStats) Merge(o LoadStats) {
	s.Read += o.Read
	s.Inserted += o.Inserted
	s.Invalid += o.Invalid
	s.Failed += o.Failed
}

// Log writes the end-of-load summary for one collection.
func (s LoadStats) Log(coll string) {
	log.Info().
		Str("collection", coll).
		Int("read", s.Read).
		Int("inserted", s.Inserted).
		Int("invalid", s.Invalid).
		Int("failed", s.Failed).
		Msg("Load finished")
}

// BulkInsertBuildings writes one batch with unordered semantics. Documents
// the collection validator rejects are counted as failed, not fatal; only a
// transport level error aborts.
func (s *Store) BulkInsertBuildings(ctx context.Context, coll string, docs []BuildingDoc) (inserted, failed int, err error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	models := make([]mongo.WriteModel, len(docs))
	for i := range docs {
		models[i] = mongo.NewInsertOneModel().SetDocument(docs[i])
	}

	res, err := s.collection(coll).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) {
			return 0, 0, fmt.Errorf("bulk write to %s: %w", coll, err)
		}

		failed = len(bwe.WriteErrors)
		if failed > 0 {
			log.Debug().
				Str("collection", coll).
				Int("failed", failed).
				Str("first_error", bwe.WriteErrors[0].Message).
				Msg("Validator rejected documents")
		}
	}
	if res != nil {
		inserted = int(res.InsertedCount)
	}

	return inserted, failed, nil
}
