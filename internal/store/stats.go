package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Stats summarizes one footprint collection.
type Stats struct {
	Collection          string
	Total               int64
	WithMunicipality    int64
	WithoutMunicipality int64
	TotalAreaM2         float64
	AvgAreaM2           float64
	MinAreaM2           float64
	MaxAreaM2           float64
}

// CollectionStats gathers document counts and the area distribution of one
// footprint collection.
func (s *Store) CollectionStats(ctx context.Context, coll string) (*Stats, error) {
	c := s.collection(coll)

	total, err := c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", coll, err)
	}
	with, err := c.CountDocuments(ctx, bson.M{"municipality_code": bson.M{"$exists": true}})
	if err != nil {
		return nil, fmt.Errorf("counting assigned in %s: %w", coll, err)
	}

	stats := &Stats{
		Collection:          coll,
		Total:               total,
		WithMunicipality:    with,
		WithoutMunicipality: total - with,
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_area_m2", Value: bson.D{{Key: "$sum", Value: "$area_m2"}}},
			{Key: "avg_area_m2", Value: bson.D{{Key: "$avg", Value: "$area_m2"}}},
			{Key: "min_area_m2", Value: bson.D{{Key: "$min", Value: "$area_m2"}}},
			{Key: "max_area_m2", Value: bson.D{{Key: "$max", Value: "$area_m2"}}},
		}}},
	}
	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", coll, err)
	}

	var rows []struct {
		TotalAreaM2 float64 `bson:"total_area_m2"`
		AvgAreaM2   float64 `bson:"avg_area_m2"`
		MinAreaM2   float64 `bson:"min_area_m2"`
		MaxAreaM2   float64 `bson:"max_area_m2"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("reading aggregation of %s: %w", coll, err)
	}
	if len(rows) > 0 {
		stats.TotalAreaM2 = rows[0].TotalAreaM2
		stats.AvgAreaM2 = rows[0].AvgAreaM2
		stats.MinAreaM2 = rows[0].MinAreaM2
		stats.MaxAreaM2 = rows[0].MaxAreaM2
	}

	return stats, nil
}

// MunicipalityAggregate is one municipality's roll-up within a collection.
type MunicipalityAggregate struct {
	Code        string  `bson:"_id"`
	Name        string  `bson:"-"`
	Department  string  `bson:"-"`
	Buildings   int64   `bson:"buildings"`
	TotalAreaM2 float64 `bson:"total_area_m2"`
	AvgAreaM2   float64 `bson:"avg_area_m2"`
}

// TotalAreaKM2 converts the roll-up area for presentation.
func (a MunicipalityAggregate) TotalAreaKM2() float64 {
	return a.TotalAreaM2 / 1e6
}

// TopMunicipalities groups one footprint collection by municipality,
// ordered by total area descending. limit <= 0 returns every municipality.
// Names and departments are resolved from the boundary collection.
func (s *Store) TopMunicipalities(ctx context.Context, buildingsColl, municipalitiesColl string, limit int) ([]MunicipalityAggregate, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "municipality_code", Value: bson.D{
				{Key: "$exists", Value: true},
				{Key: "$ne", Value: nil},
			}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$municipality_code"},
			{Key: "buildings", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_area_m2", Value: bson.D{{Key: "$sum", Value: "$area_m2"}}},
			{Key: "avg_area_m2", Value: bson.D{{Key: "$avg", Value: "$area_m2"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "total_area_m2", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cur, err := s.collection(buildingsColl).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", buildingsColl, err)
	}

	var aggs []MunicipalityAggregate
	if err := cur.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("reading aggregation of %s: %w", buildingsColl, err)
	}

	if err := s.resolveNames(ctx, municipalitiesColl, aggs); err != nil {
		return nil, err
	}

	return aggs, nil
}

// resolveNames fills names and departments from the boundary collection.
// Codes without a boundary record keep an empty name.
func (s *Store) resolveNames(ctx context.Context, municipalitiesColl string, aggs []MunicipalityAggregate) error {
	if len(aggs) == 0 {
		return nil
	}

	codes := make([]string, len(aggs))
	for i, a := range aggs {
		codes[i] = a.Code
	}

	cur, err := s.collection(municipalitiesColl).Find(ctx, bson.M{"codigo_dane": bson.M{"$in": codes}})
	if err != nil {
		return fmt.Errorf("resolving municipality names: %w", err)
	}

	var docs []MunicipalityDoc
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("reading municipality names: %w", err)
	}

	byCode := make(map[string]MunicipalityDoc, len(docs))
	for _, d := range docs {
		byCode[d.CodigoDane] = d
	}
	for i := range aggs {
		if d, ok := byCode[aggs[i].Code]; ok {
			aggs[i].Name = d.Nombre
			aggs[i].Department = d.Departamento
		}
	}

	return nil
}
