package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Check is one verification probe's outcome.
type Check struct {
	Name   string
	Detail string
	OK     bool
}

// assignmentThreshold is the minimum share of assigned footprints before a
// collection counts as properly enriched.
const assignmentThreshold = 0.5

// CollectionCounts probes that each collection exists and holds documents.
func (s *Store) CollectionCounts(ctx context.Context, colls ...string) ([]Check, error) {
	checks := make([]Check, 0, len(colls))
	for _, coll := range colls {
		n, err := s.collection(coll).CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", coll, err)
		}

		checks = append(checks, Check{
			Name:   "documents in " + coll,
			OK:     n > 0,
			Detail: fmt.Sprintf("%d documents", n),
		})
	}

	return checks, nil
}

// SpatialIndexes probes for a 2dsphere index on each collection.
func (s *Store) SpatialIndexes(ctx context.Context, colls ...string) ([]Check, error) {
	checks := make([]Check, 0, len(colls))
	for _, coll := range colls {
		cur, err := s.collection(coll).Indexes().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing indexes on %s: %w", coll, err)
		}
		var indexes []bson.M
		if err := cur.All(ctx, &indexes); err != nil {
			return nil, fmt.Errorf("reading indexes on %s: %w", coll, err)
		}

		found := ""
		names := make([]string, 0, len(indexes))
		for _, idx := range indexes {
			if name, ok := idx["name"].(string); ok {
				names = append(names, name)
			}
			key, _ := idx["key"].(bson.M)
			for field, kind := range key {
				if kind == "2dsphere" {
					found = field
				}
			}
		}

		detail := fmt.Sprintf("no 2dsphere index among %v", names)
		if found != "" {
			detail = "2dsphere index on " + found
		}
		checks = append(checks, Check{
			Name:   "spatial index on " + coll,
			OK:     found != "",
			Detail: detail,
		})
	}

	return checks, nil
}

// AssignmentRate probes the share of footprints carrying a municipality.
func (s *Store) AssignmentRate(ctx context.Context, coll string) (Check, error) {
	check := Check{Name: "municipality assignment in " + coll}

	total, err := s.collection(coll).CountDocuments(ctx, bson.M{})
	if err != nil {
		return check, fmt.Errorf("counting %s: %w", coll, err)
	}
	if total == 0 {
		check.Detail = "collection is empty"
		return check, nil
	}

	with, err := s.collection(coll).CountDocuments(ctx, bson.M{"municipality_code": bson.M{"$exists": true}})
	if err != nil {
		return check, fmt.Errorf("counting assigned in %s: %w", coll, err)
	}

	rate := float64(with) / float64(total)
	check.OK = rate > assignmentThreshold
	check.Detail = fmt.Sprintf("%d/%d (%.1f%%) assigned", with, total, rate*100)

	return check, nil
}

// IndexNames lists a collection's index names.
func (s *Store) IndexNames(ctx context.Context, coll string) ([]string, error) {
	cur, err := s.collection(coll).Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexes on %s: %w", coll, err)
	}

	var indexes []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &indexes); err != nil {
		return nil, fmt.Errorf("reading indexes on %s: %w", coll, err)
	}

	names := make([]string, len(indexes))
	for i, idx := range indexes {
		names[i] = idx.Name
	}

	return names, nil
}
