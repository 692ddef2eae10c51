package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// UnitRegistry mints globally unique unit identifiers and records each
// produced unit with its lifecycle.
type UnitRegistry struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewUnitRegistry(db *mongo.Database) *UnitRegistry {
	repo := &UnitRegistry{
		collection: db.Collection("produced_units"),
		counters:   db.Collection("counters"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *UnitRegistry) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "unitId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "workOrderId", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// MintUnitID returns the next identifier of the form
// <tenantCode>-<plantCode>-<entityType>-<seq>. The sequence is scoped to
// that triple so every plant numbers its units independently.
func (r *UnitRegistry) MintUnitID(ctx context.Context, tenantCode, plantCode, entityType string) (string, error) {
	key := strings.Join([]string{"unit", tenantCode, plantCode, entityType}, ":")
	seq, err := nextSequence(ctx, r.counters, key)
	if err != nil {
		return "", fmt.Errorf("failed to mint unit identifier: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s-%d", tenantCode, plantCode, entityType, seq), nil
}

func (r *UnitRegistry) Save(ctx context.Context, unit *domain.ProducedUnit) error {
	_, err := r.collection.InsertOne(ctx, unit)
	if err != nil {
		return fmt.Errorf("failed to save unit %s: %w", unit.UnitID, err)
	}
	return nil
}
