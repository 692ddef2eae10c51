package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// StockRepository persists stock lots. Lots are append-only except for
// their available quantity, which only the fulfillment engine decrements.
type StockRepository struct {
	collection *mongo.Collection
}

func NewStockRepository(db *mongo.Database) *StockRepository {
	repo := &StockRepository{collection: db.Collection("stock_lots")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StockRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "lotId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "available", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "createdAt", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// AvailableQuantity sums availability across every lot of the item.
func (r *StockRepository) AvailableQuantity(ctx context.Context, tenantID, itemID string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tenantId": tenantID, "itemId": itemID, "available": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$available"}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate availability: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ListLotsWithAvailability returns the item's consumable lots oldest-first.
func (r *StockRepository) ListLotsWithAvailability(ctx context.Context, tenantID, itemID string) ([]*domain.StockLot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{
		"tenantId":  tenantID,
		"itemId":    itemID,
		"available": bson.M{"$gt": 0},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var lots []*domain.StockLot
	err = cursor.All(ctx, &lots)
	return lots, err
}

func (r *StockRepository) UpdateLotAvailable(ctx context.Context, tenantID, lotID string, newAvailable float64) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"tenantId": tenantID, "lotId": lotID},
		bson.M{"$set": bson.M{"available": newAvailable, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update lot %s: %w", lotID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrLotNotFound
	}
	return nil
}

func (r *StockRepository) CreateLot(ctx context.Context, lot *domain.StockLot) error {
	if lot.CreatedAt.IsZero() {
		lot.CreatedAt = time.Now()
	}
	lot.UpdatedAt = lot.CreatedAt

	_, err := r.collection.InsertOne(ctx, lot)
	if err != nil {
		return fmt.Errorf("failed to create lot %s: %w", lot.LotID, err)
	}
	return nil
}
