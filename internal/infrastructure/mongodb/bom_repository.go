package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// BOMRepository reads bills of materials
type BOMRepository struct {
	collection *mongo.Collection
}

func NewBOMRepository(db *mongo.Database) *BOMRepository {
	repo := &BOMRepository{collection: db.Collection("boms")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BOMRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "bomId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}, {Key: "version", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// FindActiveForItem prefers the active BOM and falls back to the highest
// version when no version is flagged active.
func (r *BOMRepository) FindActiveForItem(ctx context.Context, tenantID, itemID string) (*domain.BillOfMaterials, error) {
	var bom domain.BillOfMaterials
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "itemId": itemID, "active": true}).Decode(&bom)
	if err == nil {
		return &bom, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	err = r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "itemId": itemID}, opts).Decode(&bom)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &bom, err
}

func (r *BOMRepository) FindByID(ctx context.Context, tenantID, bomID string) (*domain.BillOfMaterials, error) {
	var bom domain.BillOfMaterials
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "bomId": bomID}).Decode(&bom)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &bom, err
}
