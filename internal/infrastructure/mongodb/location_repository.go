package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// LocationRepository reads storage locations
type LocationRepository struct {
	collection *mongo.Collection
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	repo := &LocationRepository{collection: db.Collection("locations")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *LocationRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "locationId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "isDefault", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// FindDefault returns nil when the tenant has no default location.
func (r *LocationRepository) FindDefault(ctx context.Context, tenantID string) (*domain.Location, error) {
	var location domain.Location
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "isDefault": true}).Decode(&location)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &location, err
}
