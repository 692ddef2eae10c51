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

// WorkOrderRepository persists work order aggregates. Order numbers come
// from an atomic per-tenant counter document.
type WorkOrderRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewWorkOrderRepository(db *mongo.Database) *WorkOrderRepository {
	repo := &WorkOrderRepository{
		collection: db.Collection("work_orders"),
		counters:   db.Collection("counters"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *WorkOrderRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "workOrderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "parentOrderId", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *WorkOrderRepository) Save(ctx context.Context, wo *domain.WorkOrder) error {
	wo.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, wo)
	if err != nil {
		return fmt.Errorf("failed to save work order %s: %w", wo.WorkOrderID, err)
	}
	return nil
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *domain.WorkOrder) error {
	wo.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"tenantId": wo.TenantID, "workOrderId": wo.WorkOrderID},
		wo,
	)
	if err != nil {
		return fmt.Errorf("failed to update work order %s: %w", wo.WorkOrderID, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrWorkOrderNotFound
	}
	return nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, tenantID, workOrderID string) (*domain.WorkOrder, error) {
	var wo domain.WorkOrder
	err := r.collection.FindOne(ctx, bson.M{"tenantId": tenantID, "workOrderId": workOrderID}).Decode(&wo)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &wo, err
}

func (r *WorkOrderRepository) FindByParent(ctx context.Context, tenantID, parentOrderID string) ([]*domain.WorkOrder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID, "parentOrderId": parentOrderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.WorkOrder
	err = cursor.All(ctx, &orders)
	return orders, err
}

func (r *WorkOrderRepository) FindAll(ctx context.Context, tenantID string, limit, offset int) ([]*domain.WorkOrder, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.WorkOrder
	err = cursor.All(ctx, &orders)
	return orders, err
}

// NextOrderNumber mints the tenant's next sequential number, e.g. PO-0001.
func (r *WorkOrderRepository) NextOrderNumber(ctx context.Context, tenantID string) (string, error) {
	seq, err := nextSequence(ctx, r.counters, "workorder:"+tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to mint order number: %w", err)
	}
	return fmt.Sprintf("PO-%04d", seq), nil
}

// nextSequence atomically increments the named counter and returns the new
// value, creating the counter document on first use.
func nextSequence(ctx context.Context, counters *mongo.Collection, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := counters.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
