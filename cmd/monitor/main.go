package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// Material shortage monitoring tool. Scans open work orders, compares each
// pending material requirement against lot availability, and reports every
// requirement that could not be completed today.

var (
	mongoURI = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName   = flag.String("db", "production_db", "Database name")
	tenantID = flag.String("tenant", "", "Tenant identifier (empty scans all tenants)")
	limit    = flag.Int("limit", 200, "Maximum number of open work orders to scan")
)

type shortageRow struct {
	OrderNumber string
	WorkOrderID string
	ItemID      string
	Required    float64
	Available   float64
	Short       float64
}

func main() {
	flag.Parse()

	log.Printf("Starting material shortage scan...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	if *tenantID != "" {
		log.Printf("Tenant: %s", *tenantID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	if err := scanShortages(context.Background(), db); err != nil {
		log.Fatalf("Scan failed: %v", err)
	}
}

func scanShortages(ctx context.Context, db *mongo.Database) error {
	orders := db.Collection("work_orders")

	filter := bson.M{"status": bson.M{"$in": []string{
		string(domain.StatusPlanned),
		string(domain.StatusInProgress),
	}}}
	if *tenantID != "" {
		filter["tenantId"] = *tenantID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(*limit))

	cursor, err := orders.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query work orders: %w", err)
	}
	defer cursor.Close(ctx)

	var open []*domain.WorkOrder
	if err := cursor.All(ctx, &open); err != nil {
		return fmt.Errorf("failed to decode work orders: %w", err)
	}

	fmt.Printf("\n=== Open work orders: %d ===\n\n", len(open))

	// Availability is cached per tenant/item so orders competing for the
	// same material are each reported against the full current stock.
	availability := make(map[string]float64)
	shortages := make([]shortageRow, 0)

	for _, wo := range open {
		for _, material := range wo.Materials {
			if material.Status == domain.MaterialIssued {
				continue
			}
			itemID := material.ConsumableItemID()
			key := wo.TenantID + "/" + itemID

			available, ok := availability[key]
			if !ok {
				available, err = sumAvailability(ctx, db, wo.TenantID, itemID)
				if err != nil {
					return err
				}
				availability[key] = available
			}

			if available < material.RequiredQuantity {
				shortages = append(shortages, shortageRow{
					OrderNumber: wo.OrderNumber,
					WorkOrderID: wo.WorkOrderID,
					ItemID:      itemID,
					Required:    material.RequiredQuantity,
					Available:   available,
					Short:       material.RequiredQuantity - available,
				})
			}
		}
	}

	if len(shortages) == 0 {
		fmt.Println("No material shortages detected")
		return nil
	}

	fmt.Printf("Found %d material shortages:\n\n", len(shortages))
	fmt.Println("Order       Item                      Required   Available     Short")
	fmt.Println("----------  ------------------------  --------  ----------  --------")
	for _, row := range shortages {
		fmt.Printf("%-10s  %-24s  %8g  %10g  %8g\n",
			row.OrderNumber, row.ItemID, row.Required, row.Available, row.Short)
	}

	return nil
}

func sumAvailability(ctx context.Context, db *mongo.Database, tenant, itemID string) (float64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"tenantId": tenant, "itemId": itemID, "available": bson.M{"$gt": 0}}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$available"}}},
	}

	cursor, err := db.Collection("stock_lots").Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate stock for %s: %w", itemID, err)
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
