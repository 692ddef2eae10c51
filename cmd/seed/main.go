package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mfg-platform/production-service/internal/domain"
)

// Seed tool that loads a demo tenant with items, BOMs, locations and
// stock lots so the planning and fulfillment endpoints can be exercised
// against a fresh database.

var (
	mongoURI = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName   = flag.String("db", "production_db", "Database name")
	tenantID = flag.String("tenant", "DEMO_TENANT", "Tenant identifier to seed")
	reset    = flag.Bool("reset", false, "Drop the tenant's existing data before seeding")
)

func main() {
	flag.Parse()

	log.Printf("Seeding demo production data...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Tenant: %s", *tenantID)

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

	if *reset {
		if err := resetTenant(context.Background(), db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Printf("Existing data for tenant %s removed", *tenantID)
	}

	if err := seed(context.Background(), db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding completed successfully!")
}

func resetTenant(ctx context.Context, db *mongo.Database) error {
	filter := bson.M{"tenantId": *tenantID}
	for _, name := range []string{"items", "boms", "locations", "stock_lots", "work_orders", "produced_units"} {
		if _, err := db.Collection(name).DeleteMany(ctx, filter); err != nil {
			return err
		}
	}
	return nil
}

func seed(ctx context.Context, db *mongo.Database) error {
	now := time.Now()

	items := []interface{}{
		item("bike", "FG-BIKE-01", "City Bike", domain.CategoryFinishedGood, now),
		item("frame", "SA-FRAME-01", "Frame Assembly", domain.CategorySubAssembly, now),
		item("wheel", "SA-WHEEL-01", "Wheel Assembly", domain.CategorySubAssembly, now),
		item("steel-tube", "RM-TUBE-01", "Steel Tube", domain.CategoryRawMaterial, now),
		item("spokes", "RM-SPOKE-01", "Spoke Set", domain.CategoryRawMaterial, now),
		item("rim", "CO-RIM-01", "Rim", domain.CategoryComponent, now),
		item("saddle", "CO-SADDLE-01", "Saddle", domain.CategoryComponent, now),
	}
	if _, err := db.Collection("items").InsertMany(ctx, items); err != nil {
		return err
	}
	log.Printf("Inserted %d items", len(items))

	boms := []interface{}{
		&domain.BillOfMaterials{
			BOMID: "bom-bike-v1", TenantID: *tenantID, ItemID: "bike", Version: 1, Active: true,
			Lines: []domain.BOMLine{
				{LineID: "l1", ItemID: "frame", ChildBOMID: "bom-frame-v1", QuantityPerUnit: 1, Sequence: 1, UOM: "EA"},
				{LineID: "l2", ItemID: "wheel", QuantityPerUnit: 2, Sequence: 2, UOM: "EA"},
				{LineID: "l3", ItemID: "saddle", QuantityPerUnit: 1, Sequence: 3, UOM: "EA"},
			},
			Routing: []domain.RoutingStep{
				{Sequence: 1, Name: "Assemble", WorkCenter: "WC-ASSEMBLY", DurationMin: 45},
				{Sequence: 2, Name: "Inspect", WorkCenter: "WC-QA", DurationMin: 10},
			},
			CreatedAt: now, UpdatedAt: now,
		},
		&domain.BillOfMaterials{
			BOMID: "bom-frame-v1", TenantID: *tenantID, ItemID: "frame", Version: 1, Active: true,
			Lines: []domain.BOMLine{
				{LineID: "l1", ItemID: "steel-tube", QuantityPerUnit: 3, Sequence: 1, UOM: "EA"},
			},
			Routing: []domain.RoutingStep{
				{Sequence: 1, Name: "Weld", WorkCenter: "WC-WELD", DurationMin: 30},
			},
			CreatedAt: now, UpdatedAt: now,
		},
		&domain.BillOfMaterials{
			BOMID: "bom-wheel-v1", TenantID: *tenantID, ItemID: "wheel", Version: 1, Active: true,
			Lines: []domain.BOMLine{
				{LineID: "l1", ItemID: "rim", QuantityPerUnit: 1, Sequence: 1, UOM: "EA"},
				{LineID: "l2", ItemID: "spokes", QuantityPerUnit: 1, Sequence: 2, UOM: "EA"},
			},
			CreatedAt: now, UpdatedAt: now,
		},
	}
	if _, err := db.Collection("boms").InsertMany(ctx, boms); err != nil {
		return err
	}
	log.Printf("Inserted %d BOMs", len(boms))

	locations := []interface{}{
		&domain.Location{LocationID: "loc-main", TenantID: *tenantID, Code: "WH-MAIN", Name: "Main Warehouse", IsDefault: true, CreatedAt: now},
		&domain.Location{LocationID: "loc-floor", TenantID: *tenantID, Code: "SHOP-FLOOR", Name: "Shop Floor Buffer", CreatedAt: now},
	}
	if _, err := db.Collection("locations").InsertMany(ctx, locations); err != nil {
		return err
	}
	log.Printf("Inserted %d locations", len(locations))

	lots := []interface{}{
		lot("lot-tube-1", "steel-tube", 60, now.Add(-72*time.Hour)),
		lot("lot-tube-2", "steel-tube", 40, now.Add(-24*time.Hour)),
		lot("lot-spoke-1", "spokes", 80, now.Add(-48*time.Hour)),
		lot("lot-rim-1", "rim", 50, now.Add(-48*time.Hour)),
		lot("lot-saddle-1", "saddle", 25, now.Add(-24*time.Hour)),
		lot("lot-wheel-1", "wheel", 4, now.Add(-12*time.Hour)),
	}
	if _, err := db.Collection("stock_lots").InsertMany(ctx, lots); err != nil {
		return err
	}
	log.Printf("Inserted %d stock lots", len(lots))

	return nil
}

func item(id, code, name string, category domain.ItemCategory, now time.Time) *domain.Item {
	return &domain.Item{
		ItemID:    id,
		TenantID:  *tenantID,
		Code:      code,
		Name:      name,
		Category:  category,
		UOM:       "EA",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func lot(lotID, itemID string, quantity float64, createdAt time.Time) *domain.StockLot {
	return &domain.StockLot{
		LotID:      lotID,
		TenantID:   *tenantID,
		ItemID:     itemID,
		LocationID: "loc-main",
		Quantity:   quantity,
		Available:  quantity,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}
