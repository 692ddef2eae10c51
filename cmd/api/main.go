package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mfg-platform/production-service/pkg/cloudevents"
	"github.com/mfg-platform/production-service/pkg/kafka"
	"github.com/mfg-platform/production-service/pkg/logging"
	"github.com/mfg-platform/production-service/pkg/metrics"
	"github.com/mfg-platform/production-service/pkg/middleware"
	"github.com/mfg-platform/production-service/pkg/mongodb"

	"github.com/mfg-platform/production-service/internal/application"
	"github.com/mfg-platform/production-service/internal/infrastructure/messaging"
	mongoRepo "github.com/mfg-platform/production-service/internal/infrastructure/mongodb"
	"github.com/mfg-platform/production-service/internal/planning"
)

const serviceName = "production-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting production-service API")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceProduction)
	publisher := messaging.NewKafkaEventPublisher(instrumentedProducer, eventFactory, logger)

	db := mongoClient.Database()
	itemRepo := mongoRepo.NewItemRepository(db)
	bomRepo := mongoRepo.NewBOMRepository(db)
	stockRepo := mongoRepo.NewStockRepository(db)
	locationRepo := mongoRepo.NewLocationRepository(db)
	workOrderRepo := mongoRepo.NewWorkOrderRepository(db)
	unitRegistry := mongoRepo.NewUnitRegistry(db)
	logger.Info("Repositories initialized")

	explosionEngine := planning.NewEngine(itemRepo, bomRepo, stockRepo, logger)
	fulfillmentService := application.NewFulfillmentService(
		workOrderRepo, itemRepo, stockRepo, locationRepo, unitRegistry, publisher, m, logger)
	workOrderService := application.NewWorkOrderService(
		explosionEngine, workOrderRepo, itemRepo, bomRepo, fulfillmentService, publisher, m, logger)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth(middleware.DefaultTenantAuthConfig()))
	{
		api.POST("/planning/explode", explodeHandler(workOrderService))

		orders := api.Group("/work-orders")
		{
			orders.POST("/smart", createSmartWorkOrderHandler(workOrderService))
			orders.POST("/from-bom", createFromBOMHandler(workOrderService))
			orders.GET("", listWorkOrdersHandler(workOrderService))
			orders.GET("/:id", getWorkOrderHandler(workOrderService))
			orders.GET("/:id/completion-preview", completionPreviewHandler(fulfillmentService))
			orders.POST("/:id/start", startWorkOrderHandler(workOrderService))
			orders.POST("/:id/complete", completeWorkOrderHandler(fulfillmentService))
			orders.POST("/:id/cancel", cancelWorkOrderHandler(workOrderService))
		}

		api.POST("/availability/check", checkAvailabilityHandler(fulfillmentService))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8010"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "production_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func explodeHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ItemID   string  `json:"itemId" binding:"required"`
			Quantity float64 `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tc := middleware.GetTenantContext(c)
		report, err := service.Explode(c.Request.Context(), application.ExplodeQuery{
			TenantID: tc.TenantID,
			ItemID:   req.ItemID,
			Quantity: req.Quantity,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

func createSmartWorkOrderHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ItemID            string            `json:"itemId" binding:"required"`
			Quantity          float64           `json:"quantity" binding:"required"`
			StartDate         *time.Time        `json:"startDate"`
			VariantSelections map[string]string `json:"variantSelections"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tc := middleware.GetTenantContext(c)
		result, err := service.CreateSmartWorkOrder(c.Request.Context(), application.CreateSmartWorkOrderCommand{
			TenantID:          tc.TenantID,
			TenantCode:        tc.TenantCode,
			PlantCode:         tc.PlantCode,
			ActorID:           tc.ActorID,
			ItemID:            req.ItemID,
			Quantity:          req.Quantity,
			StartDate:         req.StartDate,
			VariantSelections: req.VariantSelections,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func createFromBOMHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ItemID            string            `json:"itemId" binding:"required"`
			BOMID             string            `json:"bomId" binding:"required"`
			Quantity          float64           `json:"quantity" binding:"required"`
			StartDate         *time.Time        `json:"startDate"`
			VariantSelections map[string]string `json:"variantSelections"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tc := middleware.GetTenantContext(c)
		order, err := service.CreateFromBOM(c.Request.Context(), application.CreateFromBOMCommand{
			TenantID:          tc.TenantID,
			ActorID:           tc.ActorID,
			ItemID:            req.ItemID,
			BOMID:             req.BOMID,
			Quantity:          req.Quantity,
			StartDate:         req.StartDate,
			VariantSelections: req.VariantSelections,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

func listWorkOrdersHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query struct {
			Limit  int `form:"limit"`
			Offset int `form:"offset"`
		}
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tc := middleware.GetTenantContext(c)
		orders, err := service.ListWorkOrders(c.Request.Context(), application.ListWorkOrdersQuery{
			TenantID: tc.TenantID,
			Limit:    query.Limit,
			Offset:   query.Offset,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"workOrders": orders, "count": len(orders)})
	}
}

func getWorkOrderHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := middleware.GetTenantContext(c)
		order, err := service.GetWorkOrder(c.Request.Context(), application.GetWorkOrderQuery{
			TenantID:    tc.TenantID,
			WorkOrderID: c.Param("id"),
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func completionPreviewHandler(service *application.FulfillmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := middleware.GetTenantContext(c)
		preview, err := service.GetCompletionPreview(c.Request.Context(), application.GetCompletionPreviewQuery{
			TenantID:    tc.TenantID,
			WorkOrderID: c.Param("id"),
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, preview)
	}
}

func startWorkOrderHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := middleware.GetTenantContext(c)
		order, err := service.StartWorkOrder(c.Request.Context(), application.StartWorkOrderCommand{
			TenantID:    tc.TenantID,
			WorkOrderID: c.Param("id"),
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func completeWorkOrderHandler(service *application.FulfillmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := middleware.GetTenantContext(c)
		order, err := service.Complete(c.Request.Context(), application.CompleteWorkOrderCommand{
			TenantID:    tc.TenantID,
			TenantCode:  tc.TenantCode,
			PlantCode:   tc.PlantCode,
			WorkOrderID: c.Param("id"),
			ActorID:     tc.ActorID,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func cancelWorkOrderHandler(service *application.WorkOrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		// Body is optional for cancellation
		_ = c.ShouldBindJSON(&req)

		tc := middleware.GetTenantContext(c)
		order, err := service.CancelWorkOrder(c.Request.Context(), application.CancelWorkOrderCommand{
			TenantID:    tc.TenantID,
			WorkOrderID: c.Param("id"),
			Reason:      req.Reason,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func checkAvailabilityHandler(service *application.FulfillmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Materials []struct {
				ItemID           string  `json:"itemId" binding:"required"`
				SubstituteItemID string  `json:"substituteItemId"`
				RequiredQuantity float64 `json:"requiredQuantity" binding:"required"`
			} `json:"materials" binding:"required,dive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		materials := make([]application.MaterialCheck, 0, len(req.Materials))
		for _, m := range req.Materials {
			materials = append(materials, application.MaterialCheck{
				ItemID:           m.ItemID,
				SubstituteItemID: m.SubstituteItemID,
				RequiredQuantity: m.RequiredQuantity,
			})
		}

		tc := middleware.GetTenantContext(c)
		result, err := service.CheckAvailability(c.Request.Context(), application.CheckAvailabilityQuery{
			TenantID:  tc.TenantID,
			Materials: materials,
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
