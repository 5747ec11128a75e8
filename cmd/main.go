package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Catalog Reconciliation API
// @version 1.0.0
// @description Supplier catalog imports, duplicate cleanup, supplier lifecycle, pricing and special orders
// @termsOfService http://swagger.io/terms/

// @contact.name Catalog API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8087
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(logger).WithField("service", "catalog-service")

	formulaDefaults, err := config.LoadFormulas(cfg.FormulasFile)
	if err != nil {
		log.Fatal("Failed to load pricing formulas:", err)
	}
	if cfg.FormulasFile != "" {
		log.Printf("✓ Pricing formulas loaded from %s", cfg.FormulasFile)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	catalogRepo := repository.NewCatalogRepository(db, redisClient)
	ordersRepo := repository.NewOrdersRepository(db)
	formulaRepo := repository.NewFormulaRepository(db, redisClient, formulaDefaults)

	// Event publishing is optional
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, cfg.CatalogID, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	var catalogEvents services.CatalogEvents
	if eventsPublisher != nil {
		catalogEvents = eventsPublisher
	}

	syncEngine := services.NewCatalogSyncEngine(catalogRepo, ordersRepo, catalogEvents, entry)
	duplicateResolver := services.NewDuplicateResolver(catalogRepo, ordersRepo, catalogEvents, entry)
	supplierManager := services.NewSupplierLifecycleManager(catalogRepo, ordersRepo, catalogEvents, entry)
	pricingService := services.NewPricingService(catalogRepo, formulaRepo, entry)
	specialOrders := services.NewSpecialOrderService(catalogRepo, ordersRepo, formulaRepo, entry)

	catalogHandler := handlers.NewCatalogHandler(syncEngine, pricingService, nil, handlers.CatalogHandlerConfig{
		MaxImportRows:       cfg.MaxImportRows,
		MaxUploadBytes:      int64(cfg.MaxUploadSizeMB) << 20,
		ProtectActiveOrders: cfg.ProtectActiveOrders,
	}, entry)
	reconcileHandler := handlers.NewReconcileHandler(duplicateResolver, supplierManager)
	pricingHandler := handlers.NewPricingHandler(pricingService)
	specialOrdersHandler := handlers.NewSpecialOrdersHandler(specialOrders, pricingService)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("catalog-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("catalog-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	metrics := gosharedmw.InitGlobalMetrics("tesseract", "catalog_service")
	log.Println("✓ Prometheus metrics initialized")

	rbacMw := rbac.NewMiddlewareWithURL(cfg.StaffServiceURL, nil)
	log.Println("✓ RBAC middleware initialized")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("catalog-service"))
	router.Use(gosharedmw.CompressionMiddleware())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		catalogRepo.RedisHealth,
	))
	router.GET("/metrics", gosharedmw.Handler())

	api := router.Group("/api/v1")

	// In development: DevelopmentAuthMiddleware for local testing.
	// Otherwise: IstioAuth reading x-jwt-claim-* headers, with X-* fallback.
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	} else {
		api.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
			RequireAuth:        true,
			AllowLegacyHeaders: true,
			Logger:             logrus.NewEntry(logger).WithField("component", "istio_auth"),
		}))
		api.Use(gosharedmw.VendorScopeFilter())
	}
	api.Use(middleware.SupplierScope())

	unrestricted := middleware.RequireUnrestricted()

	v1 := api.Group("")
	{
		imports := v1.Group("/import")
		{
			imports.GET("/template", rbacMw.RequirePermission(rbac.PermissionProductsImport), catalogHandler.GetImportTemplate)
			imports.POST("", rbacMw.RequirePermission(rbac.PermissionProductsImport), catalogHandler.ImportJSON)
			imports.POST("/file", rbacMw.RequirePermission(rbac.PermissionProductsImport), catalogHandler.ImportFile)
		}

		products := v1.Group("/products")
		{
			products.GET("", rbacMw.RequirePermission(rbac.PermissionProductsRead), catalogHandler.ListProducts)
			products.GET("/export", rbacMw.RequirePermission(rbac.PermissionProductsExport), catalogHandler.ExportProducts)
		}

		duplicates := v1.Group("/duplicates", unrestricted)
		{
			duplicates.GET("/scan", rbacMw.RequirePermission(rbac.PermissionProductsRead), reconcileHandler.ScanDuplicates)
			duplicates.POST("/merge", rbacMw.RequirePermission(rbac.PermissionProductsDelete), reconcileHandler.MergeDuplicates)
			duplicates.POST("/auto-merge", rbacMw.RequirePermission(rbac.PermissionProductsDelete), reconcileHandler.AutoMergeDuplicates)
		}

		suppliers := v1.Group("/suppliers")
		{
			suppliers.GET("", rbacMw.RequirePermission(rbac.PermissionVendorsRead), reconcileHandler.ListSuppliers)
			suppliers.POST("/rename", unrestricted, rbacMw.RequirePermission(rbac.PermissionVendorsUpdate), reconcileHandler.RenameSupplier)
			suppliers.DELETE("/:name", unrestricted, rbacMw.RequirePermission(rbac.PermissionVendorsManage), reconcileHandler.DeleteSupplier)
		}

		v1.GET("/price", rbacMw.RequirePermission(rbac.PermissionProductsRead), pricingHandler.GetPrice)

		formulas := v1.Group("/formulas")
		{
			formulas.GET("", rbacMw.RequirePermission(rbac.PermissionProductsRead), pricingHandler.GetFormulas)
			formulas.PUT("/:category", unrestricted, rbacMw.RequirePermission(rbac.PermissionProductsUpdate), pricingHandler.UpdateFormula)
		}

		orders := v1.Group("/special-orders")
		{
			orders.POST("", rbacMw.RequirePermission(rbac.PermissionOrdersCreate), specialOrdersHandler.CreateSpecialOrder)
			orders.GET("", rbacMw.RequirePermission(rbac.PermissionOrdersRead), specialOrdersHandler.ListSpecialOrders)
			orders.PATCH("/:id", rbacMw.RequirePermission(rbac.PermissionOrdersUpdate), specialOrdersHandler.UpdateSpecialOrder)
			orders.GET("/:id/verify", rbacMw.RequirePermission(rbac.PermissionOrdersRead), specialOrdersHandler.VerifySpecialOrder)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")

	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Catalog service stopped")
}
