package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/pricing"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string
	CORSOrigins []string

	// Services
	StaffServiceURL string
	NATSURL         string

	// CatalogID tags published events with the catalog they belong to
	CatalogID string

	// Import
	MaxImportRows       int
	MaxUploadSizeMB     int
	ProtectActiveOrders bool

	// Pricing
	FormulasFile string
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxImportRows, _ := strconv.Atoi(getEnv("MAX_IMPORT_ROWS", "20000"))
	maxUploadSizeMB, _ := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "10"))
	protectActiveOrders, _ := strconv.ParseBool(getEnv("PROTECT_ACTIVE_ORDERS", "false"))

	return &Config{
		// Database - fetch password from GCP Secret Manager if enabled
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:4200")),

		// Services
		StaffServiceURL: getEnv("STAFF_SERVICE_URL", "http://staff-service:8080"),
		NATSURL:         os.Getenv("NATS_URL"),

		CatalogID: getEnv("CATALOG_ID", "default"),

		// Import
		MaxImportRows:       maxImportRows,
		MaxUploadSizeMB:     maxUploadSizeMB,
		ProtectActiveOrders: protectActiveOrders,

		// Pricing
		FormulasFile: os.Getenv("FORMULAS_FILE"),
	}
}

// DSN renders the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate adds missing tables, columns and indexes. Existing columns are
// never dropped.
func Migrate(db *gorm.DB) error {
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.SpecialOrder{},
		&models.PricingFormula{},
	); err != nil {
		// Ignore errors about dropping non-existent constraints
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")
	return nil
}

// LoadFormulas returns the default formula set with the categories found in
// path replacing their defaults. An empty path yields the defaults.
//
//	spirits:
//	  taxPerLiter: 4.5
//	  shippingPerCase: 20
//	  marginDivisor: 0.7
func LoadFormulas(path string) (pricing.FormulaSet, error) {
	defaults := pricing.DefaultFormulas()
	if path == "" {
		return defaults, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formulas file: %w", err)
	}

	var overrides map[pricing.Category]pricing.Formula
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse formulas file %s: %w", path, err)
	}
	for category, f := range overrides {
		if !pricing.IsValidCategory(category) {
			return nil, fmt.Errorf("formulas file %s: unknown category %q", path, category)
		}
		fields := []struct {
			name  string
			value float64
		}{
			{"taxPerLiter", f.TaxPerLiter},
			{"taxFixed", f.TaxFixed},
			{"shippingPerCase", f.ShippingPerCase},
			{"marginDivisor", f.MarginDivisor},
			{"srpMultiplier", f.SRPMultiplier},
		}
		for _, field := range fields {
			if field.value < 0 {
				return nil, fmt.Errorf("formulas file %s: %s.%s must not be negative", path, category, field.name)
			}
		}
	}
	return defaults.Merge(overrides), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
