package db

import (
	"fmt"
	"time"

	"growjournal/internal/config"
	"growjournal/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database. Driver errors are translated so that
// unique violations surface as gorm.ErrDuplicatedKey on both drivers.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return conn, nil
}

// Init opens the database and stores the handle in DB.
func Init(cfg config.DatabaseConfig) error {
	conn, err := Open(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	DB = conn
	log.WithField("driver", cfg.Driver).Info("Database connection established")
	return nil
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.VerificationToken{},
		&models.Strain{},
		&models.Image{},
		&models.Report{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("Database migration completed")
	return nil
}

// SeedStrains inserts the default strain catalogue when the table is empty.
func SeedStrains(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.Strain{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("Strains already seeded, skipping")
		return nil
	}

	strains := []models.Strain{
		{Name: "Northern Lights", Breeder: "Sensi Seeds", Type: models.StrainIndica, THC: 18, CBD: 0.1,
			Description: "Compact, resinous indica. Forgiving for first grows."},
		{Name: "White Widow", Breeder: "Green House Seeds", Type: models.StrainHybrid, THC: 20, CBD: 0.2,
			Description: "Balanced hybrid with heavy trichome coverage."},
		{Name: "Amnesia Haze", Breeder: "Royal Queen Seeds", Type: models.StrainSativa, THC: 22, CBD: 0.1,
			Description: "Long flowering sativa with citrus terpenes."},
		{Name: "Gorilla Glue #4", Breeder: "GG Strains", Type: models.StrainHybrid, THC: 25, CBD: 0.1,
			Description: "Potent hybrid, very sticky buds."},
		{Name: "Blue Dream", Breeder: "Humboldt Seed Org", Type: models.StrainHybrid, THC: 19, CBD: 0.2,
			Description: "Sativa-leaning hybrid with berry aroma."},
		{Name: "Northern Lights Auto", Breeder: "Sensi Seeds", Type: models.StrainAutoflower, THC: 16, CBD: 0.2,
			Description: "Autoflowering version, seed to harvest in about ten weeks."},
	}
	if err := conn.Create(&strains).Error; err != nil {
		return fmt.Errorf("seed strains: %w", err)
	}
	log.WithField("count", len(strains)).Info("Initial strains created")
	return nil
}
