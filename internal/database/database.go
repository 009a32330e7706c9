package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"go.uber.org/zap"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Init(cfg config.Storage) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.Database
		if _, err := os.Stat(dsn); os.IsNotExist(err) {
			zap.S().Infof("database file not found at '%s', creating directory for it.", dsn)
			// Ensure the directory for the database file exists.
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.Database)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Settings{},
		&models.Problem{},
		&models.ProblemLink{},
		&models.Contest{},
		&models.ContestProblem{},
		&models.ContestScores{},
		&models.ActiveVirtualContest{},
		&models.UserVirtualContest{},
		&models.VirtualSubmission{},
		&models.UserProblemData{},
		&models.PlatformCredential{},
	)
}
