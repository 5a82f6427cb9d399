package page

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate creates the pages table when it does not exist yet. AutoMigrate is
// idempotent, so this is safe to run on every boot.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "page.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("preparing pages table")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Page{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("pages table preparation failed")
		}
		return eris.Wrap(err, "auto migrating pages table")
	}

	return nil
}
