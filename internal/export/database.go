package export

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/nisthourly/internal/support/logger"
)

const defaultBatchSize = 500

var _ Exporter = (*DatabaseSink)(nil)

// DatabaseSink inserts the hourly observations into hourly_observation.
// All batches of a run are written in one transaction.
type DatabaseSink struct {
	db        *gorm.DB
	batchSize int
}

// NewDatabaseSink creates a DatabaseSink. A batchSize below 1 uses 500.
func NewDatabaseSink(db *gorm.DB, batchSize int) *DatabaseSink {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &DatabaseSink{db: db, batchSize: batchSize}
}

// Name returns "database".
func (s *DatabaseSink) Name() string { return "database" }

// Export inserts the observations of in.Hourly.
func (s *DatabaseSink) Export(ctx context.Context, in Input) (int, error) {
	rows := ToObservations(in.RunID, in.Hourly)
	if len(rows) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += s.batchSize {
			end := start + s.batchSize
			if end > len(rows) {
				end = len(rows)
			}
			batch := rows[start:end]
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("failed to insert observations %d-%d: %w", start, end-1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("Inserted %d observations for run '%s'.", len(rows), in.RunID)
	return len(rows), nil
}
