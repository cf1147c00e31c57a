package metadatastore

import (
	"errors"

	"github.com/mimir-aip/finqa/pkg/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// MetadataStore persists answered questions and trained model summaries.
// The table itself is never stored: the CSV file stays the source of truth.
type MetadataStore interface {
	// Query history
	SaveQuery(record *models.QueryRecord) error
	GetQuery(id string) (*models.QueryRecord, error)
	ListQueries(limit int) ([]*models.QueryRecord, error)

	// Model summaries; saving replaces the previous training run
	SaveModelSummaries(summaries []models.ModelSummary) error
	ListModelSummaries() ([]models.ModelSummary, error)

	Close() error
}
