package ports

import (
	"context"

	"gopuf/domain/core"
	"gopuf/models"
)

// ResultStorePort persists completed experiment results.
type ResultStorePort interface {
	SaveResult(ctx context.Context, res *models.ExperimentResult) error
	GetResult(ctx context.Context, id core.ExperimentID) (*models.ExperimentResult, error)
	ListResults(ctx context.Context, limit int) ([]models.ExperimentResult, error)
}

// ProgressSinkPort receives search-loop progress events. Implementations
// must be cheap; callbacks run inside the learning loop.
type ProgressSinkPort interface {
	ChainStarted(slot, attempt int)
	ChainDiscarded(slot, attempt int)
	ChainAccepted(slot, generations int)
}
