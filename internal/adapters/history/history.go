// Package history provides the prior runs of an entity from an in-memory
// table, Redis, or either behind a local cache. Providers return everything
// they hold; the engine applies the temporal filter.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/okian/furlong/internal/domain/model"
)

// Sentinel error kinds for this package.
var (
	ErrDecode = errors.New("history record could not be decoded")
)

// Provider supplies an entity's historical context. A nil context with a nil
// error means nothing is known about the entity.
type Provider interface {
	History(ctx context.Context, entityID string, asOf time.Time) (*model.HistoricalContext, error)
}
