package ratestore

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meridianhealth/estimator/internal/apperr"
	"github.com/meridianhealth/estimator/types"
)

// Store is the Rate Fetcher's (C5) backing repository. One Store is shared
// across all requests; gorm.DB is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New wraps an already-opened gorm.DB. Callers own migration (see Migrate).
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "ratestore"))}
}

// Query looks up the negotiated rate for one provider/procedure/place-of-
// service combination. A row not found is reported as NegotiatedRate{Found:
// false}, not a Go error — per spec §3, only Kind=AMOUNT && Found=true is
// eligible, so callers branch on the return value rather than on err. A real
// database failure is the only thing that returns a non-nil error.
func (s *Store) Query(ctx context.Context, q types.RateQuery) (types.NegotiatedRate, error) {
	var row RateRow
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND network_id = ? AND procedure_code = ? AND place_of_service = ?",
			q.ProviderID, q.NetworkID, q.ProcedureCode, q.PlaceOfService).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NegotiatedRate{Found: false}, nil
	}
	if err != nil {
		return types.NegotiatedRate{}, apperr.New(apperr.RateNotFound, "rate store query failed").
			WithCause(err).WithRetryable(true)
	}

	return types.NegotiatedRate{
		Amount: row.amount(),
		Kind:   types.RateKind(row.Kind),
		Found:  true,
	}, nil
}
