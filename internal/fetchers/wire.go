package fetchers

import (
	"strings"

	"github.com/meridianhealth/estimator/internal/money"
	"github.com/meridianhealth/estimator/types"
)

// moneyCents wraps a raw integer-cents wire value as money.Cents.
func moneyCents(v int64) money.Cents { return money.Cents(v) }

// splitAccumulatorKey splits the wire key "Deductible/Individual" into its
// code and level parts (spec §3 example keys).
func splitAccumulatorKey(key string) (types.AccumulatorCode, types.AccumulatorLevel) {
	parts := strings.SplitN(key, "/", 2)
	if len(parts) != 2 {
		return types.AccumulatorCode(key), ""
	}
	return types.AccumulatorCode(parts[0]), types.AccumulatorLevel(parts[1])
}
