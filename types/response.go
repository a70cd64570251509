package types

import "github.com/meridianhealth/estimator/internal/money"

// EstimateResponse is the public entry-point's output: the original service
// plus an ordered list of per-provider records (spec §6).
type EstimateResponse struct {
	Service  ServiceInfo      `json:"service"`
	Providers []ProviderRecord `json:"providers"`
}

// ProviderRecord is either a success record or an error record, keyed to the
// provider it describes. Exactly one of Success/Error is non-nil.
type ProviderRecord struct {
	Provider Provider        `json:"provider"`
	Success  *ProviderResult `json:"success,omitempty"`
	Error    *ProviderError  `json:"error,omitempty"`
}

// ProviderError is the per-provider error shape from spec §7:
// {code, message, query_summary}, omitting all calculation fields.
type ProviderError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	QuerySummary string `json:"query_summary,omitempty"`
}

// ProviderResult is the assembled success record for one provider (spec §4.9).
type ProviderResult struct {
	Provider         Provider         `json:"provider"`
	CoverageSummary  CoverageSummary  `json:"coverage_summary"`
	Cost             CostSummary      `json:"cost"`
	ClaimLine        ClaimLine        `json:"claim_line"`
	Accumulators     []AccumulatorSnapshot `json:"accumulators"`
}

// CoverageSummary reports copay, coinsurance, and covered flag for the chosen benefit.
type CoverageSummary struct {
	Covered              bool        `json:"covered"`
	Copay                money.Cents `json:"copay"`
	CoinsurancePercent   float64     `json:"coinsurance_percent"`
}

// CostSummary reports the negotiated rate and its kind.
type CostSummary struct {
	Rate money.Cents `json:"rate"`
	Kind RateKind    `json:"kind"`
}

// ClaimLine reports the member/insurer cost split for the chosen benefit.
type ClaimLine struct {
	AmountCopay            money.Cents `json:"amount_copay"`
	AmountCoinsurance      money.Cents `json:"amount_coinsurance"`
	AmountResponsibility   money.Cents `json:"amount_responsibility"`   // member_pays
	PercentResponsibility  float64     `json:"percent_responsibility"`  // member_pays / service_cost * 100
	AmountPayable          money.Cents `json:"amount_payable"`          // service_cost - member_pays
}

// AccumulatorSnapshot reports the accumulator balance a chosen context referenced.
type AccumulatorSnapshot struct {
	Key     AccumulatorKey     `json:"key"`
	Balance AccumulatorBalance `json:"balance"`
}
