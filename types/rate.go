package types

import "github.com/meridianhealth/estimator/internal/money"

// RateKind distinguishes a flat negotiated amount from a percentage-of-charge rate.
type RateKind string

const (
	RateKindAmount     RateKind = "AMOUNT"
	RateKindPercentage RateKind = "PERCENTAGE"
)

// RateQuery is the value type sent to the negotiated-rate store: derived
// from the request's service plus one provider.
type RateQuery struct {
	ProviderID    string
	NetworkID     string
	ProcedureCode string
	PlaceOfService string
}

// NegotiatedRate is the rate store's response (spec §3). Only
// Kind=AMOUNT && Found=true is eligible for calculation; any other
// combination short-circuits to a RateNotFound error for that provider.
type NegotiatedRate struct {
	Amount money.Cents
	Kind   RateKind
	Found  bool
}

// Eligible reports whether this rate can be fed into the handler chain.
func (r NegotiatedRate) Eligible() bool {
	return r.Found && r.Kind == RateKindAmount
}
