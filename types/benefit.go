package types

import "github.com/meridianhealth/estimator/internal/money"

// BenefitRequest is the value type serialized to the Benefits service's wire
// format (spec §6): benefitProductType, membershipID, planIdentifier, and one
// serviceInfo entry per provider-derived query.
type BenefitRequest struct {
	BenefitProductType string              `json:"benefitProductType"`
	MembershipID       string              `json:"membershipID"`
	PlanIdentifier     string              `json:"planIdentifier"`
	ServiceInfo        []BenefitServiceReq `json:"serviceInfo"`
}

// BenefitServiceReq is one serviceInfo entry of a BenefitRequest.
type BenefitServiceReq struct {
	ServiceCodeInfo ServiceCodeInfo `json:"serviceCodeInfo"`
}

// ServiceCodeInfo carries the procedure code plus the provider attributes
// the Benefits service uses to select the matching coverage row.
type ServiceCodeInfo struct {
	Code              string   `json:"code"`
	Type              string   `json:"type"`
	ProviderType      []string `json:"providerType,omitempty"`
	PlaceOfService    []string `json:"placeOfService,omitempty"`
	ProviderSpecialty []string `json:"providerSpecialty,omitempty"`
}

// BenefitResponse is a tree: service -> list of Benefit (spec §3).
type BenefitResponse struct {
	Service  string    `json:"service"`
	Benefits []Benefit `json:"benefit"`
}

// Benefit carries network category, tier, code, and its Coverage rows.
type Benefit struct {
	NetworkCategory string     `json:"networkCategory"`
	Tier            string     `json:"tier"`
	Code            string     `json:"code"`
	Coverages       []Coverage `json:"coverages"`
}

// Coverage carries the fixed copay, percentage coinsurance, and the closed
// set of rule flags that drive handler routing (spec §6).
type Coverage struct {
	IsServiceCovered                            bool `json:"isServiceCovered"`
	CopayAppliesOutOfPocket                     bool `json:"copayAppliesOutOfPocket"`
	CoinsAppliesOutOfPocket                     bool `json:"coinsAppliesOutOfPocket"`
	DeductibleAppliesOutOfPocket                bool `json:"deductibleAppliesOutOfPocket"`
	CopayCountToDeductibleIndicator              bool `json:"copayCountToDeductibleIndicator"`
	CopayContinueWhenDeductibleMetIndicator     bool `json:"copayContinueWhenDeductibleMetIndicator"`
	CopayContinueWhenOutOfPocketMaxMetIndicator bool `json:"copayContinueWhenOutOfPocketMaxMetIndicator"`
	IsDeductibleBeforeCopay                     bool `json:"isDeductibleBeforeCopay"`
	BenefitLimitation                           bool `json:"benefitLimitation"`

	CostShareCopay       money.Cents `json:"costShareCopay"`
	CostShareCoinsurance float64     `json:"costShareCoinsurance"` // percent, 0-100

	// LimitRemaining is the benefit-limitation remaining count/amount; only
	// meaningful when BenefitLimitation is true. Modeled as Cents for a
	// uniform "remaining <= 0" comparison in H2 even though a benefit
	// limitation is often a visit count rather than a dollar amount —
	// callers populate it in whichever unit their plan tracks, the handler
	// chain only ever compares it to zero.
	LimitRemaining money.Cents `json:"limitRemaining"`
}
