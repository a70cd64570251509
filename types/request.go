package types

import "time"

// Mode selects single-provider ("propagate exception") vs multi-provider
// ("return-as-value") error semantics, per spec §4.3/§4.8.
type Mode int

const (
	// ModeMultiProvider never fails the whole request; failures become
	// per-provider error records.
	ModeMultiProvider Mode = iota
	// ModeSingleProvider propagates the (single) provider's error as the
	// request's error.
	ModeSingleProvider
)

// ServiceInfo describes the service being estimated: procedure code, place
// of service, and diagnosis.
type ServiceInfo struct {
	ProcedureCode string `json:"procedure_code"`
	PlaceOfService string `json:"place_of_service"`
	Diagnosis      string `json:"diagnosis,omitempty"`
}

// EstimateRequest is the public entry-point's input (spec §6: "estimate(request,
// headers) -> response").
type EstimateRequest struct {
	MembershipID string        `json:"membership_id"`
	Service      ServiceInfo   `json:"service"`
	Providers    []Provider    `json:"providers"`
	Mode         Mode          `json:"-"`
	Deadline     time.Time     `json:"-"`
}
