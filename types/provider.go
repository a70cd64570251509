package types

import "strings"

// Provider identifies a candidate provider in an estimate request.
type Provider struct {
	ProviderID       string `json:"provider_id"`
	NetworkID        string `json:"network_id"`
	SpecialtyCode    string `json:"specialty_code"`
	ServiceLocation  string `json:"service_location"`
}

// Fingerprint is the deterministic correlation key described in spec §3:
// a string joining service-location, specialty code, network id, and
// provider id. Stable for the lifetime of a single request.
type Fingerprint string

// FingerprintOf builds the provider fingerprint. The orchestrator does not
// call it: it correlates fan-out results by each provider's index in the
// request.
func FingerprintOf(p Provider) Fingerprint {
	parts := []string{p.ServiceLocation, p.SpecialtyCode, p.NetworkID, p.ProviderID}
	return Fingerprint(strings.Join(parts, "|"))
}
