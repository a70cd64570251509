package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianhealth/estimator/types"
)

func TestAssemble_PreservesServiceAndOrder(t *testing.T) {
	req := types.EstimateRequest{
		Service:   types.ServiceInfo{ProcedureCode: "99213"},
		Providers: []types.Provider{{ProviderID: "a"}, {ProviderID: "b"}},
	}
	records := []types.ProviderRecord{
		{Provider: types.Provider{ProviderID: "a"}, Error: &types.ProviderError{Code: "RATE_NOT_FOUND"}},
		{Provider: types.Provider{ProviderID: "b"}, Success: &types.ProviderResult{}},
	}

	resp := Assemble(req, records)

	assert.Equal(t, "99213", resp.Service.ProcedureCode)
	assert.Len(t, resp.Providers, 2)
	assert.Equal(t, "a", resp.Providers[0].Provider.ProviderID)
	assert.NotNil(t, resp.Providers[0].Error)
	assert.Equal(t, "b", resp.Providers[1].Provider.ProviderID)
	assert.NotNil(t, resp.Providers[1].Success)
}

func TestAssemble_EmptyRecords(t *testing.T) {
	resp := Assemble(types.EstimateRequest{}, nil)
	assert.Empty(t, resp.Providers)
}
