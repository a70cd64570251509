package chain

import "fmt"

// HandlerID names one of the ten fixed handlers (spec §4.7). Declared as a
// closed enumeration per Design Notes §9's "lookup table from (handler_id,
// outcome_label) -> handler_id" guidance, even though the actual dispatch
// below uses direct Go calls (option (b) of that same note) rather than a
// runtime table lookup.
type HandlerID int

const (
	H1 HandlerID = iota
	H2
	H3
	H4
	H5
	H6
	H7
	H8
	H9
	H10
	numHandlers
)

var handlerNames = [numHandlers]string{
	H1:  "H1_ServiceCoverage",
	H2:  "H2_BenefitLimitation",
	H3:  "H3_OOPMax",
	H4:  "H4_OOPMaxCopay",
	H5:  "H5_Deductible",
	H6:  "H6_CostShareCoPay",
	H7:  "H7_DeductibleCostShareCoPay",
	H8:  "H8_DeductibleOOPMax",
	H9:  "H9_DeductibleCoPay",
	H10: "H10_DeductibleCoInsurance",
}

func (id HandlerID) String() string {
	if id < 0 || id >= numHandlers {
		return fmt.Sprintf("HandlerID(%d)", int(id))
	}
	return handlerNames[id]
}

// handlerFunc is one node's processing logic. It either completes ctx or
// calls exactly one of c.dispatch(<edge>, ctx).
type handlerFunc func(c *Chain, ctx *EstimationContext)

// declaredEdges is the static outbound-edge set per handler, used only to
// validate acyclicity and sink declarations at construction time (spec
// §4.7's "wiring contract" and "an implementer must verify acyclicity at
// wire-time"). It intentionally mirrors, but does not drive, the handlers'
// actual conditional dispatch calls in handlers.go.
var declaredEdges = map[HandlerID][]HandlerID{
	H1:  {H2},
	H2:  {H3},
	H3:  {H4, H5},
	H4:  {},
	H5:  {H6, H7, H8, H9},
	H6:  {H4, H10},
	H7:  {H10},
	H8:  {},
	H9:  {H10},
	H10: {},
}

// Chain is the constructed, validated handler pipeline. Build exactly one
// per process with NewChain and reuse it across requests; it holds no
// per-request state.
type Chain struct {
	registry map[HandlerID]handlerFunc
}

// NewChain builds and validates the handler chain. It panics on any wiring
// defect — missing handler, edge to an undeclared handler, a declared sink
// with outbound edges, or a cycle — because such a defect is a programming
// error that must fail at start-up, never at request time (spec §4.7).
func NewChain() *Chain {
	registry := map[HandlerID]handlerFunc{
		H1:  h1ServiceCoverage,
		H2:  h2BenefitLimitation,
		H3:  h3OOPMax,
		H4:  h4OOPMaxCopay,
		H5:  h5Deductible,
		H6:  h6CostShareCoPay,
		H7:  h7DeductibleCostShareCoPay,
		H8:  h8DeductibleOOPMax,
		H9:  h9DeductibleCoPay,
		H10: h10DeductibleCoInsurance,
	}
	validateWiring(registry)
	return &Chain{registry: registry}
}

// validateWiring checks: every handler in declaredEdges has a registered
// function; every edge target is itself a registered handler; the declared
// sinks (H4, H8, H10) have no outbound edges; and the edge graph is acyclic
// via depth-first search.
func validateWiring(registry map[HandlerID]handlerFunc) {
	for id := HandlerID(0); id < numHandlers; id++ {
		if _, ok := registry[id]; !ok {
			panic(fmt.Sprintf("chain: no handler registered for %s", id))
		}
		edges, ok := declaredEdges[id]
		if !ok {
			panic(fmt.Sprintf("chain: no declared edge set for %s", id))
		}
		for _, target := range edges {
			if _, ok := registry[target]; !ok {
				panic(fmt.Sprintf("chain: %s declares an edge to unset handler %s", id, target))
			}
		}
	}
	for _, sink := range []HandlerID{H4, H8, H10} {
		if len(declaredEdges[sink]) != 0 {
			panic(fmt.Sprintf("chain: %s is a declared sink but has outbound edges", sink))
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[HandlerID]int, numHandlers)
	var visit func(id HandlerID, path []HandlerID)
	visit = func(id HandlerID, path []HandlerID) {
		switch state[id] {
		case done:
			return
		case visiting:
			panic(fmt.Sprintf("chain: cycle detected reaching %s via %v", id, path))
		}
		state[id] = visiting
		for _, next := range declaredEdges[id] {
			visit(next, append(path, next))
		}
		state[id] = done
	}
	visit(H1, []HandlerID{H1})
}

// Run drives ctx through the chain starting at H1 until a handler marks it
// complete. It panics if more handlers are visited than exist, which can
// only happen if a handler's actual runtime dispatch diverges from the
// validated acyclic graph (a bug in handlers.go, not a data condition).
func (c *Chain) Run(ctx *EstimationContext) {
	c.dispatch(H1, ctx)
}

func (c *Chain) dispatch(id HandlerID, ctx *EstimationContext) {
	if ctx.CalculationComplete {
		return
	}
	if len(ctx.Trace) >= int(numHandlers) {
		panic("chain: exceeded maximum handler visits; the chain is not acyclic at runtime")
	}
	fn, ok := c.registry[id]
	if !ok {
		panic(fmt.Sprintf("chain: dispatch to unset handler %s", id))
	}
	ctx.Trace = append(ctx.Trace, id.String())
	fn(c, ctx)
}
