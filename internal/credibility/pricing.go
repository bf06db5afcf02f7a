package credibility

// Per-call USD pricing for cost estimates. These mirror the provider's list
// prices closely enough for pre-flight planning; they are not billing
// authoritative.
const (
	CostWhoisPerCall     = 0.10
	CostBacklinksPerCall = 0.02
	CostLabsPerCall      = 0.01
)

// estimateCost prices the calls still needed for one domain.
func estimateCost(status SubsystemStatus) float64 {
	var cost float64
	if !status.HasWhois {
		cost += CostWhoisPerCall
	}
	if !status.HasBacklinks {
		cost += CostBacklinksPerCall
	}
	if !status.HasLabs {
		cost += CostLabsPerCall
	}
	return cost
}
