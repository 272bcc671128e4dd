package permission

import (
	"github.com/sawpanic/tradegate/internal/conflict"
	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/gates"
)

// CalcInputs is everything the state calculation may read: the four verdict
// statuses and the detected conflicts. Statuses are taken as-is; they are
// never re-derived here.
type CalcInputs struct {
	Gates     *gates.Set
	Conflicts []conflict.LayerConflict
}

// stateRule is one step of the cascade: a predicate and the state it returns
// when it matches.
type stateRule struct {
	Name    string
	Applies func(in CalcInputs) bool
	State   domain.PermissionState
}

// cascade is the fixed, ordered rule list. Order is semantics: each rule is
// consulted only if every earlier rule declined, and the list must not be
// reordered. The final rule always applies, making Calculate total.
var cascade = []stateRule{
	{
		// Tier-1 territory. Risk FAIL lands here and nothing later in the
		// cascade, or anywhere downstream, can override it.
		Name: "hard_failure",
		Applies: func(in CalcInputs) bool {
			g := in.Gates
			return g.Regime.Status == domain.StatusFail ||
				g.Risk.Status == domain.StatusFail ||
				(g.Flow.Status == domain.StatusFail && g.Context.Status == domain.StatusFail)
		},
		State: domain.NoTrade,
	},
	{
		Name: "transitional",
		Applies: func(in CalcInputs) bool {
			return in.Gates.CountStatus(domain.StatusWeakPass) >= 3 ||
				conflict.HasSeverity(in.Conflicts, domain.SeverityHigh)
		},
		State: domain.Wait,
	},
	{
		Name: "flow_quality",
		Applies: func(in CalcInputs) bool {
			s := in.Gates.Flow.Status
			return s == domain.StatusFail || s == domain.StatusWeakPass
		},
		State: domain.ScalpOnly,
	},
	{
		Name: "risk_discount",
		Applies: func(in CalcInputs) bool {
			return in.Gates.CountStatus(domain.StatusWeakPass) > 0
		},
		State: domain.TradeAllowedReducedRisk,
	},
	{
		Name:    "full_permission",
		Applies: func(CalcInputs) bool { return true },
		State:   domain.TradeAllowed,
	},
}

// Calculate maps the four verdicts plus the conflict list to exactly one
// permission state. It is total over the status lattice and never panics or
// errors for well-formed verdict sets.
func Calculate(in CalcInputs) domain.PermissionState {
	state, _ := CalculateWithRule(in)
	return state
}

// CalculateWithRule also reports which cascade step decided the state.
func CalculateWithRule(in CalcInputs) (domain.PermissionState, string) {
	for _, rule := range cascade {
		if rule.Applies(in) {
			return rule.State, rule.Name
		}
	}
	// Unreachable: the last rule always applies.
	return domain.NoTrade, "unreachable"
}
