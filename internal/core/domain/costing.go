package domain

// categoryCost holds the pricing inputs for one category. A surcharge applies
// when the client's budget ceiling exceeds the threshold; it doubles past ten
// times the threshold.
type categoryCost struct {
	Base            int
	BudgetThreshold int
	BudgetSurcharge int
}

var categoryCosts = map[ServiceCategory]categoryCost{
	CategoryDining:          {Base: 5, BudgetThreshold: 1_000, BudgetSurcharge: 2},
	CategoryEvents:          {Base: 10, BudgetThreshold: 5_000, BudgetSurcharge: 5},
	CategoryWellness:        {Base: 5, BudgetThreshold: 1_000, BudgetSurcharge: 2},
	CategoryShopping:        {Base: 5, BudgetThreshold: 5_000, BudgetSurcharge: 3},
	CategoryEntertainment:   {Base: 8, BudgetThreshold: 2_500, BudgetSurcharge: 3},
	CategoryTravel:          {Base: 15, BudgetThreshold: 10_000, BudgetSurcharge: 5},
	CategoryAccommodation:   {Base: 12, BudgetThreshold: 5_000, BudgetSurcharge: 5},
	CategoryTransportation:  {Base: 8, BudgetThreshold: 2_000, BudgetSurcharge: 3},
	CategorySecurity:        {Base: 20, BudgetThreshold: 10_000, BudgetSurcharge: 10},
	CategoryPrivateAviation: {Base: 40, BudgetThreshold: 50_000, BudgetSurcharge: 20},
	CategoryYachtCharter:    {Base: 35, BudgetThreshold: 50_000, BudgetSurcharge: 20},
	CategoryRealEstate:      {Base: 30, BudgetThreshold: 250_000, BudgetSurcharge: 15},
}

// priorityPercent scales the base cost.
var priorityPercent = map[Priority]int{
	PriorityStandard:  100,
	PriorityPriority:  150,
	PriorityUrgent:    200,
	PriorityImmediate: 300,
}

// CalculateServiceCreditCost prices a request. It is a pure table lookup:
// identical inputs always produce the identical cost. Unknown categories cost
// 0 and an unknown priority is treated as standard; callers validate both at
// the boundary.
func CalculateServiceCreditCost(category ServiceCategory, priority Priority, budgetMax *int) int {
	cc, ok := categoryCosts[category]
	if !ok {
		return 0
	}
	pct, ok := priorityPercent[priority]
	if !ok {
		pct = priorityPercent[PriorityStandard]
	}

	cost := (cc.Base*pct + 99) / 100
	if budgetMax != nil && *budgetMax > cc.BudgetThreshold {
		cost += cc.BudgetSurcharge
		if *budgetMax > 10*cc.BudgetThreshold {
			cost += cc.BudgetSurcharge
		}
	}
	return cost
}
