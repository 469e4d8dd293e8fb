package domain

// UsageMetrics summarises a member's activity in the current calendar month.
type UsageMetrics struct {
	RequestsThisMonth int `json:"requests_this_month"`
	CreditsUsed       int `json:"credits_used"`
	CreditsRemaining  int `json:"credits_remaining"`
	CompletedRequests int `json:"completed_requests"`
}

// UpgradeRule is one row of the upgrade advisor table. Zero-valued
// thresholds are ignored; a rule with no thresholds never matches.
type UpgradeRule struct {
	Name string
	// Tier restricts the rule to one tier; empty means any metered tier.
	Tier TierID
	// CreditUsageAbove matches when credits used exceed this fraction of the
	// tier's monthly credits.
	CreditUsageAbove float64
	// RequestsAbove matches when more than this many requests were made this month.
	RequestsAbove int
	// Recommend is the target tier; empty means the next tier up.
	Recommend TierID
	Reason    string
}

// UpgradeRecommendation is the advisor's verdict.
type UpgradeRecommendation struct {
	ShouldUpgrade bool   `json:"should_upgrade"`
	CurrentTier   TierID `json:"current_tier"`
	Recommended   TierID `json:"recommended_tier,omitempty"`
	Rule          string `json:"rule,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// DefaultUpgradeRules is evaluated in order; the first match wins.
var DefaultUpgradeRules = []UpgradeRule{
	{
		Name:             "credit_usage",
		CreditUsageAbove: 0.9,
		Reason:           "You have used more than 90% of your monthly credits.",
	},
	{
		Name:          "silver_request_volume",
		Tier:          TierSilver,
		RequestsAbove: 3,
		Recommend:     TierGold,
		Reason:        "Your request volume fits the Gold membership.",
	},
	{
		Name:          "gold_request_volume",
		Tier:          TierGold,
		RequestsAbove: 10,
		Recommend:     TierPlatinum,
		Reason:        "Your request volume fits the Platinum membership.",
	},
}

// Matches reports whether the rule fires for a member of tier with metrics m.
func (r UpgradeRule) Matches(tier MembershipTier, m UsageMetrics) bool {
	if tier.IsUnlimited {
		return false
	}
	if r.Tier != "" && r.Tier != tier.ID {
		return false
	}
	if r.CreditUsageAbove <= 0 && r.RequestsAbove <= 0 {
		return false
	}
	if r.CreditUsageAbove > 0 {
		if tier.MonthlyCredits <= 0 {
			return false
		}
		if float64(m.CreditsUsed) <= r.CreditUsageAbove*float64(tier.MonthlyCredits) {
			return false
		}
	}
	if r.RequestsAbove > 0 && m.RequestsThisMonth <= r.RequestsAbove {
		return false
	}
	return true
}

func (r UpgradeRule) target(current TierID) (TierID, bool) {
	if r.Recommend != "" {
		return r.Recommend, r.Recommend != current
	}
	return NextTier(current)
}

// RecommendUpgrade evaluates rules in order against the member's usage.
func RecommendUpgrade(tierID TierID, m UsageMetrics, rules []UpgradeRule) UpgradeRecommendation {
	rec := UpgradeRecommendation{CurrentTier: tierID}
	tier, ok := GetTierByID(tierID)
	if !ok {
		return rec
	}
	for _, r := range rules {
		if !r.Matches(tier, m) {
			continue
		}
		next, ok := r.target(tierID)
		if !ok {
			continue
		}
		rec.ShouldUpgrade = true
		rec.Recommended = next
		rec.Rule = r.Name
		rec.Reason = r.Reason
		return rec
	}
	return rec
}
