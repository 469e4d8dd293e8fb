package domain

import "time"

// TierID identifies a membership tier.
type TierID string

const (
	TierSilver   TierID = "silver"
	TierGold     TierID = "gold"
	TierPlatinum TierID = "platinum"
)

// MembershipTier is a static catalog entry. Instances are never mutated.
type MembershipTier struct {
	ID                TierID            `json:"id"`
	Name              string            `json:"name"`
	MonthlyCredits    int               `json:"monthly_credits"`
	IsUnlimited       bool              `json:"is_unlimited"`
	MonthlyPriceID    string            `json:"monthly_price_id"`
	AnnualPriceID     string            `json:"annual_price_id"`
	AllowedCategories []ServiceCategory `json:"allowed_categories"`
}

var baseCategories = []ServiceCategory{
	CategoryDining,
	CategoryEvents,
	CategoryWellness,
	CategoryShopping,
	CategoryEntertainment,
}

var goldCategories = append(append([]ServiceCategory{}, baseCategories...),
	CategoryTravel,
	CategoryAccommodation,
	CategoryTransportation,
	CategorySecurity,
)

// tierOrder is also the upgrade path.
var tierOrder = []TierID{TierSilver, TierGold, TierPlatinum}

var tiers = map[TierID]MembershipTier{
	TierSilver: {
		ID:                TierSilver,
		Name:              "Silver",
		MonthlyCredits:    20,
		MonthlyPriceID:    "price_silver_monthly",
		AnnualPriceID:     "price_silver_annual",
		AllowedCategories: baseCategories,
	},
	TierGold: {
		ID:                TierGold,
		Name:              "Gold",
		MonthlyCredits:    50,
		MonthlyPriceID:    "price_gold_monthly",
		AnnualPriceID:     "price_gold_annual",
		AllowedCategories: goldCategories,
	},
	TierPlatinum: {
		ID:                TierPlatinum,
		Name:              "Platinum",
		IsUnlimited:       true,
		MonthlyPriceID:    "price_platinum_monthly",
		AnnualPriceID:     "price_platinum_annual",
		AllowedCategories: AllCategories,
	},
}

// GetTierByID looks up a tier in the static catalog.
func GetTierByID(id TierID) (MembershipTier, bool) {
	t, ok := tiers[id]
	if !ok {
		return MembershipTier{}, false
	}
	t.AllowedCategories = append([]ServiceCategory(nil), t.AllowedCategories...)
	return t, true
}

// Tiers returns the catalog in upgrade order.
func Tiers() []MembershipTier {
	out := make([]MembershipTier, 0, len(tierOrder))
	for _, id := range tierOrder {
		t, _ := GetTierByID(id)
		out = append(out, t)
	}
	return out
}

// CanAccessService reports whether members of tierID may book category.
// Unlimited tiers may book anything; unknown tiers nothing.
func CanAccessService(tierID TierID, category ServiceCategory) bool {
	t, ok := tiers[tierID]
	if !ok {
		return false
	}
	if t.IsUnlimited {
		return true
	}
	for _, c := range t.AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}

func GetCreditsByTier(tierID TierID) int {
	return tiers[tierID].MonthlyCredits
}

func IsUnlimitedTier(tierID TierID) bool {
	return tiers[tierID].IsUnlimited
}

// NextTier returns the tier above id, if any.
func NextTier(id TierID) (TierID, bool) {
	for i, t := range tierOrder {
		if t == id && i+1 < len(tierOrder) {
			return tierOrder[i+1], true
		}
	}
	return "", false
}

// PriceID returns the billing price for the tier and interval.
func (t MembershipTier) PriceID(annual bool) string {
	if annual {
		return t.AnnualPriceID
	}
	return t.MonthlyPriceID
}

// Subscription is the billing back end's view of a member.
type Subscription struct {
	Subscribed      bool       `json:"subscribed"`
	Tier            TierID     `json:"tier,omitempty"`
	ProductID       string     `json:"product_id,omitempty"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
}

// Active reports whether the subscription grants a known tier.
func (s *Subscription) Active() bool {
	if s == nil || !s.Subscribed {
		return false
	}
	_, ok := tiers[s.Tier]
	return ok
}
