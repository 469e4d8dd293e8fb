package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ServiceCategory is the closed set of concierge service kinds.
type ServiceCategory string

const (
	CategoryDining          ServiceCategory = "dining"
	CategoryEvents          ServiceCategory = "events"
	CategoryWellness        ServiceCategory = "wellness"
	CategoryShopping        ServiceCategory = "shopping"
	CategoryEntertainment   ServiceCategory = "entertainment"
	CategoryTravel          ServiceCategory = "travel"
	CategoryAccommodation   ServiceCategory = "accommodation"
	CategoryTransportation  ServiceCategory = "transportation"
	CategorySecurity        ServiceCategory = "security"
	CategoryPrivateAviation ServiceCategory = "private_aviation"
	CategoryYachtCharter    ServiceCategory = "yacht_charter"
	CategoryRealEstate      ServiceCategory = "real_estate"
)

// AllCategories lists every category in catalog order.
var AllCategories = []ServiceCategory{
	CategoryDining,
	CategoryEvents,
	CategoryWellness,
	CategoryShopping,
	CategoryEntertainment,
	CategoryTravel,
	CategoryAccommodation,
	CategoryTransportation,
	CategorySecurity,
	CategoryPrivateAviation,
	CategoryYachtCharter,
	CategoryRealEstate,
}

// ParseServiceCategory validates free-form input against the closed set.
func ParseServiceCategory(s string) (ServiceCategory, error) {
	c := ServiceCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (c ServiceCategory) Valid() bool {
	_, ok := categoryCosts[c]
	return ok
}

// DisplayName renders the category for member-facing text ("private_aviation" -> "Private Aviation").
func (c ServiceCategory) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}

// Priority expresses urgency; the zero value is invalid.
type Priority string

const (
	PriorityStandard  Priority = "standard"
	PriorityPriority  Priority = "priority"
	PriorityUrgent    Priority = "urgent"
	PriorityImmediate Priority = "immediate"
)

var priorityRank = map[Priority]int{
	PriorityStandard:  0,
	PriorityPriority:  1,
	PriorityUrgent:    2,
	PriorityImmediate: 3,
}

// ParsePriority validates input; an empty string means standard.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityStandard, nil
	}
	p := Priority(s)
	if _, ok := priorityRank[p]; !ok {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Rank orders priorities: standard < priority < urgent < immediate.
func (p Priority) Rank() int {
	r, ok := priorityRank[p]
	if !ok {
		return -1
	}
	return r
}
