package plans

import (
	"strings"

	"github.com/toolpress/toolpress/internal/pkg/env"
)

type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Config describes one paid plan. Prices are monthly, in the shop currency.
type Config struct {
	Name     Plan
	Price    float64
	Currency string
	Features []string
}

var catalog = map[Plan]Config{
	PlanBasic: {
		Name:     PlanBasic,
		Price:    15,
		Currency: "EUR",
		Features: []string{"Full blog access", "Email updates", "Community access"},
	},
	PlanPro: {
		Name:     PlanPro,
		Price:    29,
		Currency: "EUR",
		Features: []string{"Basic features", "Premium content", "Priority support", "No ads"},
	},
	PlanEnterprise: {
		Name:     PlanEnterprise,
		Price:    39,
		Currency: "EUR",
		Features: []string{"Pro features", "Custom solutions", "Dedicated support", "API access"},
	},
}

// Lookup resolves a raw plan name to its config, case-insensitively.
func Lookup(raw string) (Config, bool) {
	cfg, ok := catalog[Plan(strings.ToLower(strings.TrimSpace(raw)))]
	return cfg, ok
}

// Valid reports whether raw names a recognized plan.
func Valid(raw string) bool {
	_, ok := Lookup(raw)
	return ok
}

// Normalize returns the canonical lower-case plan name, or "" when invalid.
func Normalize(raw string) Plan {
	cfg, ok := Lookup(raw)
	if !ok {
		return ""
	}
	return cfg.Name
}

// Rank orders plans for comparisons; higher is better.
func Rank(p Plan) int {
	switch p {
	case PlanEnterprise:
		return 3
	case PlanPro:
		return 2
	case PlanBasic:
		return 1
	default:
		return 0
	}
}

// StripePriceRef returns the provider-side price reference for a plan.
// Configured per environment, e.g. STRIPE_PRICE_PRO=price_123.
func StripePriceRef(p Plan) string {
	return env.GetEnv("STRIPE_PRICE_"+strings.ToUpper(string(p)), "price_"+string(p))
}

// PaddlePlanRef returns the provider-side plan reference for a plan.
func PaddlePlanRef(p Plan) string {
	return env.GetEnv("PADDLE_PLAN_"+strings.ToUpper(string(p)), "plan_"+string(p))
}
