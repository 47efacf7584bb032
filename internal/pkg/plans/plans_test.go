package plans

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		in    string
		want  Plan
		valid bool
	}{
		{in: "basic", want: PlanBasic, valid: true},
		{in: "PRO", want: PlanPro, valid: true},
		{in: " enterprise ", want: PlanEnterprise, valid: true},
		{in: "gold", valid: false},
		{in: "", valid: false},
	}

	for _, tt := range tests {
		cfg, ok := Lookup(tt.in)
		if ok != tt.valid {
			t.Fatalf("Lookup(%q) valid = %v, want %v", tt.in, ok, tt.valid)
		}
		if ok && cfg.Name != tt.want {
			t.Fatalf("Lookup(%q) = %q, want %q", tt.in, cfg.Name, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	if Rank(PlanBasic) >= Rank(PlanPro) {
		t.Fatalf("expected pro to outrank basic")
	}
	if Rank(PlanPro) >= Rank(PlanEnterprise) {
		t.Fatalf("expected enterprise to outrank pro")
	}
	if Rank(Plan("unknown")) != 0 {
		t.Fatalf("expected unknown plans to rank 0")
	}
}

func TestCatalogPrices(t *testing.T) {
	for _, tt := range []struct {
		plan  Plan
		price float64
	}{
		{PlanBasic, 15},
		{PlanPro, 29},
		{PlanEnterprise, 39},
	} {
		cfg, ok := Lookup(string(tt.plan))
		if !ok {
			t.Fatalf("plan %q missing from catalog", tt.plan)
		}
		if cfg.Price != tt.price {
			t.Fatalf("plan %q price = %v, want %v", tt.plan, cfg.Price, tt.price)
		}
		if cfg.Currency != "EUR" {
			t.Fatalf("plan %q currency = %q, want EUR", tt.plan, cfg.Currency)
		}
	}
}
