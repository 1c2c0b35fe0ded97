package polymarket

import (
	"testing"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

func TestToUnified(t *testing.T) {
	m := APIMarket{
		ID:            "12345",
		ConditionID:   "0xabc",
		Question:      "Will the Chiefs beat the Jaguars?",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.55","0.45"]`,
		Category:      "NFL",
		Volume:        "125000.5",
		Liquidity:     "8000",
	}

	unified, err := m.ToUnified()
	if err != nil {
		t.Fatalf("ToUnified() error = %v", err)
	}
	if unified.MarketID != "0xabc" {
		t.Errorf("MarketID = %q, want condition id", unified.MarketID)
	}
	if len(unified.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(unified.Outcomes))
	}
	if unified.Outcomes[0].Price != 0.55 {
		t.Errorf("yes price = %v, want 0.55", unified.Outcomes[0].Price)
	}
	if unified.Outcomes[0].AmericanOdds != "-122" {
		t.Errorf("yes american odds = %q, want -122", unified.Outcomes[0].AmericanOdds)
	}
	if unified.MarketType != domain.MarketTypeSports {
		t.Errorf("MarketType = %s, want sports", unified.MarketType)
	}
	if unified.TotalVolume != 125000.5 {
		t.Errorf("TotalVolume = %v, want 125000.5", unified.TotalVolume)
	}
	if !unified.IsActive {
		t.Error("IsActive = false, want true")
	}
	if unified.NormalizedTitle != "the chiefs beat the jaguars" {
		t.Errorf("NormalizedTitle = %q", unified.NormalizedTitle)
	}
}

func TestToUnifiedMalformed(t *testing.T) {
	tests := []struct {
		name   string
		market APIMarket
	}{
		{"missing question", APIMarket{ID: "1", Outcomes: `["Yes","No"]`, OutcomePrices: `["0.5","0.5"]`}},
		{"bad outcomes json", APIMarket{ID: "1", Question: "q", Outcomes: `not json`, OutcomePrices: `["0.5","0.5"]`}},
		{"length mismatch", APIMarket{ID: "1", Question: "q", Outcomes: `["Yes","No"]`, OutcomePrices: `["0.5"]`}},
		{"all prices out of range", APIMarket{ID: "1", Question: "q", Outcomes: `["Yes","No"]`, OutcomePrices: `["0","1"]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.market.ToUnified(); err == nil {
				t.Error("ToUnified() = nil error, want malformed record error")
			}
		})
	}
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`true`, true},
		{`"true"`, true},
		{`"TRUE"`, true},
		{`"1"`, true},
		{`false`, false},
		{`"false"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexBool
			if err := f.UnmarshalJSON([]byte(tt.in)); err != nil {
				t.Fatalf("UnmarshalJSON(%s) error = %v", tt.in, err)
			}
			if bool(f) != tt.want {
				t.Errorf("flexBool(%s) = %v, want %v", tt.in, bool(f), tt.want)
			}
		})
	}
}
