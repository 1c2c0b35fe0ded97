package limitless

import (
	"encoding/json"
	"testing"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

func TestToUnified(t *testing.T) {
	m := APIMarket{
		ID:       json.Number("42"),
		Title:    "Will Bitcoin close above 100k?",
		Prices:   []json.Number{"0.62", "0.38"},
		Category: "Crypto",
	}

	unified, err := m.ToUnified()
	if err != nil {
		t.Fatalf("ToUnified() error = %v", err)
	}
	if unified.MarketID != "42" {
		t.Errorf("MarketID = %q, want 42", unified.MarketID)
	}
	if unified.Platform != domain.PlatformLimitless {
		t.Errorf("Platform = %s, want limitless", unified.Platform)
	}
	if len(unified.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(unified.Outcomes))
	}
	if unified.Outcomes[0].Name != "Yes" || unified.Outcomes[1].Name != "No" {
		t.Errorf("default binary outcome names = %q/%q", unified.Outcomes[0].Name, unified.Outcomes[1].Name)
	}
	if unified.Outcomes[0].Price != 0.62 {
		t.Errorf("yes price = %v, want 0.62", unified.Outcomes[0].Price)
	}
	if unified.MarketType != domain.MarketTypeCrypto {
		t.Errorf("MarketType = %s, want crypto", unified.MarketType)
	}
}

func TestToUnifiedMissingPrices(t *testing.T) {
	m := APIMarket{
		ID:    json.Number("7"),
		Title: "Will it happen?",
	}
	unified, err := m.ToUnified()
	if err != nil {
		t.Fatalf("ToUnified() error = %v", err)
	}
	for i, o := range unified.Outcomes {
		if o.Price != 0.5 {
			t.Errorf("outcome %d price = %v, want 0.5 default", i, o.Price)
		}
	}
}

func TestToUnifiedMissingID(t *testing.T) {
	m := APIMarket{Title: "no id"}
	if _, err := m.ToUnified(); err == nil {
		t.Error("ToUnified() = nil error for missing id, want error")
	}
}
