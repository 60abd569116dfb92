package gateways

import (
	"context"
	"errors"
	"testing"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

func testMappings() []models.CountryGatewayMapping {
	return []models.CountryGatewayMapping{
		{Country: "india", PrimaryProvider: "razorpay", FallbackProvider: "stripe", Currency: "INR", TaxName: "GST", TaxRate: 0.18},
		{Country: "indonesia", PrimaryProvider: "xendit", FallbackProvider: "stripe", Currency: "IDR", TaxName: "PPN", TaxRate: 0.11},
		{Country: "united_states", PrimaryProvider: "stripe", Currency: "USD", TaxName: "sales_tax", TaxRate: 0},
	}
}

func TestSelector_PrimaryConfigured(t *testing.T) {
	registry := NewRegistry(
		NewRazorpayAdapter("key", "secret", "whsec"),
		NewStripeAdapter("sk_test", "whsec", true),
	)
	selector := NewSelector(registry, testMappings(), "stripe")

	adapter, mapping, err := selector.ForCountry(context.Background(), "india")
	if err != nil {
		t.Fatalf("ForCountry() error = %v", err)
	}
	if adapter.Name() != "razorpay" {
		t.Errorf("adapter = %s, want razorpay", adapter.Name())
	}
	if mapping.Currency != "INR" {
		t.Errorf("currency = %s, want INR", mapping.Currency)
	}
}

func TestSelector_FallbackWhenPrimaryUnconfigured(t *testing.T) {
	registry := NewRegistry(
		NewRazorpayAdapter("", "", ""),
		NewStripeAdapter("sk_test", "whsec", true),
	)
	selector := NewSelector(registry, testMappings(), "stripe")

	adapter, _, err := selector.ForCountry(context.Background(), "india")
	if err != nil {
		t.Fatalf("ForCountry() error = %v", err)
	}
	if adapter.Name() != "stripe" {
		t.Errorf("adapter = %s, want stripe fallback", adapter.Name())
	}
}

func TestSelector_GlobalDefaultWhenChainUnconfigured(t *testing.T) {
	registry := NewRegistry(
		NewXenditAdapter("", ""),
		NewStripeAdapter("", "", true),
		NewMockAdapter(true, "secret"),
	)
	selector := NewSelector(registry, testMappings(), "mock")

	adapter, _, err := selector.ForCountry(context.Background(), "indonesia")
	if err != nil {
		t.Fatalf("ForCountry() error = %v", err)
	}
	if adapter.Name() != "mock" {
		t.Errorf("adapter = %s, want mock default", adapter.Name())
	}
}

func TestSelector_NoGatewayAvailable(t *testing.T) {
	registry := NewRegistry(
		NewStripeAdapter("", "", true),
	)
	selector := NewSelector(registry, testMappings(), "")

	_, _, err := selector.ForCountry(context.Background(), "united_states")
	if !errors.Is(err, utils.ErrNoGatewayAvailable) {
		t.Errorf("ForCountry() error = %v, want ErrNoGatewayAvailable", err)
	}
}

func TestSelector_UnmappedCountry(t *testing.T) {
	registry := NewRegistry(NewMockAdapter(true, "secret"))
	selector := NewSelector(registry, testMappings(), "mock")

	_, _, err := selector.ForCountry(context.Background(), "atlantis")
	if !errors.Is(err, utils.ErrCountryNotMapped) {
		t.Errorf("ForCountry() error = %v, want ErrCountryNotMapped", err)
	}
}

func TestDefaultCountryMappings_Complete(t *testing.T) {
	for _, m := range DefaultCountryMappings() {
		if m.Country == "" || m.PrimaryProvider == "" || m.Currency == "" {
			t.Errorf("incomplete mapping: %+v", m)
		}
		if m.TaxRate < 0 || m.TaxRate >= 1 {
			t.Errorf("tax rate out of range for %s: %f", m.Country, m.TaxRate)
		}
	}
}
