package gateways

import (
	"context"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

// Selector routes a billing country to the first configured adapter in the
// ordered chain {primary, fallback, default}. The chain is evaluated
// functionally on every call; there is no hidden routing state.
type Selector struct {
	registry        *Registry
	mappings        map[string]models.CountryGatewayMapping
	defaultProvider string
	logger          *utils.Logger
}

func NewSelector(registry *Registry, mappings []models.CountryGatewayMapping, defaultProvider string) *Selector {
	byCountry := make(map[string]models.CountryGatewayMapping, len(mappings))
	for _, m := range mappings {
		byCountry[m.Country] = m
	}

	return &Selector{
		registry:        registry,
		mappings:        byCountry,
		defaultProvider: defaultProvider,
		logger:          utils.NewLogger("gateway-selector"),
	}
}

func (s *Selector) MappingForCountry(country string) (models.CountryGatewayMapping, bool) {
	m, ok := s.mappings[country]
	return m, ok
}

// ForCountry returns the adapter to charge a tenant in the given country,
// along with the country mapping that selected it. A mapped country with no
// configured primary falls back to the declared fallback, then to the
// global default; only when none of those is configured does payment
// creation fail with ErrNoGatewayAvailable.
func (s *Selector) ForCountry(ctx context.Context, country string) (Adapter, *models.CountryGatewayMapping, error) {
	mapping, ok := s.mappings[country]
	if !ok {
		return nil, nil, utils.ErrCountryNotMapped
	}

	if a, ok := s.registry.Get(mapping.PrimaryProvider); ok && a.IsConfigured() {
		return a, &mapping, nil
	}

	if mapping.FallbackProvider != "" {
		if a, ok := s.registry.Get(mapping.FallbackProvider); ok && a.IsConfigured() {
			s.logger.Warn(ctx, "primary gateway unconfigured, using fallback", map[string]interface{}{
				"country":  country,
				"primary":  mapping.PrimaryProvider,
				"fallback": mapping.FallbackProvider,
			})
			return a, &mapping, nil
		}
	}

	if s.defaultProvider != "" {
		if a, ok := s.registry.Get(s.defaultProvider); ok && a.IsConfigured() {
			s.logger.Warn(ctx, "no country gateway configured, using global default", map[string]interface{}{
				"country": country,
				"default": s.defaultProvider,
			})
			return a, &mapping, nil
		}
	}

	s.logger.Error(ctx, "no gateway available for country", map[string]interface{}{
		"country": country,
		"primary": mapping.PrimaryProvider,
	})
	return nil, &mapping, utils.ErrNoGatewayAvailable
}

// DefaultCountryMappings is the hardcoded routing table used when the
// config store is unreachable at startup, so billing never hard-fails
// purely because of a config-store outage.
func DefaultCountryMappings() []models.CountryGatewayMapping {
	return []models.CountryGatewayMapping{
		{Country: "united_states", PrimaryProvider: "stripe", Currency: "USD", TaxName: "sales_tax", TaxRate: 0},
		{Country: "germany", PrimaryProvider: "stripe", Currency: "EUR", TaxName: "VAT", TaxRate: 0.19},
		{Country: "united_kingdom", PrimaryProvider: "stripe", Currency: "GBP", TaxName: "VAT", TaxRate: 0.20},
		{Country: "india", PrimaryProvider: "razorpay", FallbackProvider: "stripe", Currency: "INR", TaxName: "GST", TaxRate: 0.18},
		{Country: "indonesia", PrimaryProvider: "xendit", FallbackProvider: "stripe", Currency: "IDR", TaxName: "PPN", TaxRate: 0.11},
		{Country: "philippines", PrimaryProvider: "xendit", FallbackProvider: "stripe", Currency: "PHP", TaxName: "VAT", TaxRate: 0.12},
		{Country: "singapore", PrimaryProvider: "stripe", FallbackProvider: "xendit", Currency: "SGD", TaxName: "GST", TaxRate: 0.09},
	}
}
