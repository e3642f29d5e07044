package ridehail

import (
	"context"
	"fmt"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/services"
)

// extractPrices reads the three service-type price displays. Each slot
// is isolated: a failed extraction leaves that slot nil and the other
// two are still attempted. The returned quote itself never fails.
func (s *Scraper) extractPrices(ctx context.Context, d Driver, route *models.Route) *models.PriceQuote {
	quote := &models.PriceQuote{CapturedAt: time.Now().UTC()}

	// Cab is the default-selected tab, no tab click needed.
	quote.Cab = s.readPrice(ctx, d, "", s.selectors.CabPrice, "cab", route)
	quote.Bike = s.readPrice(ctx, d, s.selectors.BikeTab, s.selectors.BikePrice, "bike", route)
	quote.BikeDelivery = s.readPrice(ctx, d, s.selectors.BikeDeliveryTab, s.selectors.BikeDeliveryPrice, "bike-delivery", route)

	return quote
}

// readPrice optionally clicks a service tab, then waits for and parses
// the price element. Failures are contained to the slot.
func (s *Scraper) readPrice(ctx context.Context, d Driver, tabSelector, priceSelector, service string, route *models.Route) models.PriceValue {
	value, err := func() (models.PriceValue, error) {
		if tabSelector != "" {
			if err := d.Click(ctx, tabSelector); err != nil {
				return models.PriceValue{}, fmt.Errorf("%w: %s tab: %v", ErrPriceExtraction, service, err)
			}
		}

		raw, err := d.Text(ctx, priceSelector)
		if err != nil {
			return models.PriceValue{}, fmt.Errorf("%w: %s price element: %v", ErrPriceExtraction, service, err)
		}

		text := services.NormalizeText(raw)
		number := services.ParsePrice(text)
		if number == nil {
			return models.PriceValue{}, fmt.Errorf("%w: %s price text %q not numeric", ErrPriceExtraction, service, text)
		}

		return models.PriceValue{Text: &text, Number: number}, nil
	}()

	if err != nil {
		s.logger.Warn("[prices] %s → %s: %v", route.Origin.Name, route.Destination.Name, err)
		return models.PriceValue{}
	}
	return value
}
