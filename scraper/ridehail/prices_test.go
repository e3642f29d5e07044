package ridehail

import (
	"context"
	"testing"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

func testRoute(originID, originName, destID, destName string) *models.Route {
	return &models.Route{
		ID:          originID + "__" + destID,
		Origin:      models.Location{ID: originID, Name: originName},
		Destination: models.Location{ID: destID, Name: destName},
	}
}

func newTestScraper(tabs TabFactory, store *memStore) (*Scraper, *stubDriver) {
	cfg := testConfig()
	logger := utils.NewLogger()

	var driver *stubDriver
	if st, ok := tabs.(*stubTabs); ok {
		driver = st.driver
	}

	s := New(cfg, logger, DefaultSelectors(), Deps{
		Tabs:    tabs,
		Session: testSession(cfg, driver, logger),
		Store:   store,
	})
	return s, driver
}

func TestExtractPricesAllSlots(t *testing.T) {
	sel := DefaultSelectors()
	driver := newStubDriver("https://app.test/")
	driver.texts[sel.CabPrice] = "۲۵٬۰۰۰"
	driver.texts[sel.BikePrice] = "۱۵٬۰۰۰"
	driver.texts[sel.BikeDeliveryPrice] = "۱۰٬۰۰۰"

	s, _ := newTestScraper(&stubTabs{driver: driver}, newMemStore())
	route := testRoute("D01_N01", "ونک", "D02_N01", "تجریش")

	quote := s.extractPrices(context.Background(), driver, route)

	want := map[string]struct {
		slot   models.PriceValue
		number float64
	}{
		"cab":           {quote.Cab, 25000},
		"bike":          {quote.Bike, 15000},
		"bike-delivery": {quote.BikeDelivery, 10000},
	}
	for name, tt := range want {
		if tt.slot.Number == nil {
			t.Fatalf("%s slot: number is nil", name)
		}
		if *tt.slot.Number != tt.number {
			t.Errorf("%s slot: got %.0f, want %.0f", name, *tt.slot.Number, tt.number)
		}
		if tt.slot.Text == nil {
			t.Errorf("%s slot: raw text not kept", name)
		}
	}
}

func TestExtractPricesPartialFailureIsolated(t *testing.T) {
	sel := DefaultSelectors()
	driver := newStubDriver("https://app.test/")
	driver.texts[sel.CabPrice] = "۲۵٬۰۰۰"
	driver.texts[sel.BikeDeliveryPrice] = "۱۰٬۰۰۰"
	driver.failWait[sel.BikePrice] = true

	s, _ := newTestScraper(&stubTabs{driver: driver}, newMemStore())
	route := testRoute("D01_N01", "ونک", "D02_N01", "تجریش")

	quote := s.extractPrices(context.Background(), driver, route)

	if quote.Bike.Number != nil || quote.Bike.Text != nil {
		t.Error("bike slot should be nil after extraction failure")
	}
	if quote.Cab.Number == nil || *quote.Cab.Number != 25000 {
		t.Error("cab slot should survive the bike failure")
	}
	if quote.BikeDelivery.Number == nil || *quote.BikeDelivery.Number != 10000 {
		t.Error("bike-delivery slot should survive the bike failure")
	}
	if quote.Empty() {
		t.Error("quote with two slots must not be empty")
	}
}

func TestExtractPricesUnparseableTextIsNil(t *testing.T) {
	sel := DefaultSelectors()
	driver := newStubDriver("https://app.test/")
	driver.texts[sel.CabPrice] = "ناموجود"
	driver.texts[sel.BikePrice] = "۱۵٬۰۰۰"
	driver.texts[sel.BikeDeliveryPrice] = "۱۰٬۰۰۰"

	s, _ := newTestScraper(&stubTabs{driver: driver}, newMemStore())
	route := testRoute("D01_N01", "ونک", "D02_N01", "تجریش")

	quote := s.extractPrices(context.Background(), driver, route)

	if quote.Cab.Number != nil {
		t.Errorf("non-numeric cab text must yield nil, got %v", *quote.Cab.Number)
	}
	if quote.Bike.Number == nil {
		t.Error("bike slot should still be extracted")
	}
}
