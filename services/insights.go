package services

import (
	"math"
	"strings"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes aggregate price statistics over the given captures,
// typically the trailing 24 hours fetched from the store.
func (s *InsightService) Generate(records []*models.RouteRecord) *models.AnalyticsReport {
	report := &models.AnalyticsReport{
		CapturesPerDistrict: make(map[string]int),
	}

	if len(records) == 0 {
		return report
	}

	report.TotalCaptures = len(records)
	report.EarliestCapture = records[0].CapturedAt
	report.LatestCapture = records[0].CapturedAt

	seenRoutes := make(map[string]struct{})
	var cabSum, bikeSum, deliverySum float64
	var cabCount, bikeCount, deliveryCount int

	for _, r := range records {
		seenRoutes[r.RouteID] = struct{}{}

		if r.CapturedAt.Before(report.EarliestCapture) {
			report.EarliestCapture = r.CapturedAt
		}
		if r.CapturedAt.After(report.LatestCapture) {
			report.LatestCapture = r.CapturedAt
		}

		if district := originDistrict(r.RouteID); district != "" {
			report.CapturesPerDistrict[district]++
		}

		if r.CabPriceNumber != nil {
			price := *r.CabPriceNumber
			cabSum += price
			cabCount++

			if report.MinCabPrice == 0 || price < report.MinCabPrice {
				report.MinCabPrice = price
			}
			if price > report.MaxCabPrice {
				report.MaxCabPrice = price
				report.MostExpensiveRoute = r
			}
		}
		if r.BikePriceNumber != nil {
			bikeSum += *r.BikePriceNumber
			bikeCount++
		}
		if r.BikeDeliveryNumber != nil {
			deliverySum += *r.BikeDeliveryNumber
			deliveryCount++
		}
	}

	report.CoveredRoutes = len(seenRoutes)
	if cabCount > 0 {
		report.AvgCabPrice = round2(cabSum / float64(cabCount))
	}
	if bikeCount > 0 {
		report.AvgBikePrice = round2(bikeSum / float64(bikeCount))
	}
	if deliveryCount > 0 {
		report.AvgBikeDelivery = round2(deliverySum / float64(deliveryCount))
	}

	return report
}

// Print logs the report in a readable summary form.
func (s *InsightService) Print(report *models.AnalyticsReport) {
	s.logger.Info("=== Price analytics ===")
	s.logger.Info("Captures: %d over %d routes", report.TotalCaptures, report.CoveredRoutes)

	if report.TotalCaptures == 0 {
		s.logger.Warn("No captures in the analytics window")
		return
	}

	s.logger.Info("Cab:          avg %.0f | min %.0f | max %.0f",
		report.AvgCabPrice, report.MinCabPrice, report.MaxCabPrice)
	s.logger.Info("Bike:         avg %.0f", report.AvgBikePrice)
	s.logger.Info("BikeDelivery: avg %.0f", report.AvgBikeDelivery)

	if report.MostExpensiveRoute != nil {
		s.logger.Info("Most expensive route: %s (%.0f)",
			report.MostExpensiveRoute.RouteID, report.MaxCabPrice)
	}
	s.logger.Info("Data span: %s → %s",
		report.EarliestCapture.Format("2006-01-02 15:04"),
		report.LatestCapture.Format("2006-01-02 15:04"))
}

// originDistrict extracts the origin district code from a route ID of
// the form "D03_N07__D12_N01".
func originDistrict(routeID string) string {
	origin, _, ok := strings.Cut(routeID, "__")
	if !ok {
		return ""
	}
	district, _, ok := strings.Cut(origin, "_")
	if !ok {
		return ""
	}
	return district
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
