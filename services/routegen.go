package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
)

// NeighborhoodCode builds the stable location code for the n-th
// neighborhood of a district, e.g. "D03_N07".
func NeighborhoodCode(districtID string, index int) string {
	return fmt.Sprintf("%s_N%02d", districtID, index+1)
}

// RouteID builds the deterministic route identifier from the two
// location codes.
func RouteID(originID, destinationID string) string {
	return originID + "__" + destinationID
}

// LoadDistricts reads the district/neighborhood catalog from a JSON
// file and assigns neighborhood codes.
func LoadDistricts(path string) ([]models.District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routegen: read catalog %q: %w", path, err)
	}

	var districts []models.District
	if err := json.Unmarshal(data, &districts); err != nil {
		return nil, fmt.Errorf("routegen: parse catalog: %w", err)
	}

	for di := range districts {
		for ni := range districts[di].Neighborhoods {
			n := &districts[di].Neighborhoods[ni]
			if n.ID == "" {
				n.ID = NeighborhoodCode(districts[di].ID, ni)
			}
			n.DistrictID = districts[di].ID
		}
	}
	return districts, nil
}

// Neighborhoods flattens the catalog into a single location list.
func Neighborhoods(districts []models.District) []models.Location {
	var out []models.Location
	for _, d := range districts {
		out = append(out, d.Neighborhoods...)
	}
	return out
}

// GenerateRoutes computes the Cartesian product of all locations minus
// the diagonal. For N locations the result has exactly N×(N−1) routes,
// so callers should stream large sets into the orchestrator rather than
// re-materializing derived structures per route.
func GenerateRoutes(locations []models.Location) []models.Route {
	routes := make([]models.Route, 0, len(locations)*(len(locations)-1))

	for _, origin := range locations {
		for _, dest := range locations {
			if origin.ID == dest.ID {
				continue
			}
			routes = append(routes, models.Route{
				ID:          RouteID(origin.ID, dest.ID),
				Origin:      origin,
				Destination: dest,
			})
		}
	}
	return routes
}

// LoadRoutes reads a pre-generated route list from a JSON file.
func LoadRoutes(path string) ([]models.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routegen: read routes %q: %w", path, err)
	}

	var routes []models.Route
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("routegen: parse routes: %w", err)
	}
	return routes, nil
}

// SaveRoutes writes a route list to a JSON file for later runs.
func SaveRoutes(path string, routes []models.Route) error {
	data, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return fmt.Errorf("routegen: marshal routes: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("routegen: write routes %q: %w", path, err)
	}
	return nil
}
