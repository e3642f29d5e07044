package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
)

// CSVWriter dumps raw captured quotes to a CSV file as they arrive.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"route_id", "origin", "destination", "captured_at",
		"cab_text", "cab_number", "bike_text", "bike_number",
		"bike_delivery_text", "bike_delivery_number",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteQuote appends one captured quote to the file.
func (c *CSVWriter) WriteQuote(route *models.Route, quote *models.PriceQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := []string{
		route.ID,
		route.Origin.Name,
		route.Destination.Name,
		quote.CapturedAt.Format(time.RFC3339),
	}
	for _, slot := range []models.PriceValue{quote.Cab, quote.Bike, quote.BikeDelivery} {
		row = append(row, derefText(slot.Text), derefNumber(slot.Number))
	}

	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func derefText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
