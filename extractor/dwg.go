package extractor

import (
	"context"
	"time"

	"github.com/boqai/boq-server/models"
)

// DWGExtractor is the placeholder for real DWG parsing. It simulates
// time-consuming work and returns a fixed bill of quantities.
// TODO: replace with real DWG geometry takeoff once a parser is chosen.
type DWGExtractor struct {
	// Delay simulates parsing time. Tests shorten it.
	Delay time.Duration
}

// NewDWGExtractor creates the stub extractor with the default 2s delay.
func NewDWGExtractor() *DWGExtractor {
	return &DWGExtractor{Delay: 2 * time.Second}
}

// Extract sleeps for the configured delay and returns mock BoQ data.
func (e *DWGExtractor) Extract(ctx context.Context, path string) (*models.BoQ, error) {
	select {
	case <-time.After(e.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &models.BoQ{
		File: path,
		Items: []models.BoQItem{
			{ItemCode: "A001", Description: "Mock Item", Quantity: 1, Unit: "m"},
		},
	}, nil
}
