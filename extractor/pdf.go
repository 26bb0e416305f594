package extractor

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/boqai/boq-server/models"
)

// PDFExtractor builds a bill of quantities from drawings exported as PDF.
// It extracts the text layer and picks up takeoff annotations of the form
// "A001 Concrete footing 12.5 m3". Drawings without any parseable line
// yield a single summary item so the caller still gets a well-formed
// document.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text-layer extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// itemPattern matches "<code> <description> <quantity> <unit>" lines.
var itemPattern = regexp.MustCompile(`^([A-Z]\d{3})\s+(.+?)\s+(\d+(?:\.\d+)?)\s+(m3|m2|m|kg|t|no|pcs)\s*$`)

// Extract reads the text layer of the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*models.BoQ, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("source file does not exist: %s", path)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	boq := &models.BoQ{File: path, Items: []models.BoQItem{}}

	totalPages := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}

		for _, line := range strings.Split(text, "\n") {
			item, ok := parseItemLine(line)
			if !ok {
				continue
			}
			boq.Items = append(boq.Items, item)
		}
	}

	if len(boq.Items) == 0 {
		boq.Items = append(boq.Items, models.BoQItem{
			ItemCode:    "P000",
			Description: fmt.Sprintf("Unclassified drawing content (%d pages)", totalPages),
			Quantity:    float64(totalPages),
			Unit:        "no",
		})
	}

	return boq, nil
}

func parseItemLine(line string) (models.BoQItem, bool) {
	matches := itemPattern.FindStringSubmatch(strings.TrimSpace(line))
	if matches == nil {
		return models.BoQItem{}, false
	}

	quantity, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return models.BoQItem{}, false
	}

	return models.BoQItem{
		ItemCode:    matches[1],
		Description: strings.TrimSpace(matches[2]),
		Quantity:    quantity,
		Unit:        matches[4],
	}, true
}
