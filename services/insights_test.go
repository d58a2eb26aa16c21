package services

import (
	"bytes"
	"strings"
	"testing"

	"rightmove-scraper/models"
)

func intp(n int) *int { return &n }

func sampleRecords() []*models.ListingRecord {
	return []*models.ListingRecord{
		{ID: "1", Title: strp("Villa A"), Price: strp("£950,000"), PropertyType: strp("Detached"), Type: strp("BUY"), Bedrooms: intp(5), Phone: strp("0113"), Photos: make([]models.MediaRef, 3)},
		{ID: "2", Title: strp("Flat B"), Price: strp("£180,000"), PropertyType: strp("Flat"), Type: strp("BUY"), Bedrooms: intp(1), PricePerSqMeter: strp("£4,000.00")},
		{ID: "3", Title: strp("Flat C"), Price: strp("POA"), PropertyType: strp("Flat"), Type: strp("BUY"), Photos: make([]models.MediaRef, 1)},
		{ID: "4", Title: strp("Cottage D"), Price: strp("£1,250,000"), PropertyType: strp("Cottage"), Type: strp("BUY"), Bedrooms: intp(3)},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRecords())
	if r.TotalListings != 4 {
		t.Errorf("TotalListings: got %d, want 4", r.TotalListings)
	}
	if r.WithPhone != 1 || r.WithPricePerSqM != 1 {
		t.Errorf("WithPhone/WithPricePerSqM: got %d/%d, want 1/1", r.WithPhone, r.WithPricePerSqM)
	}
	if r.TotalPhotos != 4 {
		t.Errorf("TotalPhotos: got %d, want 4", r.TotalPhotos)
	}
}

func TestInsightAverageBedrooms(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRecords())
	if r.AverageBedrooms != 3 {
		t.Errorf("AverageBedrooms: got %.2f, want 3", r.AverageBedrooms)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRecords())
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.ID != "4" {
		t.Errorf("MostExpensive: got %q, want %q", r.MostExpensive.ID, "4")
	}
	if r.MostExpensiveGBP != 1250000 {
		t.Errorf("MostExpensiveGBP: got %.2f, want 1250000", r.MostExpensiveGBP)
	}
}

func TestInsightTypeGrouping(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleRecords())
	if r.ByPropertyType["Flat"] != 2 {
		t.Errorf("Flat count: got %d, want 2", r.ByPropertyType["Flat"])
	}
	if r.ByTransactionType["BUY"] != 4 {
		t.Errorf("BUY count: got %d, want 4", r.ByTransactionType["BUY"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleRecords()))

	out := buf.String()
	for _, want := range []string{"Cottage D", "£1,250,000", "Detached"} {
		if !strings.Contains(out, want) {
			t.Errorf("Print output missing %q", want)
		}
	}
}
