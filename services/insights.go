package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.ListingRecord) *models.InsightReport {
	report := &models.InsightReport{
		ByPropertyType:    make(map[string]int),
		ByTransactionType: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var bedrooms, withBedrooms int
	for _, l := range listings {
		if l.PricePerSqMeter != nil {
			report.WithPricePerSqM++
		}
		if l.Phone != nil && *l.Phone != "" {
			report.WithPhone++
		}
		if l.Bedrooms != nil {
			bedrooms += *l.Bedrooms
			withBedrooms++
		}
		report.TotalPhotos += len(l.Photos)

		if l.PropertyType != nil && *l.PropertyType != "" {
			report.ByPropertyType[*l.PropertyType]++
		}
		if l.Type != nil && *l.Type != "" {
			report.ByTransactionType[*l.Type]++
		}

		if l.Price != nil {
			if p := parsePrice(*l.Price); p > report.MostExpensiveGBP {
				report.MostExpensiveGBP = p
				report.MostExpensive = l
			}
		}
	}

	if withBedrooms > 0 {
		report.AverageBedrooms = round2(float64(bedrooms) / float64(withBedrooms))
	}

	return report
}

// Print writes the report to w.
func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 RIGHTMOVE SCRAPE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings scraped       : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  With price per m²      : \033[1m%d\033[0m\n", r.WithPricePerSqM)
	fmt.Fprintf(w, "  With phone number      : \033[1m%d\033[0m\n", r.WithPhone)
	fmt.Fprintf(w, "  Photos referenced      : \033[1m%d\033[0m\n", r.TotalPhotos)
	if r.AverageBedrooms > 0 {
		fmt.Fprintf(w, "  Average bedrooms       : \033[1m%.2f\033[0m\n", r.AverageBedrooms)
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		if r.MostExpensive.Title != nil {
			fmt.Fprintf(w, "  %s\n", truncate(*r.MostExpensive.Title, 50))
		}
		fmt.Fprintf(w, "  Address : %s\n", r.MostExpensive.DisplayAddress())
		fmt.Fprintf(w, "  Price   : \033[1;31m%s\033[0m\n", *r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	printCounts(w, "Listings by Property Type", thin, r.ByPropertyType)
	printCounts(w, "Listings by Transaction Type", thin, r.ByTransactionType)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(w io.Writer, title, thin string, counts map[string]int) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type keyCount struct {
		key   string
		count int
	}
	var rows []keyCount
	for k, n := range counts {
		rows = append(rows, keyCount{k, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})
	for _, kc := range rows {
		bar := strings.Repeat("█", kc.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(kc.key, 28), bar, kc.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
