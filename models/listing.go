package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ListingRecord is the normalized form of one portal listing. Pointer and
// slice fields are nil when the source payload did not carry the value.
type ListingRecord struct {
	ID              string   `json:"id"`
	Available       *bool    `json:"available"`
	Archived        *bool    `json:"archived"`
	Phone           *string  `json:"phone"`
	Bedrooms        *int     `json:"bedrooms"`
	Bathrooms       *int     `json:"bathrooms"`
	Type            *string  `json:"type"`
	PropertyType    *string  `json:"property_type"`
	Tags            []string `json:"tags"`
	Description     *string  `json:"description"`
	Title           *string  `json:"title"`
	Subtitle        *string  `json:"subtitle"`
	Price           *string  `json:"price"`
	PricePerSqMeter *string  `json:"price_per_sqmeter"`

	Address   map[string]any `json:"address"`
	Latitude  *float64       `json:"latitude"`
	Longitude *float64       `json:"longitude"`

	Features []string       `json:"features"`
	History  map[string]any `json:"history"`

	Photos     []MediaRef `json:"photos"`
	Floorplans []MediaRef `json:"floorplans"`

	Agency               *Agency  `json:"agency"`
	IndustryAffiliations []string `json:"industryAffiliations"`
	NearestAirports      []Place  `json:"nearest_airports"`
	NearestStations      []Place  `json:"nearest_stations"`
	Sizings              []Sizing `json:"sizings"`
	Brochures            []any    `json:"brochures"`
}

// DisplayAddress returns address.displayAddress or "".
func (r *ListingRecord) DisplayAddress() string {
	if r == nil || r.Address == nil {
		return ""
	}
	s, _ := r.Address["displayAddress"].(string)
	return s
}

// MediaURLs lists photo URLs followed by floorplan URLs when withFloorplans
// is set.
func (r *ListingRecord) MediaURLs(withFloorplans bool) []string {
	urls := make([]string, 0, len(r.Photos)+len(r.Floorplans))
	for _, p := range r.Photos {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	if withFloorplans {
		for _, p := range r.Floorplans {
			if p.URL != "" {
				urls = append(urls, p.URL)
			}
		}
	}
	return urls
}

type MediaRef struct {
	URL     string  `json:"url"`
	Caption *string `json:"caption"`
}

type Agency struct {
	ID          *string `json:"id"`
	Branch      *string `json:"branch"`
	Company     *string `json:"company"`
	Address     *string `json:"address"`
	Commercial  *bool   `json:"commercial"`
	BuildToRent *bool   `json:"buildToRent"`
	IsNew       *bool   `json:"isNew"`
}

type Place struct {
	Name     *string  `json:"name"`
	Distance *float64 `json:"distance"`
}

type Sizing struct {
	Unit *string  `json:"unit"`
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
}

// ListingSummary is one entry of a search results page. Only the ID is
// needed downstream; the remaining fields are kept for logging.
type ListingSummary struct {
	ID             FlexibleID `json:"id"`
	DisplayAddress string     `json:"displayAddress"`
	PropertyURL    string     `json:"propertyUrl"`
	Bedrooms       int        `json:"bedrooms"`
	Summary        string     `json:"summary"`
}

// FlexibleID accepts both numeric and string JSON ids.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string { return string(f) }

// StoredListing is what the store hands back from a draw.
type StoredListing struct {
	Record *ListingRecord
	Images [][]byte
	Plot   []byte
	Used   bool
}

// InsightReport summarises the listings gathered in one run.
type InsightReport struct {
	TotalListings     int
	WithPricePerSqM   int
	WithPhone         int
	AverageBedrooms   float64
	TotalPhotos       int
	MostExpensive     *ListingRecord
	MostExpensiveGBP  float64
	ByPropertyType    map[string]int
	ByTransactionType map[string]int
}
