package services

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// SqFtPerSqM converts a per-square-foot price to per-square-metre.
const SqFtPerSqM = 10.764

var gbp = message.NewPrinter(language.BritishEnglish)

// fieldRule copies one source path into one record field.
type fieldRule struct {
	field string
	path  string
	apply func(payload map[string]any, rec *models.ListingRecord)
}

// bind assigns conv(value at path) to *dst(rec). Missing paths and failed
// conversions leave the field at its zero value.
func bind[T any](field, path string, conv func(any) (T, bool), dst func(*models.ListingRecord) *T) fieldRule {
	return fieldRule{
		field: field,
		path:  path,
		apply: func(payload map[string]any, rec *models.ListingRecord) {
			v, ok := utils.Lookup(payload, path)
			if !ok {
				return
			}
			if out, ok := conv(v); ok {
				*dst(rec) = out
			}
		},
	}
}

// ptr lifts a scalar converter into one that yields a pointer, so nullable
// record fields can share bind.
func ptr[T any](conv func(any) (T, bool)) func(any) (*T, bool) {
	return func(v any) (*T, bool) {
		out, ok := conv(v)
		if !ok {
			return nil, false
		}
		return &out, true
	}
}

var (
	str     = ptr(utils.AsString)
	integer = ptr(utils.AsInt)
	float   = ptr(utils.AsFloat)
	boolean = ptr(utils.AsBool)
)

// listingFields is the full source-path map for a listing payload.
var listingFields = []fieldRule{
	bind("id", "id", utils.AsString, func(r *models.ListingRecord) *string { return &r.ID }),
	bind("available", "status.published", boolean, func(r *models.ListingRecord) **bool { return &r.Available }),
	bind("archived", "status.archived", boolean, func(r *models.ListingRecord) **bool { return &r.Archived }),
	bind("phone", "contactInfo.telephoneNumbers.localNumber", str, func(r *models.ListingRecord) **string { return &r.Phone }),
	bind("bedrooms", "bedrooms", integer, func(r *models.ListingRecord) **int { return &r.Bedrooms }),
	bind("bathrooms", "bathrooms", integer, func(r *models.ListingRecord) **int { return &r.Bathrooms }),
	bind("type", "transactionType", str, func(r *models.ListingRecord) **string { return &r.Type }),
	bind("property_type", "propertySubType", str, func(r *models.ListingRecord) **string { return &r.PropertyType }),
	bind("tags", "tags", utils.AsStrings, func(r *models.ListingRecord) *[]string { return &r.Tags }),
	bind("description", "text.description", str, func(r *models.ListingRecord) **string { return &r.Description }),
	bind("title", "text.pageTitle", str, func(r *models.ListingRecord) **string { return &r.Title }),
	bind("subtitle", "text.propertyPhrase", str, func(r *models.ListingRecord) **string { return &r.Subtitle }),
	bind("price", "prices.primaryPrice", str, func(r *models.ListingRecord) **string { return &r.Price }),
	bind("price_per_sqmeter", "prices.pricePerSqFt", pricePerSqMeter, func(r *models.ListingRecord) **string { return &r.PricePerSqMeter }),
	bind("address", "address", utils.AsMap, func(r *models.ListingRecord) *map[string]any { return &r.Address }),
	bind("latitude", "location.latitude", float, func(r *models.ListingRecord) **float64 { return &r.Latitude }),
	bind("longitude", "location.longitude", float, func(r *models.ListingRecord) **float64 { return &r.Longitude }),
	bind("features", "keyFeatures", utils.AsStrings, func(r *models.ListingRecord) *[]string { return &r.Features }),
	bind("history", "listingHistory", utils.AsMap, func(r *models.ListingRecord) *map[string]any { return &r.History }),
	bind("photos", "images", mediaRefs, func(r *models.ListingRecord) *[]models.MediaRef { return &r.Photos }),
	bind("floorplans", "floorplans", mediaRefs, func(r *models.ListingRecord) *[]models.MediaRef { return &r.Floorplans }),
	bind("agency", "customer", agency, func(r *models.ListingRecord) **models.Agency { return &r.Agency }),
	bind("industryAffiliations", "industryAffiliations[*].name", utils.AsStrings, func(r *models.ListingRecord) *[]string { return &r.IndustryAffiliations }),
	bind("nearest_airports", "nearestAirports", places, func(r *models.ListingRecord) *[]models.Place { return &r.NearestAirports }),
	bind("nearest_stations", "nearestStations", places, func(r *models.ListingRecord) *[]models.Place { return &r.NearestStations }),
	bind("sizings", "sizings", sizings, func(r *models.ListingRecord) *[]models.Sizing { return &r.Sizings }),
	bind("brochures", "brochures", utils.AsSlice, func(r *models.ListingRecord) *[]any { return &r.Brochures }),
}

// Normalize maps a raw listing payload onto a ListingRecord. Absent source
// paths leave their field nil; it never fails. A nil payload yields nil.
func Normalize(payload map[string]any) *models.ListingRecord {
	if payload == nil {
		return nil
	}
	rec := &models.ListingRecord{}
	for _, f := range listingFields {
		f.apply(payload, rec)
	}
	return rec
}

// ConvertPricePerSqFt turns a "£300.00" style per-sq-ft price into a
// per-sq-metre string such as "£3,229.20".
func ConvertPricePerSqFt(raw string) (string, bool) {
	s := strings.NewReplacer("£", "", ",", "").Replace(strings.TrimSpace(raw))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	return gbp.Sprintf("£%.2f", v*SqFtPerSqM), true
}

func pricePerSqMeter(v any) (*string, bool) {
	s, ok := utils.AsString(v)
	if !ok {
		return nil, false
	}
	out, ok := ConvertPricePerSqFt(s)
	if !ok {
		return nil, false
	}
	return &out, true
}

func mediaRefs(v any) ([]models.MediaRef, bool) {
	arr, ok := utils.AsSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]models.MediaRef, 0, len(arr))
	for _, e := range arr {
		u, _ := utils.Lookup(e, "url")
		url, ok := utils.AsString(u)
		if !ok {
			continue
		}
		c, _ := utils.Lookup(e, "caption")
		caption, _ := str(c)
		out = append(out, models.MediaRef{URL: url, Caption: caption})
	}
	return out, true
}

func agency(v any) (*models.Agency, bool) {
	if _, ok := utils.AsMap(v); !ok {
		return nil, false
	}
	a := &models.Agency{}
	get := func(path string) any {
		x, _ := utils.Lookup(v, path)
		return x
	}
	a.ID, _ = str(get("branchId"))
	a.Branch, _ = str(get("branchName"))
	a.Company, _ = str(get("companyName"))
	a.Address, _ = str(get("displayAddress"))
	a.Commercial, _ = boolean(get("commercial"))
	a.BuildToRent, _ = boolean(get("buildToRent"))
	a.IsNew, _ = boolean(get("isNewHomeDeveloper"))
	return a, true
}

func places(v any) ([]models.Place, bool) {
	arr, ok := utils.AsSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]models.Place, 0, len(arr))
	for _, e := range arr {
		n, _ := utils.Lookup(e, "name")
		d, _ := utils.Lookup(e, "distance")
		var p models.Place
		p.Name, _ = str(n)
		p.Distance, _ = float(d)
		out = append(out, p)
	}
	return out, true
}

func sizings(v any) ([]models.Sizing, bool) {
	arr, ok := utils.AsSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]models.Sizing, 0, len(arr))
	for _, e := range arr {
		u, _ := utils.Lookup(e, "unit")
		lo, _ := utils.Lookup(e, "minimumSize")
		hi, _ := utils.Lookup(e, "maximumSize")
		var s models.Sizing
		s.Unit, _ = str(u)
		s.Min, _ = float(lo)
		s.Max, _ = float(hi)
		out = append(out, s)
	}
	return out, true
}
