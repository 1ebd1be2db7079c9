package store

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Pagination defaults
const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxOffset    = math.MaxInt32
)

// Listing sort orders
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortYearDesc   = "year_desc"
	SortMileageAsc = "mileage_asc"
)

var listingSorts = []string{SortNewest, SortOldest, SortPriceAsc, SortPriceDesc, SortYearDesc, SortMileageAsc}

// Vehicle attribute vocabularies
var (
	FuelTypes     = []string{"petrol", "diesel", "hybrid", "electric", "lpg", "other"}
	Transmissions = []string{"manual", "automatic"}
	BodyTypes     = []string{"sedan", "hatchback", "suv", "coupe", "convertible", "wagon", "van", "pickup", "other"}
)

// Contains returns true if value is one of values
func Contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// ListingFilter selects and orders listings. Zero values do not filter.
type ListingFilter struct {
	BrandID      uuid.UUID
	ModelID      uuid.UUID
	MinPrice     int64
	MaxPrice     int64
	MinYear      int
	MaxYear      int
	MaxMileage   int
	FuelType     string
	Transmission string
	BodyType     string
	Status       string
	Featured     *bool
	Query        string
	Sort         string
	Page         int
	Limit        int
}

// InquiryFilter selects inquiries, newest first
type InquiryFilter struct {
	Status string
	Query  string
	Page   int
	Limit  int
}

// FilterError reports an invalid query parameter
type FilterError struct {
	Parameter string
	Value     string
	Reason    string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid value '%s' for parameter %s: %s", e.Value, e.Parameter, e.Reason)
}

// ParseListingFilter parses a listing filter from URL query parameters.
//
// Supported parameters are brand_id, model_id, min_price, max_price, min_year, max_year,
// max_mileage, fuel_type, transmission, body_type, status, featured, q, sort, page and limit.
// Unknown parameters are ignored.
func ParseListingFilter(values url.Values) (ListingFilter, error) {
	f := ListingFilter{Sort: SortNewest}
	var err error

	parseUUID := func(key string, target *uuid.UUID) {
		if v := values.Get(key); v != "" && err == nil {
			id, e := uuid.Parse(v)
			if e != nil {
				err = &FilterError{key, v, "not a uuid"}
				return
			}
			*target = id
		}
	}
	parseInt := func(key string, target *int) {
		if v := values.Get(key); v != "" && err == nil {
			i, e := strconv.Atoi(v)
			if e != nil || i < 0 {
				err = &FilterError{key, v, "not a positive number"}
				return
			}
			*target = i
		}
	}
	parseInt64 := func(key string, target *int64) {
		if v := values.Get(key); v != "" && err == nil {
			i, e := strconv.ParseInt(v, 10, 64)
			if e != nil || i < 0 {
				err = &FilterError{key, v, "not a positive number"}
				return
			}
			*target = i
		}
	}
	parseEnum := func(key string, allowed []string, target *string) {
		if v := values.Get(key); v != "" && err == nil {
			v = strings.ToLower(v)
			if !Contains(allowed, v) {
				err = &FilterError{key, v, "must be one of " + strings.Join(allowed, ",")}
				return
			}
			*target = v
		}
	}

	parseUUID("brand_id", &f.BrandID)
	parseUUID("model_id", &f.ModelID)
	parseInt64("min_price", &f.MinPrice)
	parseInt64("max_price", &f.MaxPrice)
	parseInt("min_year", &f.MinYear)
	parseInt("max_year", &f.MaxYear)
	parseInt("max_mileage", &f.MaxMileage)
	parseEnum("fuel_type", FuelTypes, &f.FuelType)
	parseEnum("transmission", Transmissions, &f.Transmission)
	parseEnum("body_type", BodyTypes, &f.BodyType)
	parseEnum("status", ListingStatuses, &f.Status)
	parseEnum("sort", listingSorts, &f.Sort)
	if v := values.Get("featured"); v != "" && err == nil {
		b, e := strconv.ParseBool(v)
		if e != nil {
			err = &FilterError{"featured", v, "not a boolean"}
		} else {
			f.Featured = &b
		}
	}
	f.Query = strings.TrimSpace(values.Get("q"))
	if err == nil {
		f.Page, f.Limit, err = parsePagination(values)
	}
	if err != nil {
		return f, err
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return f, &FilterError{"min_price", strconv.FormatInt(f.MinPrice, 10), "larger than max_price"}
	}
	if f.MaxYear > 0 && f.MinYear > f.MaxYear {
		return f, &FilterError{"min_year", strconv.Itoa(f.MinYear), "larger than max_year"}
	}
	return f, nil
}

// ParseInquiryFilter parses an inquiry filter from URL query parameters status, q, page and limit.
func ParseInquiryFilter(values url.Values) (InquiryFilter, error) {
	f := InquiryFilter{Query: strings.TrimSpace(values.Get("q"))}
	if v := values.Get("status"); v != "" {
		if !Contains(InquiryStatuses, v) {
			return f, &FilterError{"status", v, "must be one of " + strings.Join(InquiryStatuses, ",")}
		}
		f.Status = v
	}
	var err error
	f.Page, f.Limit, err = parsePagination(values)
	return f, err
}

func parsePagination(values url.Values) (page, limit int, err error) {
	page, limit = 1, DefaultLimit
	if v := values.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, &FilterError{"page", v, "must be a number >= 1"}
		}
	}
	if v := values.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, &FilterError{"limit", v, fmt.Sprintf("must be a number between 1 and %d", MaxLimit)}
		}
	}
	if page-1 > MaxOffset/limit {
		return 0, 0, &FilterError{"page", values.Get("page"), "too large"}
	}
	return page, limit, nil
}

// Window returns offset and limit for a page, applying defaults to zero values
func Window(page, limit int) (offset, size int) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	if page-1 > MaxOffset/limit {
		page = MaxOffset/limit + 1
	}
	return (page - 1) * limit, limit
}

// Matches is the listing predicate. The relational and document stores express the
// same predicate in SQL and bson.
func (f ListingFilter) Matches(l *Listing) bool {
	if f.BrandID != uuid.Nil && l.BrandID != f.BrandID {
		return false
	}
	if f.ModelID != uuid.Nil && l.ModelID != f.ModelID {
		return false
	}
	if f.MinPrice > 0 && l.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && l.Price > f.MaxPrice {
		return false
	}
	if f.MinYear > 0 && l.Year < f.MinYear {
		return false
	}
	if f.MaxYear > 0 && l.Year > f.MaxYear {
		return false
	}
	if f.MaxMileage > 0 && l.Mileage > f.MaxMileage {
		return false
	}
	if f.FuelType != "" && l.FuelType != f.FuelType {
		return false
	}
	if f.Transmission != "" && l.Transmission != f.Transmission {
		return false
	}
	if f.BodyType != "" && l.BodyType != f.BodyType {
		return false
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Featured != nil && l.Featured != *f.Featured {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
	}
	return true
}

// Matches is the inquiry predicate
func (f InquiryFilter) Matches(i *Inquiry) bool {
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		return strings.Contains(strings.ToLower(i.Name), q) ||
			strings.Contains(strings.ToLower(i.Email), q) ||
			strings.Contains(strings.ToLower(i.Phone), q)
	}
	return true
}

// SortListings orders listings according to the sort key. Ties are broken by
// creation time (newest first) and then by id.
func SortListings(listings []Listing, sortKey string) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := &listings[i], &listings[j]
		switch sortKey {
		case SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		case SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortYearDesc:
			if a.Year != b.Year {
				return a.Year > b.Year
			}
		case SortMileageAsc:
			if a.Mileage != b.Mileage {
				return a.Mileage < b.Mileage
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
