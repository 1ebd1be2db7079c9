package store

import (
	"errors"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingFilter(t *testing.T) {
	brandID := uuid.New()
	values := url.Values{}
	values.Set("brand_id", brandID.String())
	values.Set("min_price", "1000")
	values.Set("max_price", "20000")
	values.Set("fuel_type", "Diesel")
	values.Set("featured", "true")
	values.Set("q", "  golf ")
	values.Set("sort", "price_desc")
	values.Set("page", "3")
	values.Set("limit", "10")

	f, err := ParseListingFilter(values)
	require.NoError(t, err)
	assert.Equal(t, brandID, f.BrandID)
	assert.Equal(t, int64(1000), f.MinPrice)
	assert.Equal(t, int64(20000), f.MaxPrice)
	assert.Equal(t, "diesel", f.FuelType)
	require.NotNil(t, f.Featured)
	assert.True(t, *f.Featured)
	assert.Equal(t, "golf", f.Query)
	assert.Equal(t, SortPriceDesc, f.Sort)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 10, f.Limit)
}

func TestParseListingFilter_Defaults(t *testing.T) {
	f, err := ParseListingFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Nil(t, f.Featured)
}

func TestParseListingFilter_Invalid(t *testing.T) {
	cases := map[string]string{
		"brand_id":     "nope",
		"min_price":    "-1",
		"max_year":     "abc",
		"fuel_type":    "steam",
		"status":       "stolen",
		"featured":     "maybe",
		"sort":         "random",
		"page":         "0",
		"limit":        "101",
		"transmission": "cvt",
	}
	for key, value := range cases {
		values := url.Values{}
		values.Set(key, value)
		_, err := ParseListingFilter(values)
		var filterErr *FilterError
		if assert.Error(t, err, key) {
			assert.True(t, errors.As(err, &filterErr), key)
			assert.Equal(t, key, filterErr.Parameter)
		}
	}

	values := url.Values{"min_year": {"2020"}, "max_year": {"2010"}}
	_, err := ParseListingFilter(values)
	assert.Error(t, err)
}

func TestListingFilter_Matches(t *testing.T) {
	brandID := uuid.New()
	l := &Listing{
		Title:        "VW Golf GTI",
		Description:  "One owner, full service history",
		BrandID:      brandID,
		Year:         2018,
		Price:        18500,
		Mileage:      64000,
		FuelType:     "petrol",
		Transmission: "manual",
		BodyType:     "hatchback",
		Status:       StatusAvailable,
	}
	yes, no := true, false

	assert.True(t, ListingFilter{}.Matches(l))
	assert.True(t, ListingFilter{BrandID: brandID, MinPrice: 18000, MaxPrice: 19000}.Matches(l))
	assert.False(t, ListingFilter{BrandID: uuid.New()}.Matches(l))
	assert.False(t, ListingFilter{MaxPrice: 18000}.Matches(l))
	assert.False(t, ListingFilter{MinYear: 2019}.Matches(l))
	assert.True(t, ListingFilter{MaxYear: 2018}.Matches(l))
	assert.False(t, ListingFilter{MaxMileage: 50000}.Matches(l))
	assert.False(t, ListingFilter{FuelType: "diesel"}.Matches(l))
	assert.True(t, ListingFilter{Query: "gti"}.Matches(l))
	assert.True(t, ListingFilter{Query: "SERVICE"}.Matches(l))
	assert.False(t, ListingFilter{Query: "tesla"}.Matches(l))
	assert.True(t, ListingFilter{Featured: &no}.Matches(l))
	assert.False(t, ListingFilter{Featured: &yes}.Matches(l))
	assert.False(t, ListingFilter{Status: StatusSold}.Matches(l))
}

func TestSortListings(t *testing.T) {
	now := time.Now()
	listings := []Listing{
		{ID: uuid.New(), Price: 300, Year: 2010, Mileage: 10, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: uuid.New(), Price: 100, Year: 2020, Mileage: 30, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: uuid.New(), Price: 200, Year: 2015, Mileage: 20, CreatedAt: now.Add(-2 * time.Hour)},
	}
	prices := func() []int64 {
		var p []int64
		for _, l := range listings {
			p = append(p, l.Price)
		}
		return p
	}

	SortListings(listings, SortNewest)
	assert.Equal(t, []int64{100, 200, 300}, prices())
	SortListings(listings, SortOldest)
	assert.Equal(t, []int64{300, 200, 100}, prices())
	SortListings(listings, SortPriceDesc)
	assert.Equal(t, []int64{300, 200, 100}, prices())
	SortListings(listings, SortYearDesc)
	assert.Equal(t, []int64{100, 200, 300}, prices())
	SortListings(listings, SortMileageAsc)
	assert.Equal(t, []int64{300, 200, 100}, prices())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "mercedes-benz-c-class", Slugify("Mercedes-Benz  C Class"))
	assert.Equal(t, "bmw", Slugify("  BMW! "))
	assert.Equal(t, "", Slugify("!!"))
}

func TestWindow(t *testing.T) {
	offset, size := Window(3, 10)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, size)
	offset, size = Window(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultLimit, size)
	offset, _ = Window(math.MaxInt, MaxLimit)
	assert.True(t, offset >= 0 && offset <= MaxOffset, offset)
}

func TestParsePagination_HugePage(t *testing.T) {
	for _, page := range []string{"9223372036854775807", "4611686018427387904", "21474838"} {
		_, err := ParseListingFilter(url.Values{"page": {page}, "limit": {"100"}})
		var filterErr *FilterError
		if assert.Error(t, err, page) {
			assert.True(t, errors.As(err, &filterErr), page)
			assert.Equal(t, "page", filterErr.Parameter)
		}
		_, err = ParseInquiryFilter(url.Values{"page": {page}, "limit": {"100"}})
		assert.Error(t, err, page)
	}

	f, err := ParseListingFilter(url.Values{"page": {"21474837"}, "limit": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, 21474837, f.Page)
}
