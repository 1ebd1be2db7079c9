package mongo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/relabs-tech/carlot/core/store"
)

func TestListingQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, listingQuery(store.ListingFilter{}))

	brandID := uuid.New()
	no := false
	query := listingQuery(store.ListingFilter{
		BrandID:    brandID,
		MinPrice:   5000,
		MaxYear:    2020,
		MaxMileage: 80000,
		FuelType:   "diesel",
		Featured:   &no,
		Query:      "c++ (new)",
	})
	assert.Equal(t, bson.M{
		"brand_id":  brandID.String(),
		"price":     bson.M{"$gte": int64(5000)},
		"year":      bson.M{"$lte": 2020},
		"mileage":   bson.M{"$lte": 80000},
		"fuel_type": "diesel",
		"featured":  false,
		"$or": bson.A{
			bson.M{"title": primitive.Regex{Pattern: `c\+\+ \(new\)`, Options: "i"}},
			bson.M{"description": primitive.Regex{Pattern: `c\+\+ \(new\)`, Options: "i"}},
		},
	}, query)
}

func TestListingSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}, listingSort(""))
	assert.Equal(t, listingSort(store.SortNewest), listingSort("unknown"))
	assert.Equal(t, bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}, listingSort(store.SortOldest))
	assert.Equal(t, bson.D{
		{Key: "price", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	}, listingSort(store.SortPriceDesc))
}

func TestInquiryQuery(t *testing.T) {
	query := inquiryQuery(store.InquiryFilter{Status: store.InquiryNew, Query: "a.b"})
	assert.Equal(t, store.InquiryNew, query["status"])
	or, ok := query["$or"].(bson.A)
	assert.True(t, ok)
	assert.Len(t, or, 3)
	assert.Equal(t, bson.M{"email": primitive.Regex{Pattern: `a\.b`, Options: "i"}}, or[1])
}
