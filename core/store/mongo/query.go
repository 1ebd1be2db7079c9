package mongo

import (
	"regexp"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/relabs-tech/carlot/core/store"
)

// contains matches a literal substring, case-insensitive
func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// between returns a range condition, or nil if neither bound is set
func between[T int | int64](lo, hi T) bson.M {
	if lo <= 0 && hi <= 0 {
		return nil
	}
	condition := bson.M{}
	if lo > 0 {
		condition["$gte"] = lo
	}
	if hi > 0 {
		condition["$lte"] = hi
	}
	return condition
}

// listingQuery translates a filter into a bson query
func listingQuery(f store.ListingFilter) bson.M {
	query := bson.M{}
	if f.BrandID != uuid.Nil {
		query["brand_id"] = f.BrandID.String()
	}
	if f.ModelID != uuid.Nil {
		query["model_id"] = f.ModelID.String()
	}
	if c := between(f.MinPrice, f.MaxPrice); c != nil {
		query["price"] = c
	}
	if c := between(f.MinYear, f.MaxYear); c != nil {
		query["year"] = c
	}
	if f.MaxMileage > 0 {
		query["mileage"] = bson.M{"$lte": f.MaxMileage}
	}
	if f.FuelType != "" {
		query["fuel_type"] = f.FuelType
	}
	if f.Transmission != "" {
		query["transmission"] = f.Transmission
	}
	if f.BodyType != "" {
		query["body_type"] = f.BodyType
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Featured != nil {
		query["featured"] = *f.Featured
	}
	if f.Query != "" {
		query["$or"] = bson.A{
			bson.M{"title": contains(f.Query)},
			bson.M{"description": contains(f.Query)},
		}
	}
	return query
}

// listingSort returns the sort document for a sort key. Ties go to the newest listing, then the id.
func listingSort(key string) bson.D {
	newest := bson.E{Key: "created_at", Value: -1}
	id := bson.E{Key: "_id", Value: 1}
	switch key {
	case store.SortOldest:
		return bson.D{{Key: "created_at", Value: 1}, id}
	case store.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, newest, id}
	case store.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, newest, id}
	case store.SortYearDesc:
		return bson.D{{Key: "year", Value: -1}, newest, id}
	case store.SortMileageAsc:
		return bson.D{{Key: "mileage", Value: 1}, newest, id}
	}
	return bson.D{newest, id}
}

// inquiryQuery translates an inquiry filter into a bson query
func inquiryQuery(f store.InquiryFilter) bson.M {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Query != "" {
		query["$or"] = bson.A{
			bson.M{"name": contains(f.Query)},
			bson.M{"email": contains(f.Query)},
			bson.M{"phone": contains(f.Query)},
		}
	}
	return query
}
