package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core/schema"
)

const (
	refString = `{ "type" : "string" ,
		      "$id" : "http://some_host.com/string.json"}`
	refMaxLength = `{ "$id" : "http://some_host.com/maxlength.json",
	 		  "maxLength" : 5 }`

	topLevel = `
	{ "$id" : "http://some_host.com/top1.json",
	  "allOf" : [
		{ "$ref" : "http://some_host.com/string.json" },
		{ "$ref" : "http://some_host.com/maxlength.json" }
		]
	}`
)

func TestValidator_Refs(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel}, []string{refString, refMaxLength})
	require.NoError(t, err)

	assert.True(t, v.HasSchema("http://some_host.com/top1.json"))
	assert.False(t, v.HasSchema("http://some_host.com/unknown.json"))

	assert.NoError(t, v.ValidateString(`"short"`, "http://some_host.com/top1.json"))
	assert.Error(t, v.ValidateString(`"a very long string"`, "http://some_host.com/top1.json"))
	assert.Error(t, v.ValidateString(`"short"`, "http://some_host.com/unknown.json"))
}

func TestNewValidator_RequiresID(t *testing.T) {
	_, err := schema.NewValidator([]string{`{"type": "string"}`}, nil)
	assert.Error(t, err)
}

func newValidator(t *testing.T) *schema.Validator {
	v, err := schema.New()
	require.NoError(t, err)
	return v
}

func TestEmbeddedSchemas(t *testing.T) {
	v := newValidator(t)
	for _, id := range []string{
		schema.BrandID, schema.ModelID, schema.ListingID,
		schema.InquiryID, schema.InquiryUpdateID, schema.LoginID,
	} {
		assert.True(t, v.HasSchema(id), id)
	}
}

func TestListingSchema(t *testing.T) {
	v := newValidator(t)
	valid := `{
		"title": "Golf GTI",
		"brand_id": "7f6a1f3e-3c4e-4c2b-9d55-0d1c1f5b9a11",
		"model_id": "0b8e2e43-6a55-4a8f-8d0a-8d4c8b7e8f22",
		"year": 2019,
		"price": 21000,
		"mileage": 41000,
		"fuel_type": "petrol",
		"transmission": "manual",
		"body_type": "hatchback",
		"images": ["listings/a.jpg"],
		"featured": true
	}`
	assert.NoError(t, v.ValidateString(valid, schema.ListingID))

	err := v.ValidateString(`{
		"title": "Golf GTI",
		"brand_id": "not-a-uuid",
		"model_id": "0b8e2e43-6a55-4a8f-8d0a-8d4c8b7e8f22",
		"year": 1850,
		"price": -1,
		"mileage": 41000,
		"fuel_type": "steam",
		"transmission": "manual",
		"body_type": "hatchback"
	}`, schema.ListingID)
	require.Error(t, err)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, schema.ListingID, verr.SchemaID)
	assert.GreaterOrEqual(t, len(verr.Details), 4)

	assert.Error(t, v.ValidateString(`{"title": "no details"}`, schema.ListingID))
}

func TestInquirySchema(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.ValidateBytes([]byte(`{
		"name": "Anna",
		"email": "anna@example.com",
		"brand": "Opel",
		"model": "Astra",
		"year": 2012,
		"asking_price": 4500
	}`), schema.InquiryID))

	assert.Error(t, v.ValidateBytes([]byte(`{
		"name": "Anna",
		"email": "not an email",
		"brand": "Opel",
		"model": "Astra",
		"year": 2012
	}`), schema.InquiryID))

	var verr *schema.ValidationError
	assert.True(t, errors.As(v.ValidateBytes([]byte(`{not json`), schema.InquiryID), &verr))
}

func TestInquiryUpdateSchema(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.ValidateString(`{"status": "contacted"}`, schema.InquiryUpdateID))
	assert.NoError(t, v.ValidateString(`{"notes": "call back"}`, schema.InquiryUpdateID))
	assert.Error(t, v.ValidateString(`{}`, schema.InquiryUpdateID))
	assert.Error(t, v.ValidateString(`{"status": "lost"}`, schema.InquiryUpdateID))
	assert.Error(t, v.ValidateString(`{"email": "x@example.com"}`, schema.InquiryUpdateID))
}

func TestValidateStruct(t *testing.T) {
	v := newValidator(t)
	type brand struct {
		Name string `json:"name"`
	}
	assert.NoError(t, v.ValidateStruct(brand{Name: "Skoda"}, schema.BrandID))
	assert.Error(t, v.ValidateStruct(brand{}, schema.BrandID))
}
