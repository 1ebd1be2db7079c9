// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package store defines the persistence contract of carlot.

A Store is implemented three times: in memory (package memory), on a document
database (package mongo) and on a relational database (package postgres). All
implementations pass the same conformance suite in package storetest.
*/
package store

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the requested object does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique property is already taken
	ErrConflict = errors.New("conflict")
	// ErrInUse is returned when an object cannot be deleted because others reference it
	ErrInUse = errors.New("in use")
	// ErrLimitReached is returned when a listing cannot take more images
	ErrLimitReached = errors.New("limit reached")
)

// Brand is a car manufacturer
type Brand struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   string    `json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Model is a car model of a brand
type Model struct {
	ID        uuid.UUID `json:"id"`
	BrandID   uuid.UUID `json:"brand_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Listing states
const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
)

// ListingStatuses are all valid listing states
var ListingStatuses = []string{StatusAvailable, StatusReserved, StatusSold}

// Listing is a vehicle offered for sale
type Listing struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	BrandID      uuid.UUID `json:"brand_id"`
	ModelID      uuid.UUID `json:"model_id"`
	Year         int       `json:"year"`
	Price        int64     `json:"price"`
	Mileage      int       `json:"mileage"`
	FuelType     string    `json:"fuel_type"`
	Transmission string    `json:"transmission"`
	BodyType     string    `json:"body_type"`
	Color        string    `json:"color"`
	Description  string    `json:"description"`
	Images       []string  `json:"images"`
	Status       string    `json:"status"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Inquiry states
const (
	InquiryNew       = "new"
	InquiryContacted = "contacted"
	InquiryClosed    = "closed"
)

// InquiryStatuses are all valid inquiry states
var InquiryStatuses = []string{InquiryNew, InquiryContacted, InquiryClosed}

// Inquiry is a "sell your car" request submitted from the storefront
type Inquiry struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Mileage     int       `json:"mileage"`
	AskingPrice int64     `json:"asking_price"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Admin is a back office user
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the storage abstraction used by the HTTP layer.
//
// Get, Update and Delete return ErrNotFound for unknown ids. Create and Update
// return ErrConflict if a unique property is taken. Deleting a brand or model which
// is still referenced returns ErrInUse.
type Store interface {
	ListBrands(ctx context.Context) ([]Brand, error)
	GetBrand(ctx context.Context, id uuid.UUID) (*Brand, error)
	CreateBrand(ctx context.Context, brand *Brand) error
	UpdateBrand(ctx context.Context, brand *Brand) error
	DeleteBrand(ctx context.Context, id uuid.UUID) error

	// ListModels lists the models of a brand, or all models for a zero brandID
	ListModels(ctx context.Context, brandID uuid.UUID) ([]Model, error)
	GetModel(ctx context.Context, id uuid.UUID) (*Model, error)
	CreateModel(ctx context.Context, model *Model) error
	UpdateModel(ctx context.Context, model *Model) error
	DeleteModel(ctx context.Context, id uuid.UUID) error

	// ListListings returns one page of listings and the total number of matches
	ListListings(ctx context.Context, filter ListingFilter) ([]Listing, int, error)
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	CreateListing(ctx context.Context, listing *Listing) error
	UpdateListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id uuid.UUID) error
	// AddListingImage appends key to the images of a listing in one step. It returns
	// ErrLimitReached when the listing has maxImages images already.
	AddListingImage(ctx context.Context, id uuid.UUID, key string, maxImages int) (*Listing, error)
	// RemoveListingImage removes key from the images of a listing in one step. It returns
	// ErrNotFound when the listing or the image does not exist.
	RemoveListingImage(ctx context.Context, id uuid.UUID, key string) (*Listing, error)
	// CountListings counts listings with the given status, or all listings for an empty status
	CountListings(ctx context.Context, status string) (int, error)

	CreateInquiry(ctx context.Context, inquiry *Inquiry) error
	GetInquiry(ctx context.Context, id uuid.UUID) (*Inquiry, error)
	ListInquiries(ctx context.Context, filter InquiryFilter) ([]Inquiry, int, error)
	UpdateInquiry(ctx context.Context, inquiry *Inquiry) error
	DeleteInquiry(ctx context.Context, id uuid.UUID) error
	CountInquiries(ctx context.Context, status string) (int, error)

	CreateAdmin(ctx context.Context, admin *Admin) error
	GetAdmin(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*Admin, error)

	Close() error
}

// Slugify turns a name into a lower case, dash separated identifier.
// "Mercedes-Benz  C Class" becomes "mercedes-benz-c-class".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Now returns the current time truncated to milliseconds, the resolution all stores can keep
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// PrepareCreate sets id and timestamps of a new object. A preset id is kept.
func PrepareCreate(id *uuid.UUID, createdAt, updatedAt *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	now := Now()
	*createdAt = now
	if updatedAt != nil {
		*updatedAt = now
	}
}
