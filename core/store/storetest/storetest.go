/*
Package storetest is the conformance suite for store.Store implementations.

Every implementation runs it from its own tests:

	func TestStore(t *testing.T) {
		storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
	}

The factory is called once per subtest and must return an empty store.
*/
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core/store"
)

// Factory returns a new, empty store
type Factory func(t *testing.T) store.Store

// Run runs all conformance tests against stores created by factory
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		test func(t *testing.T, s store.Store)
	}{
		{"Brands", testBrands},
		{"Models", testModels},
		{"Listings", testListings},
		{"ListingFilters", testListingFilters},
		{"ListingPagination", testListingPagination},
		{"ListingImages", testListingImages},
		{"References", testReferences},
		{"Inquiries", testInquiries},
		{"Admins", testAdmins},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			tc.test(t, s)
		})
	}
}

// Fixture is a brand with one model
type Fixture struct {
	Brand store.Brand
	Model store.Model
}

// NewFixture creates a brand and a model
func NewFixture(t *testing.T, s store.Store, brandName, modelName string) Fixture {
	ctx := context.Background()
	f := Fixture{
		Brand: store.Brand{Name: brandName},
	}
	require.NoError(t, s.CreateBrand(ctx, &f.Brand))
	f.Model = store.Model{BrandID: f.Brand.ID, Name: modelName}
	require.NoError(t, s.CreateModel(ctx, &f.Model))
	return f
}

// NewListing returns a valid listing for the fixture, not yet stored
func (f Fixture) NewListing(title string, price int64, year int) store.Listing {
	return store.Listing{
		Title:        title,
		BrandID:      f.Brand.ID,
		ModelID:      f.Model.ID,
		Year:         year,
		Price:        price,
		Mileage:      50000,
		FuelType:     "petrol",
		Transmission: "manual",
		BodyType:     "hatchback",
		Color:        "blue",
		Status:       store.StatusAvailable,
		Images:       []string{},
	}
}

func testBrands(t *testing.T, s store.Store) {
	ctx := context.Background()

	vw := store.Brand{Name: "Volkswagen", LogoURL: "https://example.com/vw.png"}
	require.NoError(t, s.CreateBrand(ctx, &vw))
	assert.NotEqual(t, uuid.Nil, vw.ID)
	assert.Equal(t, "volkswagen", vw.Slug)
	assert.False(t, vw.CreatedAt.IsZero())

	audi := store.Brand{Name: "Audi"}
	require.NoError(t, s.CreateBrand(ctx, &audi))

	err := s.CreateBrand(ctx, &store.Brand{Name: "volkswagen"})
	assert.ErrorIs(t, err, store.ErrConflict)

	brands, err := s.ListBrands(ctx)
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "Audi", brands[0].Name)
	assert.Equal(t, "Volkswagen", brands[1].Name)

	read, err := s.GetBrand(ctx, vw.ID)
	require.NoError(t, err)
	assert.Equal(t, vw.Name, read.Name)
	assert.Equal(t, vw.LogoURL, read.LogoURL)
	assert.True(t, vw.CreatedAt.Equal(read.CreatedAt), "created_at %v != %v", vw.CreatedAt, read.CreatedAt)

	time.Sleep(5 * time.Millisecond)
	update := store.Brand{ID: vw.ID, Name: "VW"}
	require.NoError(t, s.UpdateBrand(ctx, &update))
	read, err = s.GetBrand(ctx, vw.ID)
	require.NoError(t, err)
	assert.Equal(t, "VW", read.Name)
	assert.Equal(t, "vw", read.Slug)
	assert.True(t, vw.CreatedAt.Equal(read.CreatedAt))
	assert.True(t, read.UpdatedAt.After(vw.UpdatedAt))

	err = s.UpdateBrand(ctx, &store.Brand{ID: vw.ID, Name: "AUDI"})
	assert.ErrorIs(t, err, store.ErrConflict)
	err = s.UpdateBrand(ctx, &store.Brand{ID: uuid.New(), Name: "Nobody"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteBrand(ctx, audi.ID))
	_, err = s.GetBrand(ctx, audi.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBrand(ctx, audi.ID), store.ErrNotFound)
}

func testModels(t *testing.T, s store.Store) {
	ctx := context.Background()
	vw := NewFixture(t, s, "Volkswagen", "Polo")
	bmw := NewFixture(t, s, "BMW", "3 Series")

	golf := store.Model{BrandID: vw.Brand.ID, Name: "Golf"}
	require.NoError(t, s.CreateModel(ctx, &golf))
	assert.Equal(t, "golf", golf.Slug)

	assert.ErrorIs(t, s.CreateModel(ctx, &store.Model{BrandID: vw.Brand.ID, Name: "GOLF"}), store.ErrConflict)
	// the same name is fine for another brand
	require.NoError(t, s.CreateModel(ctx, &store.Model{BrandID: bmw.Brand.ID, Name: "Golf"}))
	assert.ErrorIs(t, s.CreateModel(ctx, &store.Model{BrandID: uuid.New(), Name: "Ghost"}), store.ErrNotFound)

	models, err := s.ListModels(ctx, vw.Brand.ID)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "Golf", models[0].Name)
	assert.Equal(t, "Polo", models[1].Name)

	all, err := s.ListModels(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	golf.Name = "Golf Variant"
	require.NoError(t, s.UpdateModel(ctx, &golf))
	read, err := s.GetModel(ctx, golf.ID)
	require.NoError(t, err)
	assert.Equal(t, "golf-variant", read.Slug)
	assert.Equal(t, vw.Brand.ID, read.BrandID)

	assert.ErrorIs(t, s.UpdateModel(ctx, &store.Model{ID: uuid.New(), BrandID: vw.Brand.ID, Name: "x"}), store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteBrand(ctx, vw.Brand.ID), store.ErrInUse)

	require.NoError(t, s.DeleteModel(ctx, golf.ID))
	assert.ErrorIs(t, s.DeleteModel(ctx, golf.ID), store.ErrNotFound)
	_, err = s.GetModel(ctx, golf.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListings(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFixture(t, s, "Volkswagen", "Golf")

	l := f.NewListing("Golf GTI", 18500, 2018)
	l.Images = []string{"listings/a/1.jpg", "listings/a/2.jpg"}
	l.Featured = true
	l.Description = "Well kept"
	require.NoError(t, s.CreateListing(ctx, &l))
	assert.NotEqual(t, uuid.Nil, l.ID)

	read, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, read.Title)
	assert.Equal(t, l.BrandID, read.BrandID)
	assert.Equal(t, l.ModelID, read.ModelID)
	assert.Equal(t, l.Price, read.Price)
	assert.Equal(t, l.Year, read.Year)
	assert.Equal(t, l.Mileage, read.Mileage)
	assert.Equal(t, l.FuelType, read.FuelType)
	assert.Equal(t, l.Transmission, read.Transmission)
	assert.Equal(t, l.BodyType, read.BodyType)
	assert.Equal(t, l.Color, read.Color)
	assert.Equal(t, l.Description, read.Description)
	assert.Equal(t, l.Images, read.Images)
	assert.Equal(t, l.Status, read.Status)
	assert.True(t, read.Featured)
	assert.True(t, l.CreatedAt.Equal(read.CreatedAt))

	time.Sleep(5 * time.Millisecond)
	read.Status = store.StatusSold
	read.Images = []string{"listings/a/2.jpg"}
	require.NoError(t, s.UpdateListing(ctx, read))

	updated, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusSold, updated.Status)
	assert.Equal(t, []string{"listings/a/2.jpg"}, updated.Images)
	assert.True(t, l.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(l.UpdatedAt))

	count, err := s.CountListings(ctx, store.StatusSold)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = s.CountListings(ctx, store.StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	missing := f.NewListing("ghost", 1, 2000)
	missing.ID = uuid.New()
	assert.ErrorIs(t, s.UpdateListing(ctx, &missing), store.ErrNotFound)

	require.NoError(t, s.DeleteListing(ctx, l.ID))
	_, err = s.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteListing(ctx, l.ID), store.ErrNotFound)
}

func testListingImages(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFixture(t, s, "Skoda", "Octavia")
	l := f.NewListing("Octavia Combi", 9900, 2016)
	require.NoError(t, s.CreateListing(ctx, &l))

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddListingImage(ctx, l.ID, fmt.Sprintf("listings/%s/%d.jpg", l.ID, i), 10)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	read, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, read.Images, n, "concurrent additions are all kept")

	updated, err := s.AddListingImage(ctx, l.ID, "listings/x/8.jpg", 10)
	require.NoError(t, err)
	assert.Len(t, updated.Images, 9)
	assert.Equal(t, "listings/x/8.jpg", updated.Images[8])
	_, err = s.AddListingImage(ctx, l.ID, "listings/x/9.jpg", 9)
	assert.ErrorIs(t, err, store.ErrLimitReached)
	_, err = s.AddListingImage(ctx, uuid.New(), "listings/x/9.jpg", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)

	second := updated.Images[1]
	updated, err = s.RemoveListingImage(ctx, l.ID, updated.Images[0])
	require.NoError(t, err)
	assert.Len(t, updated.Images, 8)
	assert.Equal(t, second, updated.Images[0], "order is kept")
	assert.Equal(t, "listings/x/8.jpg", updated.Images[7])
	_, err = s.RemoveListingImage(ctx, l.ID, "listings/x/unknown.jpg")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.RemoveListingImage(ctx, uuid.New(), second)
	assert.ErrorIs(t, err, store.ErrNotFound)

	read, err = s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Images, read.Images)
}

func testListingFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	vw := NewFixture(t, s, "Volkswagen", "Golf")
	bmw := NewFixture(t, s, "BMW", "X5")

	create := func(l store.Listing) store.Listing {
		require.NoError(t, s.CreateListing(ctx, &l))
		time.Sleep(2 * time.Millisecond) // distinct creation times
		return l
	}

	golf := vw.NewListing("Golf TDI", 12000, 2015)
	golf.FuelType = "diesel"
	golf.Mileage = 120000
	golf = create(golf)

	gti := vw.NewListing("Golf GTI", 21000, 2019)
	gti.Description = "Performance hatchback"
	gti.Featured = true
	gti = create(gti)

	x5 := bmw.NewListing("BMW X5 xDrive", 45000, 2021)
	x5.BodyType = "suv"
	x5.Transmission = "automatic"
	x5.FuelType = "hybrid"
	x5.Status = store.StatusReserved
	x5.Mileage = 30000
	x5 = create(x5)

	titles := func(filter store.ListingFilter) []string {
		listings, total, err := s.ListListings(ctx, filter)
		require.NoError(t, err)
		result := []string{}
		for _, l := range listings {
			result = append(result, l.Title)
		}
		assert.Equal(t, len(result), total, "filter %+v", filter)
		return result
	}
	yes := true

	assert.Equal(t, []string{x5.Title, gti.Title, golf.Title}, titles(store.ListingFilter{}))
	assert.Equal(t, []string{golf.Title, gti.Title, x5.Title}, titles(store.ListingFilter{Sort: store.SortOldest}))
	assert.Equal(t, []string{golf.Title, gti.Title, x5.Title}, titles(store.ListingFilter{Sort: store.SortPriceAsc}))
	assert.Equal(t, []string{x5.Title, gti.Title, golf.Title}, titles(store.ListingFilter{Sort: store.SortPriceDesc}))
	assert.Equal(t, []string{x5.Title, gti.Title, golf.Title}, titles(store.ListingFilter{Sort: store.SortYearDesc}))
	assert.Equal(t, []string{x5.Title, gti.Title, golf.Title}, titles(store.ListingFilter{Sort: store.SortMileageAsc}))

	assert.Equal(t, []string{gti.Title, golf.Title}, titles(store.ListingFilter{BrandID: vw.Brand.ID}))
	assert.Equal(t, []string{x5.Title}, titles(store.ListingFilter{ModelID: bmw.Model.ID}))
	assert.Equal(t, []string{gti.Title}, titles(store.ListingFilter{MinPrice: 15000, MaxPrice: 30000}))
	assert.Equal(t, []string{x5.Title, gti.Title}, titles(store.ListingFilter{MinYear: 2019}))
	assert.Equal(t, []string{golf.Title}, titles(store.ListingFilter{MaxYear: 2016}))
	assert.Equal(t, []string{x5.Title, gti.Title}, titles(store.ListingFilter{MaxMileage: 60000}))
	assert.Equal(t, []string{golf.Title}, titles(store.ListingFilter{FuelType: "diesel"}))
	assert.Equal(t, []string{x5.Title}, titles(store.ListingFilter{Transmission: "automatic"}))
	assert.Equal(t, []string{x5.Title}, titles(store.ListingFilter{BodyType: "suv"}))
	assert.Equal(t, []string{x5.Title}, titles(store.ListingFilter{Status: store.StatusReserved}))
	assert.Equal(t, []string{gti.Title}, titles(store.ListingFilter{Featured: &yes}))
	assert.Equal(t, []string{gti.Title, golf.Title}, titles(store.ListingFilter{Query: "golf"}))
	assert.Equal(t, []string{gti.Title}, titles(store.ListingFilter{Query: "PERFORMANCE"}))
	assert.Equal(t, []string{}, titles(store.ListingFilter{Query: "tesla"}))
	// wildcards are matched literally
	assert.Equal(t, []string{}, titles(store.ListingFilter{Query: "%"}))
}

func testListingPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFixture(t, s, "Skoda", "Octavia")
	for i := 0; i < 7; i++ {
		l := f.NewListing(fmt.Sprintf("Octavia %d", i), int64(10000+i*1000), 2010+i)
		require.NoError(t, s.CreateListing(ctx, &l))
	}

	listings, total, err := s.ListListings(ctx, store.ListingFilter{Sort: store.SortPriceAsc, Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, listings, 3)
	assert.Equal(t, "Octavia 0", listings[0].Title)

	listings, total, err = s.ListListings(ctx, store.ListingFilter{Sort: store.SortPriceAsc, Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, listings, 1)
	assert.Equal(t, "Octavia 6", listings[0].Title)

	listings, total, err = s.ListListings(ctx, store.ListingFilter{Sort: store.SortPriceAsc, Page: 4, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, listings, 0)
}

func testReferences(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := NewFixture(t, s, "Toyota", "Corolla")
	other := NewFixture(t, s, "Honda", "Civic")

	bad := f.NewListing("no brand", 1000, 2000)
	bad.BrandID = uuid.New()
	assert.ErrorIs(t, s.CreateListing(ctx, &bad), store.ErrNotFound)

	bad = f.NewListing("no model", 1000, 2000)
	bad.ModelID = uuid.New()
	assert.ErrorIs(t, s.CreateListing(ctx, &bad), store.ErrNotFound)

	l := f.NewListing("Corolla", 9000, 2012)
	require.NoError(t, s.CreateListing(ctx, &l))

	assert.ErrorIs(t, s.DeleteModel(ctx, f.Model.ID), store.ErrInUse)
	assert.ErrorIs(t, s.DeleteBrand(ctx, f.Brand.ID), store.ErrInUse)

	// the brand without listings goes once its model is gone
	require.NoError(t, s.DeleteModel(ctx, other.Model.ID))
	require.NoError(t, s.DeleteBrand(ctx, other.Brand.ID))

	require.NoError(t, s.DeleteListing(ctx, l.ID))
	require.NoError(t, s.DeleteModel(ctx, f.Model.ID))
	require.NoError(t, s.DeleteBrand(ctx, f.Brand.ID))
}

func testInquiries(t *testing.T, s store.Store) {
	ctx := context.Background()

	newInquiry := func(name, email string) store.Inquiry {
		i := store.Inquiry{
			Name:        name,
			Email:       email,
			Phone:       "+49 170 1234567",
			Brand:       "Opel",
			Model:       "Astra",
			Year:        2012,
			Mileage:     150000,
			AskingPrice: 4500,
			Message:     "Runs fine",
			Status:      store.InquiryNew,
		}
		require.NoError(t, s.CreateInquiry(ctx, &i))
		time.Sleep(2 * time.Millisecond)
		return i
	}
	anna := newInquiry("Anna", "anna@example.com")
	bert := newInquiry("Bert", "bert@example.com")
	carl := newInquiry("Carl", "carl@example.org")

	read, err := s.GetInquiry(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, anna.Email, read.Email)
	assert.Equal(t, anna.AskingPrice, read.AskingPrice)
	assert.Equal(t, store.InquiryNew, read.Status)

	bert.Status = store.InquiryContacted
	bert.Notes = "called back on monday"
	require.NoError(t, s.UpdateInquiry(ctx, &bert))
	read, err = s.GetInquiry(ctx, bert.ID)
	require.NoError(t, err)
	assert.Equal(t, store.InquiryContacted, read.Status)
	assert.Equal(t, "called back on monday", read.Notes)
	assert.True(t, bert.CreatedAt.Equal(read.CreatedAt))

	names := func(filter store.InquiryFilter) []string {
		inquiries, total, err := s.ListInquiries(ctx, filter)
		require.NoError(t, err)
		result := []string{}
		for _, i := range inquiries {
			result = append(result, i.Name)
		}
		assert.Equal(t, len(result), total)
		return result
	}
	assert.Equal(t, []string{"Carl", "Bert", "Anna"}, names(store.InquiryFilter{}))
	assert.Equal(t, []string{"Carl", "Anna"}, names(store.InquiryFilter{Status: store.InquiryNew}))
	assert.Equal(t, []string{"Carl"}, names(store.InquiryFilter{Query: "example.org"}))

	inquiries, total, err := s.ListInquiries(ctx, store.InquiryFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, inquiries, 1)
	assert.Equal(t, "Anna", inquiries[0].Name)

	count, err := s.CountInquiries(ctx, store.InquiryNew)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = s.CountInquiries(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, s.DeleteInquiry(ctx, carl.ID))
	assert.ErrorIs(t, s.DeleteInquiry(ctx, carl.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateInquiry(ctx, &carl), store.ErrNotFound)
}

func testAdmins(t *testing.T, s store.Store) {
	ctx := context.Background()

	admin := store.Admin{Username: "jane", PasswordHash: "$2a$10$hash"}
	require.NoError(t, s.CreateAdmin(ctx, &admin))
	assert.NotEqual(t, uuid.Nil, admin.ID)

	assert.ErrorIs(t, s.CreateAdmin(ctx, &store.Admin{Username: "Jane", PasswordHash: "x"}), store.ErrConflict)

	read, err := s.GetAdminByUsername(ctx, "JANE")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, read.ID)
	assert.Equal(t, admin.PasswordHash, read.PasswordHash)

	read, err = s.GetAdmin(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane", read.Username)

	_, err = s.GetAdminByUsername(ctx, "john")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetAdmin(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
