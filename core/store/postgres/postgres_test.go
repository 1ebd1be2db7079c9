package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core/csql"
	"github.com/relabs-tech/carlot/core/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE table IF NOT EXISTS carlot.brand").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := New(&csql.DB{DB: db, Schema: "carlot"})
	require.NoError(t, err)
	return s, mock
}

func TestWhereListings(t *testing.T) {
	brandID := uuid.New()
	featured := true
	where, args := whereListings(store.ListingFilter{
		BrandID:  brandID,
		MinPrice: 100,
		Featured: &featured,
		Query:    "50%_off",
	})
	assert.Equal(t, " WHERE brand_id = $1 AND price >= $2 AND featured = $3 AND (title ILIKE $4 OR description ILIKE $4)", where)
	assert.Equal(t, []interface{}{brandID, int64(100), true, `%50\%\_off%`}, args)

	where, args = whereListings(store.ListingFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestErrorFor(t *testing.T) {
	assert.Equal(t, store.ErrConflict, errorFor(&pq.Error{Code: "23505"}, false))
	assert.Equal(t, store.ErrNotFound, errorFor(&pq.Error{Code: "23503"}, false))
	assert.Equal(t, store.ErrInUse, errorFor(&pq.Error{Code: "23503"}, true))
	assert.Equal(t, store.ErrNotFound, errorFor(csql.ErrNoRows, false))
	other := &pq.Error{Code: "42P01"}
	assert.Equal(t, other, errorFor(other, false))
}

func TestGetBrand_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery("SELECT .* FROM carlot.brand WHERE brand_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"brand_id", "name", "slug", "logo_url", "created_at", "updated_at"}))

	_, err := s.GetBrand(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBrand(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO carlot.brand").
		WithArgs(sqlmock.AnyArg(), "Alfa Romeo", "alfa-romeo", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO carlot.brand").
		WillReturnError(&pq.Error{Code: "23505"})

	brand := store.Brand{Name: "Alfa Romeo"}
	require.NoError(t, s.CreateBrand(context.Background(), &brand))
	assert.NotEqual(t, uuid.Nil, brand.ID)
	assert.Equal(t, "alfa-romeo", brand.Slug)
	assert.False(t, brand.CreatedAt.IsZero())

	duplicate := store.Brand{Name: "alfa romeo"}
	assert.ErrorIs(t, s.CreateBrand(context.Background(), &duplicate), store.ErrConflict)
	assert.Equal(t, uuid.Nil, duplicate.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBrand_InUse(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM carlot.brand").WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectExec("DELETE FROM carlot.brand").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteBrand(context.Background(), uuid.New()), store.ErrInUse)
	assert.ErrorIs(t, s.DeleteBrand(context.Background(), uuid.New()), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateListing_UnknownReference(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO carlot.listing").WillReturnError(&pq.Error{Code: "23503"})

	listing := store.Listing{Title: "Golf", BrandID: uuid.New(), ModelID: uuid.New()}
	assert.ErrorIs(t, s.CreateListing(context.Background(), &listing), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListListings(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	brandID := uuid.New()
	modelID := uuid.New()
	created := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM carlot.listing WHERE status = $1;")).
		WithArgs(store.StatusAvailable).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 ORDER BY price ASC, created_at DESC, listing_id ASC LIMIT $2 OFFSET $3;")).
		WithArgs(store.StatusAvailable, 20, 20).
		WillReturnRows(sqlmock.NewRows([]string{
			"listing_id", "title", "brand_id", "model_id", "year", "price", "mileage", "fuel_type",
			"transmission", "body_type", "color", "description", "images", "status", "featured",
			"created_at", "updated_at",
		}).AddRow(
			id.String(), "Golf GTI", brandID.String(), modelID.String(), 2019, 23000, 41000, "petrol",
			"manual", "hatchback", "red", "one owner", []byte(`["listings/a.jpg"]`), "available", true,
			created, created,
		))

	listings, total, err := s.ListListings(context.Background(), store.ListingFilter{
		Status: store.StatusAvailable,
		Sort:   store.SortPriceAsc,
		Page:   2,
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, listings, 1)
	l := listings[0]
	assert.Equal(t, id, l.ID)
	assert.Equal(t, brandID, l.BrandID)
	assert.Equal(t, int64(23000), l.Price)
	assert.Equal(t, []string{"listings/a.jpg"}, l.Images)
	assert.True(t, l.Featured)
	assert.True(t, created.Equal(l.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListListings_DefaultsToNewest(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM carlot.listing;")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, listing_id ASC LIMIT $1 OFFSET $2;")).
		WithArgs(store.DefaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"listing_id"}))

	listings, total, err := s.ListListings(context.Background(), store.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, []store.Listing{}, listings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func listingRows() *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(strings.ReplaceAll(listingColumns, " ", ""), ","))
}

func TestAddListingImage(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()
	row := []driver.Value{id.String(), "Golf", uuid.NewString(), uuid.NewString(), 2018, 18500, 42000,
		"petrol", "manual", "hatchback", "red", "", []byte(`["a.jpg","b.jpg"]`), store.StatusAvailable, false, now, now}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE carlot.listing SET images = (images::jsonb || to_jsonb($2::text))::json")).
		WithArgs(id, "b.jpg", sqlmock.AnyArg(), 30).
		WillReturnRows(listingRows().AddRow(row...))
	l, err := s.AddListingImage(context.Background(), id, "b.jpg", 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Images)

	// full listing
	mock.ExpectQuery("UPDATE carlot.listing SET images").WillReturnRows(listingRows())
	mock.ExpectQuery("SELECT .* FROM carlot.listing WHERE listing_id").WithArgs(id).WillReturnRows(listingRows().AddRow(row...))
	_, err = s.AddListingImage(context.Background(), id, "c.jpg", 2)
	assert.ErrorIs(t, err, store.ErrLimitReached)

	// missing listing
	mock.ExpectQuery("UPDATE carlot.listing SET images").WillReturnRows(listingRows())
	mock.ExpectQuery("SELECT .* FROM carlot.listing WHERE listing_id").WithArgs(id).WillReturnRows(listingRows())
	_, err = s.AddListingImage(context.Background(), id, "c.jpg", 2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveListingImage_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE listing_id = $1 AND images::jsonb ? $2")).
		WithArgs(id, "a.jpg", sqlmock.AnyArg()).
		WillReturnRows(listingRows())

	_, err := s.RemoveListingImage(context.Background(), id, "a.jpg")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
