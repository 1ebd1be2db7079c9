/*
Package postgres is the relational implementation of store.Store.

Every entity has its own table in the schema of the csql.DB. Listings reference
brands and models with foreign keys without cascading, which makes the database
enforce store.ErrInUse on deletes.
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/relabs-tech/carlot/core/csql"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/store"
)

// Store is a store.Store on postgres
type Store struct {
	db     *csql.DB
	schema string
}

var _ store.Store = (*Store)(nil)

const (
	brandColumns   = "brand_id, name, slug, logo_url, created_at, updated_at"
	modelColumns   = "model_id, brand_id, name, slug, created_at, updated_at"
	listingColumns = "listing_id, title, brand_id, model_id, year, price, mileage, fuel_type, transmission, body_type, color, description, images, status, featured, created_at, updated_at"
	inquiryColumns = "inquiry_id, name, email, phone, brand, model, year, mileage, asking_price, message, status, notes, created_at, updated_at"
	adminColumns   = "admin_id, username, password_hash, created_at"
)

// New returns a store on db and creates the tables if they do not exist yet
func New(db *csql.DB) (*Store, error) {
	s := &Store{db: db, schema: db.Schema}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := s.schema
	query := fmt.Sprintf(`CREATE table IF NOT EXISTS %[1]s.brand
(brand_id uuid NOT NULL PRIMARY KEY,
name varchar NOT NULL,
slug varchar NOT NULL,
logo_url varchar NOT NULL DEFAULT '',
created_at timestamptz NOT NULL,
updated_at timestamptz NOT NULL
);
CREATE UNIQUE index IF NOT EXISTS brand_name_unique ON %[1]s.brand(lower(name));
CREATE table IF NOT EXISTS %[1]s.model
(model_id uuid NOT NULL PRIMARY KEY,
brand_id uuid NOT NULL REFERENCES %[1]s.brand(brand_id),
name varchar NOT NULL,
slug varchar NOT NULL,
created_at timestamptz NOT NULL,
updated_at timestamptz NOT NULL
);
CREATE UNIQUE index IF NOT EXISTS model_name_unique ON %[1]s.model(brand_id, lower(name));
CREATE table IF NOT EXISTS %[1]s.listing
(listing_id uuid NOT NULL PRIMARY KEY,
title varchar NOT NULL,
brand_id uuid NOT NULL REFERENCES %[1]s.brand(brand_id),
model_id uuid NOT NULL REFERENCES %[1]s.model(model_id),
year integer NOT NULL,
price bigint NOT NULL,
mileage integer NOT NULL,
fuel_type varchar NOT NULL,
transmission varchar NOT NULL,
body_type varchar NOT NULL,
color varchar NOT NULL DEFAULT '',
description text NOT NULL DEFAULT '',
images json NOT NULL DEFAULT '[]'::json,
status varchar NOT NULL,
featured boolean NOT NULL DEFAULT false,
created_at timestamptz NOT NULL,
updated_at timestamptz NOT NULL
);
CREATE index IF NOT EXISTS listing_brand_id ON %[1]s.listing(brand_id);
CREATE index IF NOT EXISTS listing_model_id ON %[1]s.listing(model_id);
CREATE index IF NOT EXISTS listing_status ON %[1]s.listing(status);
CREATE index IF NOT EXISTS listing_price ON %[1]s.listing(price);
CREATE index IF NOT EXISTS listing_created_at ON %[1]s.listing(created_at);
CREATE table IF NOT EXISTS %[1]s.inquiry
(inquiry_id uuid NOT NULL PRIMARY KEY,
name varchar NOT NULL,
email varchar NOT NULL,
phone varchar NOT NULL DEFAULT '',
brand varchar NOT NULL DEFAULT '',
model varchar NOT NULL DEFAULT '',
year integer NOT NULL DEFAULT 0,
mileage integer NOT NULL DEFAULT 0,
asking_price bigint NOT NULL DEFAULT 0,
message text NOT NULL DEFAULT '',
status varchar NOT NULL,
notes text NOT NULL DEFAULT '',
created_at timestamptz NOT NULL,
updated_at timestamptz NOT NULL
);
CREATE index IF NOT EXISTS inquiry_status ON %[1]s.inquiry(status);
CREATE table IF NOT EXISTS %[1]s.admin
(admin_id uuid NOT NULL PRIMARY KEY,
username varchar NOT NULL,
password_hash varchar NOT NULL,
created_at timestamptz NOT NULL
);
CREATE UNIQUE index IF NOT EXISTS admin_username_unique ON %[1]s.admin(lower(username));
`, schema)
	_, err := s.db.Exec(query)
	if err != nil {
		return fmt.Errorf("cannot create tables in schema %s: %w", schema, err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) table(name string) string {
	return s.schema + "." + name
}

// errorFor maps postgres errors to store errors. A foreign key violation means a missing
// reference on insert and update, and a referenced row on delete.
func errorFor(err error, deleting bool) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return store.ErrConflict
		case "23503": // foreign_key_violation
			if deleting {
				return store.ErrInUse
			}
			return store.ErrNotFound
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func expectOne(res sql.Result, err error, deleting bool) error {
	if err != nil {
		return errorFor(err, deleting)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// ListBrands returns all brands ordered by slug
func (s *Store) ListBrands(ctx context.Context) ([]store.Brand, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+brandColumns+" FROM "+s.table("brand")+" ORDER BY slug, brand_id;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	brands := []store.Brand{}
	for rows.Next() {
		var b store.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// GetBrand returns one brand
func (s *Store) GetBrand(ctx context.Context, id uuid.UUID) (*store.Brand, error) {
	var b store.Brand
	err := s.db.QueryRowContext(ctx, "SELECT "+brandColumns+" FROM "+s.table("brand")+" WHERE brand_id = $1;", id).
		Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, errorFor(err, false)
	}
	return &b, nil
}

// CreateBrand creates a brand
func (s *Store) CreateBrand(ctx context.Context, brand *store.Brand) error {
	b := *brand
	store.PrepareCreate(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	b.Slug = store.Slugify(b.Name)
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table("brand")+" ("+brandColumns+") VALUES($1,$2,$3,$4,$5,$6);",
		b.ID, b.Name, b.Slug, b.LogoURL, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*brand = b
	return nil
}

// UpdateBrand updates a brand
func (s *Store) UpdateBrand(ctx context.Context, brand *store.Brand) error {
	b := *brand
	b.UpdatedAt = store.Now()
	b.Slug = store.Slugify(b.Name)
	err := s.db.QueryRowContext(ctx, "UPDATE "+s.table("brand")+" SET name = $2, slug = $3, logo_url = $4, updated_at = $5 WHERE brand_id = $1 RETURNING created_at;",
		b.ID, b.Name, b.Slug, b.LogoURL, b.UpdatedAt).Scan(&b.CreatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*brand = b
	return nil
}

// DeleteBrand deletes a brand
func (s *Store) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table("brand")+" WHERE brand_id = $1;", id)
	return expectOne(res, err, true)
}

func scanModel(row scanner) (*store.Model, error) {
	var m store.Model
	err := row.Scan(&m.ID, &m.BrandID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModels returns the models of a brand, or all models for uuid.Nil
func (s *Store) ListModels(ctx context.Context, brandID uuid.UUID) ([]store.Model, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if brandID == uuid.Nil {
		rows, err = s.db.QueryContext(ctx, "SELECT "+modelColumns+" FROM "+s.table("model")+" ORDER BY slug, model_id;")
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT "+modelColumns+" FROM "+s.table("model")+" WHERE brand_id = $1 ORDER BY slug, model_id;", brandID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	models := []store.Model{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// GetModel returns one model
func (s *Store) GetModel(ctx context.Context, id uuid.UUID) (*store.Model, error) {
	m, err := scanModel(s.db.QueryRowContext(ctx, "SELECT "+modelColumns+" FROM "+s.table("model")+" WHERE model_id = $1;", id))
	if err != nil {
		return nil, errorFor(err, false)
	}
	return m, nil
}

// CreateModel creates a model
func (s *Store) CreateModel(ctx context.Context, model *store.Model) error {
	m := *model
	store.PrepareCreate(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	m.Slug = store.Slugify(m.Name)
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table("model")+" ("+modelColumns+") VALUES($1,$2,$3,$4,$5,$6);",
		m.ID, m.BrandID, m.Name, m.Slug, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*model = m
	return nil
}

// UpdateModel updates a model
func (s *Store) UpdateModel(ctx context.Context, model *store.Model) error {
	m := *model
	m.UpdatedAt = store.Now()
	m.Slug = store.Slugify(m.Name)
	err := s.db.QueryRowContext(ctx, "UPDATE "+s.table("model")+" SET brand_id = $2, name = $3, slug = $4, updated_at = $5 WHERE model_id = $1 RETURNING created_at;",
		m.ID, m.BrandID, m.Name, m.Slug, m.UpdatedAt).Scan(&m.CreatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*model = m
	return nil
}

// DeleteModel deletes a model
func (s *Store) DeleteModel(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table("model")+" WHERE model_id = $1;", id)
	return expectOne(res, err, true)
}

func scanListing(row scanner) (*store.Listing, error) {
	var (
		l      store.Listing
		images []byte
	)
	err := row.Scan(&l.ID, &l.Title, &l.BrandID, &l.ModelID, &l.Year, &l.Price, &l.Mileage,
		&l.FuelType, &l.Transmission, &l.BodyType, &l.Color, &l.Description, &images,
		&l.Status, &l.Featured, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &l.Images); err != nil {
			return nil, fmt.Errorf("corrupt images of listing %s: %w", l.ID, err)
		}
	}
	return &l, nil
}

func listingImages(l *store.Listing) string {
	if l.Images == nil {
		l.Images = []string{}
	}
	images, _ := json.Marshal(l.Images)
	return string(images)
}

// escapeLike escapes the LIKE wildcards of a user provided search string
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// whereListings translates a filter into a where clause with positional parameters
func whereListings(f store.ListingFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, strings.ReplaceAll(condition, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.BrandID != uuid.Nil {
		add("brand_id = ?", f.BrandID)
	}
	if f.ModelID != uuid.Nil {
		add("model_id = ?", f.ModelID)
	}
	if f.MinPrice > 0 {
		add("price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price <= ?", f.MaxPrice)
	}
	if f.MinYear > 0 {
		add("year >= ?", f.MinYear)
	}
	if f.MaxYear > 0 {
		add("year <= ?", f.MaxYear)
	}
	if f.MaxMileage > 0 {
		add("mileage <= ?", f.MaxMileage)
	}
	if f.FuelType != "" {
		add("fuel_type = ?", f.FuelType)
	}
	if f.Transmission != "" {
		add("transmission = ?", f.Transmission)
	}
	if f.BodyType != "" {
		add("body_type = ?", f.BodyType)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Featured != nil {
		add("featured = ?", *f.Featured)
	}
	if f.Query != "" {
		add("(title ILIKE ? OR description ILIKE ?)", "%"+escapeLike(f.Query)+"%")
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var listingOrder = map[string]string{
	store.SortNewest:     "created_at DESC, listing_id ASC",
	store.SortOldest:     "created_at ASC, listing_id ASC",
	store.SortPriceAsc:   "price ASC, created_at DESC, listing_id ASC",
	store.SortPriceDesc:  "price DESC, created_at DESC, listing_id ASC",
	store.SortYearDesc:   "year DESC, created_at DESC, listing_id ASC",
	store.SortMileageAsc: "mileage ASC, created_at DESC, listing_id ASC",
}

// ListListings returns one page of matching listings and the total count
func (s *Store) ListListings(ctx context.Context, filter store.ListingFilter) ([]store.Listing, int, error) {
	where, args := whereListings(filter)

	var total int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+s.table("listing")+where+";", args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	order, ok := listingOrder[filter.Sort]
	if !ok {
		order = listingOrder[store.SortNewest]
	}
	offset, limit := store.Window(filter.Page, filter.Limit)
	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d;",
		listingColumns, s.table("listing"), where, order, n+1, n+2)
	logger.FromContext(ctx).Debugln("list listings:", query)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	listings := []store.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, *l)
	}
	return listings, total, rows.Err()
}

// GetListing returns one listing
func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*store.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM "+s.table("listing")+" WHERE listing_id = $1;", id))
	if err != nil {
		return nil, errorFor(err, false)
	}
	return l, nil
}

// CreateListing creates a listing
func (s *Store) CreateListing(ctx context.Context, listing *store.Listing) error {
	l := *listing
	store.PrepareCreate(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table("listing")+" ("+listingColumns+") VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);",
		l.ID, l.Title, l.BrandID, l.ModelID, l.Year, l.Price, l.Mileage, l.FuelType, l.Transmission,
		l.BodyType, l.Color, l.Description, listingImages(&l), l.Status, l.Featured, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*listing = l
	return nil
}

// UpdateListing updates a listing
func (s *Store) UpdateListing(ctx context.Context, listing *store.Listing) error {
	l := *listing
	l.UpdatedAt = store.Now()
	err := s.db.QueryRowContext(ctx, "UPDATE "+s.table("listing")+` SET title = $2, brand_id = $3, model_id = $4,
year = $5, price = $6, mileage = $7, fuel_type = $8, transmission = $9, body_type = $10, color = $11,
description = $12, images = $13, status = $14, featured = $15, updated_at = $16
WHERE listing_id = $1 RETURNING created_at;`,
		l.ID, l.Title, l.BrandID, l.ModelID, l.Year, l.Price, l.Mileage, l.FuelType, l.Transmission,
		l.BodyType, l.Color, l.Description, listingImages(&l), l.Status, l.Featured, l.UpdatedAt).Scan(&l.CreatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*listing = l
	return nil
}

// AddListingImage appends an image key to a listing. The row lock of the update
// serializes concurrent calls.
func (s *Store) AddListingImage(ctx context.Context, id uuid.UUID, key string, maxImages int) (*store.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, "UPDATE "+s.table("listing")+` SET images = (images::jsonb || to_jsonb($2::text))::json, updated_at = $3
WHERE listing_id = $1 AND json_array_length(images) < $4 RETURNING `+listingColumns+";",
		id, key, store.Now(), maxImages))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.GetListing(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrLimitReached
	}
	if err != nil {
		return nil, errorFor(err, false)
	}
	return l, nil
}

// RemoveListingImage removes an image key from a listing, keeping the order of the others
func (s *Store) RemoveListingImage(ctx context.Context, id uuid.UUID, key string) (*store.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, "UPDATE "+s.table("listing")+` SET images = COALESCE(
(SELECT json_agg(e.value ORDER BY e.n) FROM json_array_elements_text(images) WITH ORDINALITY AS e(value, n) WHERE e.value <> $2),
'[]'::json), updated_at = $3
WHERE listing_id = $1 AND images::jsonb ? $2 RETURNING `+listingColumns+";",
		id, key, store.Now()))
	if err != nil {
		return nil, errorFor(err, false)
	}
	return l, nil
}

// DeleteListing deletes a listing
func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table("listing")+" WHERE listing_id = $1;", id)
	return expectOne(res, err, true)
}

func (s *Store) count(ctx context.Context, table, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+s.table(table)+";").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+s.table(table)+" WHERE status = $1;", status).Scan(&count)
	}
	return count, err
}

// CountListings counts listings by status
func (s *Store) CountListings(ctx context.Context, status string) (int, error) {
	return s.count(ctx, "listing", status)
}

func scanInquiry(row scanner) (*store.Inquiry, error) {
	var i store.Inquiry
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Phone, &i.Brand, &i.Model, &i.Year, &i.Mileage,
		&i.AskingPrice, &i.Message, &i.Status, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// CreateInquiry creates an inquiry
func (s *Store) CreateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	i := *inquiry
	store.PrepareCreate(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table("inquiry")+" ("+inquiryColumns+") VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);",
		i.ID, i.Name, i.Email, i.Phone, i.Brand, i.Model, i.Year, i.Mileage, i.AskingPrice, i.Message,
		i.Status, i.Notes, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*inquiry = i
	return nil
}

// GetInquiry returns one inquiry
func (s *Store) GetInquiry(ctx context.Context, id uuid.UUID) (*store.Inquiry, error) {
	i, err := scanInquiry(s.db.QueryRowContext(ctx, "SELECT "+inquiryColumns+" FROM "+s.table("inquiry")+" WHERE inquiry_id = $1;", id))
	if err != nil {
		return nil, errorFor(err, false)
	}
	return i, nil
}

// ListInquiries returns one page of inquiries, newest first
func (s *Store) ListInquiries(ctx context.Context, filter store.InquiryFilter) ([]store.Inquiry, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := "$" + strconv.Itoa(len(args))
		conditions = append(conditions, "(name ILIKE "+n+" OR email ILIKE "+n+" OR phone ILIKE "+n+")")
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+s.table("inquiry")+where+";", args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := store.Window(filter.Page, filter.Limit)
	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC, inquiry_id ASC LIMIT $%d OFFSET $%d;",
		inquiryColumns, s.table("inquiry"), where, n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	inquiries := []store.Inquiry{}
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return nil, 0, err
		}
		inquiries = append(inquiries, *i)
	}
	return inquiries, total, rows.Err()
}

// UpdateInquiry updates an inquiry
func (s *Store) UpdateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	i := *inquiry
	i.UpdatedAt = store.Now()
	err := s.db.QueryRowContext(ctx, "UPDATE "+s.table("inquiry")+` SET name = $2, email = $3, phone = $4,
brand = $5, model = $6, year = $7, mileage = $8, asking_price = $9, message = $10, status = $11, notes = $12,
updated_at = $13 WHERE inquiry_id = $1 RETURNING created_at;`,
		i.ID, i.Name, i.Email, i.Phone, i.Brand, i.Model, i.Year, i.Mileage, i.AskingPrice, i.Message,
		i.Status, i.Notes, i.UpdatedAt).Scan(&i.CreatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*inquiry = i
	return nil
}

// DeleteInquiry deletes an inquiry
func (s *Store) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table("inquiry")+" WHERE inquiry_id = $1;", id)
	return expectOne(res, err, true)
}

// CountInquiries counts inquiries by status
func (s *Store) CountInquiries(ctx context.Context, status string) (int, error) {
	return s.count(ctx, "inquiry", status)
}

// CreateAdmin creates an admin
func (s *Store) CreateAdmin(ctx context.Context, admin *store.Admin) error {
	a := *admin
	store.PrepareCreate(&a.ID, &a.CreatedAt, nil)
	_, err := s.db.ExecContext(ctx, "INSERT INTO "+s.table("admin")+" ("+adminColumns+") VALUES($1,$2,$3,$4);",
		a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		return errorFor(err, false)
	}
	*admin = a
	return nil
}

// GetAdmin returns an admin by id
func (s *Store) GetAdmin(ctx context.Context, id uuid.UUID) (*store.Admin, error) {
	var a store.Admin
	err := s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM "+s.table("admin")+" WHERE admin_id = $1;", id).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, errorFor(err, false)
	}
	return &a, nil
}

// GetAdminByUsername returns an admin by username, case-insensitive
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*store.Admin, error) {
	var a store.Admin
	err := s.db.QueryRowContext(ctx, "SELECT "+adminColumns+" FROM "+s.table("admin")+" WHERE lower(username) = lower($1);", username).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, errorFor(err, false)
	}
	return &a, nil
}
