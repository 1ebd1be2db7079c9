/*
Package mongo is the document implementation of store.Store on MongoDB.

Each entity lives in its own collection, keyed by the string form of its uuid.
Names which must be unique regardless of case are stored a second time in lower case
with a unique index on that copy. MongoDB has no foreign keys, so references are
checked by the store before writes and deletes.
*/
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/store"
)

// collection names
const (
	brands    = "brands"
	models    = "models"
	listings  = "listings"
	inquiries = "inquiries"
	admins    = "admins"
)

// Store is a store.Store on a mongo database
type Store struct {
	client    *mongo.Client
	brands    *mongo.Collection
	models    *mongo.Collection
	listings  *mongo.Collection
	inquiries *mongo.Collection
	admins    *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects to the mongo server at uri and returns a store on the named database.
// Close disconnects the client.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	logger.FromContext(ctx).Infoln("connecting to mongo database", database)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("cannot reach mongo: %w", err)
	}
	s, err := New(ctx, client.Database(database))
	if err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	s.client = client
	return s, nil
}

// New returns a store on db and creates the indexes if they do not exist yet
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		brands:    db.Collection(brands),
		models:    db.Collection(models),
		listings:  db.Collection(listings),
		inquiries: db.Collection(inquiries),
		admins:    db.Collection(admins),
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{s.brands, []mongo.IndexModel{
			{Keys: bson.D{{Key: "name_lower", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		}},
		{s.models, []mongo.IndexModel{
			{Keys: bson.D{{Key: "brand_id", Value: 1}, {Key: "name_lower", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		}},
		{s.listings, []mongo.IndexModel{
			{Keys: bson.D{{Key: "brand_id", Value: 1}}},
			{Keys: bson.D{{Key: "model_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{s.inquiries, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		}},
		{s.admins, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username_lower", Value: 1}}, Options: unique},
		}},
	}
	for _, index := range indexes {
		if _, err := index.collection.Indexes().CreateMany(ctx, index.models); err != nil {
			return fmt.Errorf("cannot create indexes on %s: %w", index.collection.Name(), err)
		}
	}
	return nil
}

// Close disconnects the client if the store opened it
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func errorFor(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrConflict
	}
	return err
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter interface{}, opts *options.FindOptions) ([]T, error) {
	cursor, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// exists returns store.ErrNotFound if no document matches filter
func exists(ctx context.Context, c *mongo.Collection, filter bson.M) error {
	count, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return nil
}

// unused returns store.ErrInUse if any document in collections matches filter
func unused(ctx context.Context, filter bson.M, collections ...*mongo.Collection) error {
	for _, c := range collections {
		count, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if count > 0 {
			return store.ErrInUse
		}
	}
	return nil
}

func deleteOne(ctx context.Context, c *mongo.Collection, id uuid.UUID) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// updateOne sets fields on the document with id and decodes the updated document into result
func updateOne(ctx context.Context, c *mongo.Collection, id uuid.UUID, fields bson.M, result interface{}) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": fields}, opts).Decode(result)
	return errorFor(err)
}

func (s *Store) count(ctx context.Context, c *mongo.Collection, status string) (int, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	count, err := c.CountDocuments(ctx, filter)
	return int(count), err
}

func parseID(id string) uuid.UUID {
	parsed, _ := uuid.Parse(id)
	return parsed
}

type brandDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	NameLower string    `bson:"name_lower"`
	Slug      string    `bson:"slug"`
	LogoURL   string    `bson:"logo_url"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *brandDoc) brand() store.Brand {
	return store.Brand{
		ID:        parseID(d.ID),
		Name:      d.Name,
		Slug:      d.Slug,
		LogoURL:   d.LogoURL,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

var bySlug = options.Find().SetSort(bson.D{{Key: "slug", Value: 1}, {Key: "_id", Value: 1}})

// ListBrands returns all brands ordered by slug
func (s *Store) ListBrands(ctx context.Context) ([]store.Brand, error) {
	docs, err := findAll[brandDoc](ctx, s.brands, bson.M{}, bySlug)
	if err != nil {
		return nil, err
	}
	result := make([]store.Brand, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].brand())
	}
	return result, nil
}

// GetBrand returns one brand
func (s *Store) GetBrand(ctx context.Context, id uuid.UUID) (*store.Brand, error) {
	var doc brandDoc
	if err := s.brands.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	b := doc.brand()
	return &b, nil
}

// CreateBrand creates a brand
func (s *Store) CreateBrand(ctx context.Context, brand *store.Brand) error {
	b := *brand
	store.PrepareCreate(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	b.Slug = store.Slugify(b.Name)
	_, err := s.brands.InsertOne(ctx, brandDoc{
		ID:        b.ID.String(),
		Name:      b.Name,
		NameLower: strings.ToLower(b.Name),
		Slug:      b.Slug,
		LogoURL:   b.LogoURL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	})
	if err != nil {
		return errorFor(err)
	}
	*brand = b
	return nil
}

// UpdateBrand updates a brand
func (s *Store) UpdateBrand(ctx context.Context, brand *store.Brand) error {
	var doc brandDoc
	err := updateOne(ctx, s.brands, brand.ID, bson.M{
		"name":       brand.Name,
		"name_lower": strings.ToLower(brand.Name),
		"slug":       store.Slugify(brand.Name),
		"logo_url":   brand.LogoURL,
		"updated_at": store.Now(),
	}, &doc)
	if err != nil {
		return err
	}
	*brand = doc.brand()
	return nil
}

// DeleteBrand deletes a brand which is referenced by neither models nor listings
func (s *Store) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	if err := exists(ctx, s.brands, bson.M{"_id": id.String()}); err != nil {
		return err
	}
	if err := unused(ctx, bson.M{"brand_id": id.String()}, s.models, s.listings); err != nil {
		return err
	}
	return deleteOne(ctx, s.brands, id)
}

type modelDoc struct {
	ID        string    `bson:"_id"`
	BrandID   string    `bson:"brand_id"`
	Name      string    `bson:"name"`
	NameLower string    `bson:"name_lower"`
	Slug      string    `bson:"slug"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *modelDoc) model() store.Model {
	return store.Model{
		ID:        parseID(d.ID),
		BrandID:   parseID(d.BrandID),
		Name:      d.Name,
		Slug:      d.Slug,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ListModels returns the models of a brand, or all models for uuid.Nil
func (s *Store) ListModels(ctx context.Context, brandID uuid.UUID) ([]store.Model, error) {
	filter := bson.M{}
	if brandID != uuid.Nil {
		filter["brand_id"] = brandID.String()
	}
	docs, err := findAll[modelDoc](ctx, s.models, filter, bySlug)
	if err != nil {
		return nil, err
	}
	result := make([]store.Model, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].model())
	}
	return result, nil
}

// GetModel returns one model
func (s *Store) GetModel(ctx context.Context, id uuid.UUID) (*store.Model, error) {
	var doc modelDoc
	if err := s.models.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	m := doc.model()
	return &m, nil
}

// CreateModel creates a model of an existing brand
func (s *Store) CreateModel(ctx context.Context, model *store.Model) error {
	if err := exists(ctx, s.brands, bson.M{"_id": model.BrandID.String()}); err != nil {
		return err
	}
	m := *model
	store.PrepareCreate(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	m.Slug = store.Slugify(m.Name)
	_, err := s.models.InsertOne(ctx, modelDoc{
		ID:        m.ID.String(),
		BrandID:   m.BrandID.String(),
		Name:      m.Name,
		NameLower: strings.ToLower(m.Name),
		Slug:      m.Slug,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	})
	if err != nil {
		return errorFor(err)
	}
	*model = m
	return nil
}

// UpdateModel updates a model
func (s *Store) UpdateModel(ctx context.Context, model *store.Model) error {
	if err := exists(ctx, s.brands, bson.M{"_id": model.BrandID.String()}); err != nil {
		return err
	}
	var doc modelDoc
	err := updateOne(ctx, s.models, model.ID, bson.M{
		"brand_id":   model.BrandID.String(),
		"name":       model.Name,
		"name_lower": strings.ToLower(model.Name),
		"slug":       store.Slugify(model.Name),
		"updated_at": store.Now(),
	}, &doc)
	if err != nil {
		return err
	}
	*model = doc.model()
	return nil
}

// DeleteModel deletes a model which is not referenced by listings
func (s *Store) DeleteModel(ctx context.Context, id uuid.UUID) error {
	if err := exists(ctx, s.models, bson.M{"_id": id.String()}); err != nil {
		return err
	}
	if err := unused(ctx, bson.M{"model_id": id.String()}, s.listings); err != nil {
		return err
	}
	return deleteOne(ctx, s.models, id)
}

type listingDoc struct {
	ID           string    `bson:"_id"`
	Title        string    `bson:"title"`
	BrandID      string    `bson:"brand_id"`
	ModelID      string    `bson:"model_id"`
	Year         int       `bson:"year"`
	Price        int64     `bson:"price"`
	Mileage      int       `bson:"mileage"`
	FuelType     string    `bson:"fuel_type"`
	Transmission string    `bson:"transmission"`
	BodyType     string    `bson:"body_type"`
	Color        string    `bson:"color"`
	Description  string    `bson:"description"`
	Images       []string  `bson:"images"`
	Status       string    `bson:"status"`
	Featured     bool      `bson:"featured"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newListingDoc(l *store.Listing) listingDoc {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return listingDoc{
		ID:           l.ID.String(),
		Title:        l.Title,
		BrandID:      l.BrandID.String(),
		ModelID:      l.ModelID.String(),
		Year:         l.Year,
		Price:        l.Price,
		Mileage:      l.Mileage,
		FuelType:     l.FuelType,
		Transmission: l.Transmission,
		BodyType:     l.BodyType,
		Color:        l.Color,
		Description:  l.Description,
		Images:       images,
		Status:       l.Status,
		Featured:     l.Featured,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (d *listingDoc) listing() store.Listing {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return store.Listing{
		ID:           parseID(d.ID),
		Title:        d.Title,
		BrandID:      parseID(d.BrandID),
		ModelID:      parseID(d.ModelID),
		Year:         d.Year,
		Price:        d.Price,
		Mileage:      d.Mileage,
		FuelType:     d.FuelType,
		Transmission: d.Transmission,
		BodyType:     d.BodyType,
		Color:        d.Color,
		Description:  d.Description,
		Images:       images,
		Status:       d.Status,
		Featured:     d.Featured,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (s *Store) checkReferences(ctx context.Context, l *store.Listing) error {
	if err := exists(ctx, s.brands, bson.M{"_id": l.BrandID.String()}); err != nil {
		return err
	}
	return exists(ctx, s.models, bson.M{"_id": l.ModelID.String()})
}

// ListListings returns one page of matching listings and the total count
func (s *Store) ListListings(ctx context.Context, filter store.ListingFilter) ([]store.Listing, int, error) {
	query := listingQuery(filter)
	total, err := s.listings.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := store.Window(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(listingSort(filter.Sort)).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	docs, err := findAll[listingDoc](ctx, s.listings, query, opts)
	if err != nil {
		return nil, 0, err
	}
	result := make([]store.Listing, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].listing())
	}
	return result, int(total), nil
}

// GetListing returns one listing
func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*store.Listing, error) {
	var doc listingDoc
	if err := s.listings.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	l := doc.listing()
	return &l, nil
}

// CreateListing creates a listing for an existing brand and model
func (s *Store) CreateListing(ctx context.Context, listing *store.Listing) error {
	if err := s.checkReferences(ctx, listing); err != nil {
		return err
	}
	l := *listing
	store.PrepareCreate(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	doc := newListingDoc(&l)
	if _, err := s.listings.InsertOne(ctx, doc); err != nil {
		return errorFor(err)
	}
	*listing = doc.listing()
	return nil
}

// UpdateListing updates a listing
func (s *Store) UpdateListing(ctx context.Context, listing *store.Listing) error {
	if err := s.checkReferences(ctx, listing); err != nil {
		return err
	}
	l := *listing
	l.UpdatedAt = store.Now()
	doc := newListingDoc(&l)
	var updated listingDoc
	err := updateOne(ctx, s.listings, l.ID, bson.M{
		"title":        doc.Title,
		"brand_id":     doc.BrandID,
		"model_id":     doc.ModelID,
		"year":         doc.Year,
		"price":        doc.Price,
		"mileage":      doc.Mileage,
		"fuel_type":    doc.FuelType,
		"transmission": doc.Transmission,
		"body_type":    doc.BodyType,
		"color":        doc.Color,
		"description":  doc.Description,
		"images":       doc.Images,
		"status":       doc.Status,
		"featured":     doc.Featured,
		"updated_at":   doc.UpdatedAt,
	}, &updated)
	if err != nil {
		return err
	}
	*listing = updated.listing()
	return nil
}

// AddListingImage pushes an image key to a listing unless it has maxImages images already
func (s *Store) AddListingImage(ctx context.Context, id uuid.UUID, key string, maxImages int) (*store.Listing, error) {
	var doc listingDoc
	filter := bson.M{"_id": id.String(), fmt.Sprintf("images.%d", maxImages-1): bson.M{"$exists": false}}
	update := bson.M{"$push": bson.M{"images": key}, "$set": bson.M{"updated_at": store.Now()}}
	err := s.listings.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := exists(ctx, s.listings, bson.M{"_id": id.String()}); err != nil {
			return nil, err
		}
		return nil, store.ErrLimitReached
	}
	if err != nil {
		return nil, errorFor(err)
	}
	l := doc.listing()
	return &l, nil
}

// RemoveListingImage pulls an image key from a listing
func (s *Store) RemoveListingImage(ctx context.Context, id uuid.UUID, key string) (*store.Listing, error) {
	var doc listingDoc
	filter := bson.M{"_id": id.String(), "images": key}
	update := bson.M{"$pull": bson.M{"images": key}, "$set": bson.M{"updated_at": store.Now()}}
	err := s.listings.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, errorFor(err)
	}
	l := doc.listing()
	return &l, nil
}

// DeleteListing deletes a listing
func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) error {
	return deleteOne(ctx, s.listings, id)
}

// CountListings counts listings by status
func (s *Store) CountListings(ctx context.Context, status string) (int, error) {
	return s.count(ctx, s.listings, status)
}

type inquiryDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Email       string    `bson:"email"`
	Phone       string    `bson:"phone"`
	Brand       string    `bson:"brand"`
	Model       string    `bson:"model"`
	Year        int       `bson:"year"`
	Mileage     int       `bson:"mileage"`
	AskingPrice int64     `bson:"asking_price"`
	Message     string    `bson:"message"`
	Status      string    `bson:"status"`
	Notes       string    `bson:"notes"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newInquiryDoc(i *store.Inquiry) inquiryDoc {
	return inquiryDoc{
		ID:          i.ID.String(),
		Name:        i.Name,
		Email:       i.Email,
		Phone:       i.Phone,
		Brand:       i.Brand,
		Model:       i.Model,
		Year:        i.Year,
		Mileage:     i.Mileage,
		AskingPrice: i.AskingPrice,
		Message:     i.Message,
		Status:      i.Status,
		Notes:       i.Notes,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func (d *inquiryDoc) inquiry() store.Inquiry {
	return store.Inquiry{
		ID:          parseID(d.ID),
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Brand:       d.Brand,
		Model:       d.Model,
		Year:        d.Year,
		Mileage:     d.Mileage,
		AskingPrice: d.AskingPrice,
		Message:     d.Message,
		Status:      d.Status,
		Notes:       d.Notes,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// CreateInquiry creates an inquiry
func (s *Store) CreateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	i := *inquiry
	store.PrepareCreate(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if _, err := s.inquiries.InsertOne(ctx, newInquiryDoc(&i)); err != nil {
		return errorFor(err)
	}
	*inquiry = i
	return nil
}

// GetInquiry returns one inquiry
func (s *Store) GetInquiry(ctx context.Context, id uuid.UUID) (*store.Inquiry, error) {
	var doc inquiryDoc
	if err := s.inquiries.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	i := doc.inquiry()
	return &i, nil
}

// ListInquiries returns one page of inquiries, newest first
func (s *Store) ListInquiries(ctx context.Context, filter store.InquiryFilter) ([]store.Inquiry, int, error) {
	query := inquiryQuery(filter)
	total, err := s.inquiries.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := store.Window(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	docs, err := findAll[inquiryDoc](ctx, s.inquiries, query, opts)
	if err != nil {
		return nil, 0, err
	}
	result := make([]store.Inquiry, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].inquiry())
	}
	return result, int(total), nil
}

// UpdateInquiry updates an inquiry
func (s *Store) UpdateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	i := *inquiry
	i.UpdatedAt = store.Now()
	doc := newInquiryDoc(&i)
	var updated inquiryDoc
	err := updateOne(ctx, s.inquiries, i.ID, bson.M{
		"name":         doc.Name,
		"email":        doc.Email,
		"phone":        doc.Phone,
		"brand":        doc.Brand,
		"model":        doc.Model,
		"year":         doc.Year,
		"mileage":      doc.Mileage,
		"asking_price": doc.AskingPrice,
		"message":      doc.Message,
		"status":       doc.Status,
		"notes":        doc.Notes,
		"updated_at":   doc.UpdatedAt,
	}, &updated)
	if err != nil {
		return err
	}
	*inquiry = updated.inquiry()
	return nil
}

// DeleteInquiry deletes an inquiry
func (s *Store) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	return deleteOne(ctx, s.inquiries, id)
}

// CountInquiries counts inquiries by status
func (s *Store) CountInquiries(ctx context.Context, status string) (int, error) {
	return s.count(ctx, s.inquiries, status)
}

type adminDoc struct {
	ID            string    `bson:"_id"`
	Username      string    `bson:"username"`
	UsernameLower string    `bson:"username_lower"`
	PasswordHash  string    `bson:"password_hash"`
	CreatedAt     time.Time `bson:"created_at"`
}

func (d *adminDoc) admin() *store.Admin {
	return &store.Admin{
		ID:           parseID(d.ID),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// CreateAdmin creates an admin
func (s *Store) CreateAdmin(ctx context.Context, admin *store.Admin) error {
	a := *admin
	store.PrepareCreate(&a.ID, &a.CreatedAt, nil)
	_, err := s.admins.InsertOne(ctx, adminDoc{
		ID:            a.ID.String(),
		Username:      a.Username,
		UsernameLower: strings.ToLower(a.Username),
		PasswordHash:  a.PasswordHash,
		CreatedAt:     a.CreatedAt,
	})
	if err != nil {
		return errorFor(err)
	}
	*admin = a
	return nil
}

// GetAdmin returns an admin by id
func (s *Store) GetAdmin(ctx context.Context, id uuid.UUID) (*store.Admin, error) {
	var doc adminDoc
	if err := s.admins.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	return doc.admin(), nil
}

// GetAdminByUsername returns an admin by username, case-insensitive
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*store.Admin, error) {
	var doc adminDoc
	if err := s.admins.FindOne(ctx, bson.M{"username_lower": strings.ToLower(username)}).Decode(&doc); err != nil {
		return nil, errorFor(err)
	}
	return doc.admin(), nil
}
