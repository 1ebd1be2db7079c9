/*
Package memory is the in-process implementation of store.Store.

It is meant for development and tests. Objects are copied on the way in and
on the way out, callers never share memory with the store.
*/
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/carlot/core/store"
)

// Store keeps everything in maps
type Store struct {
	mutex     sync.RWMutex
	brands    map[uuid.UUID]store.Brand
	models    map[uuid.UUID]store.Model
	listings  map[uuid.UUID]store.Listing
	inquiries map[uuid.UUID]store.Inquiry
	admins    map[uuid.UUID]store.Admin
}

var _ store.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		brands:    make(map[uuid.UUID]store.Brand),
		models:    make(map[uuid.UUID]store.Model),
		listings:  make(map[uuid.UUID]store.Listing),
		inquiries: make(map[uuid.UUID]store.Inquiry),
		admins:    make(map[uuid.UUID]store.Admin),
	}
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// ListBrands returns all brands ordered by slug
func (s *Store) ListBrands(ctx context.Context) ([]store.Brand, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	brands := []store.Brand{}
	for _, b := range s.brands {
		brands = append(brands, b)
	}
	sortByName(brands, func(b store.Brand) string { return b.Slug })
	return brands, nil
}

// GetBrand returns one brand
func (s *Store) GetBrand(ctx context.Context, id uuid.UUID) (*store.Brand, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) brandNameTaken(name string, except uuid.UUID) bool {
	for id, b := range s.brands {
		if id != except && strings.EqualFold(b.Name, name) {
			return true
		}
	}
	return false
}

// CreateBrand creates a brand
func (s *Store) CreateBrand(ctx context.Context, brand *store.Brand) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.brands[brand.ID]; ok || s.brandNameTaken(brand.Name, uuid.Nil) {
		return store.ErrConflict
	}
	store.PrepareCreate(&brand.ID, &brand.CreatedAt, &brand.UpdatedAt)
	brand.Slug = store.Slugify(brand.Name)
	s.brands[brand.ID] = *brand
	return nil
}

// UpdateBrand updates a brand
func (s *Store) UpdateBrand(ctx context.Context, brand *store.Brand) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.brands[brand.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.brandNameTaken(brand.Name, brand.ID) {
		return store.ErrConflict
	}
	brand.CreatedAt = existing.CreatedAt
	brand.UpdatedAt = store.Now()
	brand.Slug = store.Slugify(brand.Name)
	s.brands[brand.ID] = *brand
	return nil
}

// DeleteBrand deletes a brand which has neither models nor listings
func (s *Store) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.brands[id]; !ok {
		return store.ErrNotFound
	}
	for _, m := range s.models {
		if m.BrandID == id {
			return store.ErrInUse
		}
	}
	for _, l := range s.listings {
		if l.BrandID == id {
			return store.ErrInUse
		}
	}
	delete(s.brands, id)
	return nil
}

// ListModels returns the models of a brand ordered by slug, or all models for uuid.Nil
func (s *Store) ListModels(ctx context.Context, brandID uuid.UUID) ([]store.Model, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	models := []store.Model{}
	for _, m := range s.models {
		if brandID == uuid.Nil || m.BrandID == brandID {
			models = append(models, m)
		}
	}
	sortByName(models, func(m store.Model) string { return m.Slug })
	return models, nil
}

// GetModel returns one model
func (s *Store) GetModel(ctx context.Context, id uuid.UUID) (*store.Model, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) modelNameTaken(brandID uuid.UUID, name string, except uuid.UUID) bool {
	for id, m := range s.models {
		if id != except && m.BrandID == brandID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

// CreateModel creates a model. The brand must exist.
func (s *Store) CreateModel(ctx context.Context, model *store.Model) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.brands[model.BrandID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.models[model.ID]; ok || s.modelNameTaken(model.BrandID, model.Name, uuid.Nil) {
		return store.ErrConflict
	}
	store.PrepareCreate(&model.ID, &model.CreatedAt, &model.UpdatedAt)
	model.Slug = store.Slugify(model.Name)
	s.models[model.ID] = *model
	return nil
}

// UpdateModel updates a model
func (s *Store) UpdateModel(ctx context.Context, model *store.Model) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.models[model.ID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := s.brands[model.BrandID]; !ok {
		return store.ErrNotFound
	}
	if s.modelNameTaken(model.BrandID, model.Name, model.ID) {
		return store.ErrConflict
	}
	model.CreatedAt = existing.CreatedAt
	model.UpdatedAt = store.Now()
	model.Slug = store.Slugify(model.Name)
	s.models[model.ID] = *model
	return nil
}

// DeleteModel deletes a model which has no listings
func (s *Store) DeleteModel(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.models[id]; !ok {
		return store.ErrNotFound
	}
	for _, l := range s.listings {
		if l.ModelID == id {
			return store.ErrInUse
		}
	}
	delete(s.models, id)
	return nil
}

// ListListings filters, sorts and pages listings
func (s *Store) ListListings(ctx context.Context, filter store.ListingFilter) ([]store.Listing, int, error) {
	s.mutex.RLock()
	matches := []store.Listing{}
	for _, l := range s.listings {
		if filter.Matches(&l) {
			matches = append(matches, copyListing(l))
		}
	}
	s.mutex.RUnlock()

	store.SortListings(matches, filter.Sort)
	total := len(matches)
	offset, limit := store.Window(filter.Page, filter.Limit)
	return page(matches, offset, limit), total, nil
}

// GetListing returns one listing
func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*store.Listing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	l = copyListing(l)
	return &l, nil
}

// CreateListing creates a listing
func (s *Store) CreateListing(ctx context.Context, listing *store.Listing) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.listings[listing.ID]; ok {
		return store.ErrConflict
	}
	if err := s.checkReferences(listing); err != nil {
		return err
	}
	store.PrepareCreate(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt)
	if listing.Images == nil {
		listing.Images = []string{}
	}
	s.listings[listing.ID] = copyListing(*listing)
	return nil
}

// UpdateListing updates a listing
func (s *Store) UpdateListing(ctx context.Context, listing *store.Listing) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.listings[listing.ID]
	if !ok {
		return store.ErrNotFound
	}
	if err := s.checkReferences(listing); err != nil {
		return err
	}
	listing.CreatedAt = existing.CreatedAt
	listing.UpdatedAt = store.Now()
	if listing.Images == nil {
		listing.Images = []string{}
	}
	s.listings[listing.ID] = copyListing(*listing)
	return nil
}

// AddListingImage appends an image key to a listing
func (s *Store) AddListingImage(ctx context.Context, id uuid.UUID, key string, maxImages int) (*store.Listing, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if len(l.Images) >= maxImages {
		return nil, store.ErrLimitReached
	}
	l = copyListing(l)
	l.Images = append(l.Images, key)
	l.UpdatedAt = store.Now()
	s.listings[id] = l
	l = copyListing(l)
	return &l, nil
}

// RemoveListingImage removes an image key from a listing
func (s *Store) RemoveListingImage(ctx context.Context, id uuid.UUID, key string) (*store.Listing, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, ok := s.listings[id]
	if !ok || !store.Contains(l.Images, key) {
		return nil, store.ErrNotFound
	}
	images := make([]string, 0, len(l.Images))
	for _, image := range l.Images {
		if image != key {
			images = append(images, image)
		}
	}
	l.Images = images
	l.UpdatedAt = store.Now()
	s.listings[id] = l
	l = copyListing(l)
	return &l, nil
}

// DeleteListing deletes a listing
func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.listings[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

// CountListings counts listings by status
func (s *Store) CountListings(ctx context.Context, status string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	count := 0
	for _, l := range s.listings {
		if status == "" || l.Status == status {
			count++
		}
	}
	return count, nil
}

// CreateInquiry creates an inquiry
func (s *Store) CreateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.inquiries[inquiry.ID]; ok {
		return store.ErrConflict
	}
	store.PrepareCreate(&inquiry.ID, &inquiry.CreatedAt, &inquiry.UpdatedAt)
	s.inquiries[inquiry.ID] = *inquiry
	return nil
}

// GetInquiry returns one inquiry
func (s *Store) GetInquiry(ctx context.Context, id uuid.UUID) (*store.Inquiry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	i, ok := s.inquiries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &i, nil
}

// ListInquiries returns one page of inquiries, newest first
func (s *Store) ListInquiries(ctx context.Context, filter store.InquiryFilter) ([]store.Inquiry, int, error) {
	s.mutex.RLock()
	matches := []store.Inquiry{}
	for _, i := range s.inquiries {
		if filter.Matches(&i) {
			matches = append(matches, i)
		}
	}
	s.mutex.RUnlock()

	sortNewestFirst(matches)
	total := len(matches)
	offset, limit := store.Window(filter.Page, filter.Limit)
	return page(matches, offset, limit), total, nil
}

// UpdateInquiry updates an inquiry
func (s *Store) UpdateInquiry(ctx context.Context, inquiry *store.Inquiry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, ok := s.inquiries[inquiry.ID]
	if !ok {
		return store.ErrNotFound
	}
	inquiry.CreatedAt = existing.CreatedAt
	inquiry.UpdatedAt = store.Now()
	s.inquiries[inquiry.ID] = *inquiry
	return nil
}

// DeleteInquiry deletes an inquiry
func (s *Store) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.inquiries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.inquiries, id)
	return nil
}

// CountInquiries counts inquiries by status
func (s *Store) CountInquiries(ctx context.Context, status string) (int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	count := 0
	for _, i := range s.inquiries {
		if status == "" || i.Status == status {
			count++
		}
	}
	return count, nil
}

// CreateAdmin creates an admin. Usernames are unique.
func (s *Store) CreateAdmin(ctx context.Context, admin *store.Admin) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, a := range s.admins {
		if id == admin.ID || strings.EqualFold(a.Username, admin.Username) {
			return store.ErrConflict
		}
	}
	store.PrepareCreate(&admin.ID, &admin.CreatedAt, nil)
	s.admins[admin.ID] = *admin
	return nil
}

// GetAdmin returns an admin by id
func (s *Store) GetAdmin(ctx context.Context, id uuid.UUID) (*store.Admin, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

// GetAdminByUsername returns an admin by username, case-insensitive
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*store.Admin, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, a := range s.admins {
		if strings.EqualFold(a.Username, username) {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

// checkReferences mirrors the foreign keys of the relational store
func (s *Store) checkReferences(listing *store.Listing) error {
	if _, ok := s.brands[listing.BrandID]; !ok {
		return store.ErrNotFound
	}
	if _, ok := s.models[listing.ModelID]; !ok {
		return store.ErrNotFound
	}
	return nil
}

func copyListing(l store.Listing) store.Listing {
	images := make([]string, len(l.Images))
	copy(images, l.Images)
	l.Images = images
	return l
}
