// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/kss"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

// imageURLExpiry is the lifetime of signed image download URLs
const imageURLExpiry = time.Hour

type listingPayload struct {
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
	Images       []string  `json:"images,omitempty"`
	Status       string    `json:"status,omitempty"`
	Featured     bool      `json:"featured"`
}

func (p *listingPayload) listing() *store.Listing {
	return &store.Listing{
		Title:        strings.TrimSpace(p.Title),
		BrandID:      p.BrandID,
		ModelID:      p.ModelID,
		Year:         p.Year,
		Price:        p.Price,
		Mileage:      p.Mileage,
		FuelType:     p.FuelType,
		Transmission: p.Transmission,
		BodyType:     p.BodyType,
		Color:        p.Color,
		Description:  p.Description,
		Images:       p.Images,
		Status:       p.Status,
		Featured:     p.Featured,
	}
}

// listingResponse is a listing with the names of brand and model and signed image URLs.
// Lists carry a thumbnail only.
type listingResponse struct {
	store.Listing
	BrandName    string   `json:"brand_name"`
	ModelName    string   `json:"model_name"`
	ImageURLs    []string `json:"image_urls,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// listingPrefix is the storage prefix of all images of a listing
func listingPrefix(id uuid.UUID) string {
	return "listings/" + id.String() + "/"
}

func (a *API) handleListings(public, admin *mux.Router) {
	handle(public, "/listings", a.listListings, http.MethodGet)
	handle(public, "/listings/{listing_id}", a.getListing, http.MethodGet)

	handle(admin, "/listings", a.listListings, http.MethodGet)
	handle(admin, "/listings", a.createListing, http.MethodPost)
	handle(admin, "/listings/{listing_id}", a.getListing, http.MethodGet)
	handle(admin, "/listings/{listing_id}", a.updateListing, http.MethodPut)
	handle(admin, "/listings/{listing_id}", a.deleteListing, http.MethodDelete)
}

// imageURL returns a signed download URL for key, or an empty string if there is no storage
func (a *API) imageURL(ctx context.Context, key string) string {
	if a.kss == nil {
		return ""
	}
	u, err := a.kss.GetPreSignedURL(ctx, kss.Get, key, imageURLExpiry)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warnln("cannot sign image", key)
		return ""
	}
	return u
}

// names returns the names of all brands and models by id
func (a *API) names(ctx context.Context) (map[uuid.UUID]string, map[uuid.UUID]string, error) {
	brands, err := a.store.ListBrands(ctx)
	if err != nil {
		return nil, nil, err
	}
	models, err := a.store.ListModels(ctx, uuid.Nil)
	if err != nil {
		return nil, nil, err
	}
	brandNames := make(map[uuid.UUID]string, len(brands))
	for _, b := range brands {
		brandNames[b.ID] = b.Name
	}
	modelNames := make(map[uuid.UUID]string, len(models))
	for _, m := range models {
		modelNames[m.ID] = m.Name
	}
	return brandNames, modelNames, nil
}

func (a *API) listListings(w http.ResponseWriter, r *http.Request) {
	filter, err := store.ParseListingFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4731)
		return
	}
	listings, total, err := a.store.ListListings(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4732)
		return
	}
	brandNames, modelNames, err := a.names(r.Context())
	if err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4733)
		return
	}
	response := make([]listingResponse, len(listings))
	for i := range listings {
		l := &listings[i]
		response[i] = listingResponse{
			Listing:   *l,
			BrandName: brandNames[l.BrandID],
			ModelName: modelNames[l.ModelID],
		}
		if len(l.Images) > 0 {
			response[i].ThumbnailURL = a.imageURL(r.Context(), l.Images[0])
		}
	}
	writePagination(w, filter.Page, filter.Limit, total)
	writeJSON(w, r, http.StatusOK, response)
}

// listingDetails returns the response for a single listing
func (a *API) listingDetails(ctx context.Context, listing *store.Listing) (*listingResponse, error) {
	response := &listingResponse{Listing: *listing, ImageURLs: []string{}}
	brand, err := a.store.GetBrand(ctx, listing.BrandID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if brand != nil {
		response.BrandName = brand.Name
	}
	model, err := a.store.GetModel(ctx, listing.ModelID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if model != nil {
		response.ModelName = model.Name
	}
	for _, key := range listing.Images {
		if u := a.imageURL(ctx, key); u != "" {
			response.ImageURLs = append(response.ImageURLs, u)
		}
	}
	return response, nil
}

func (a *API) getListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listing_id")
	if !ok {
		return
	}
	listing, err := a.store.GetListing(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4734)
		return
	}
	response, err := a.listingDetails(r.Context(), listing)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4735)
		return
	}
	writeJSON(w, r, http.StatusOK, response)
}

// checkReferences checks that brand and model of the listing exist and that the model
// belongs to the brand. It answers the request itself if they do not.
func (a *API) checkReferences(w http.ResponseWriter, r *http.Request, listing *store.Listing) bool {
	if _, err := a.store.GetBrand(r.Context(), listing.BrandID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown brand_id", http.StatusBadRequest)
		} else {
			respondWithError(w, r, err, core.ResourceBrand, 4736)
		}
		return false
	}
	model, err := a.store.GetModel(r.Context(), listing.ModelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown model_id", http.StatusBadRequest)
		} else {
			respondWithError(w, r, err, core.ResourceModel, 4736)
		}
		return false
	}
	if model.BrandID != listing.BrandID {
		http.Error(w, "model_id does not belong to brand_id", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *API) createListing(w http.ResponseWriter, r *http.Request) {
	var payload listingPayload
	if err := a.readBody(r, schema.ListingID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4737)
		return
	}
	if len(payload.Images) > 0 {
		http.Error(w, "images are added with the images route of the listing", http.StatusBadRequest)
		return
	}
	listing := payload.listing()
	if !a.checkReferences(w, r, listing) {
		return
	}
	if listing.Status == "" {
		listing.Status = store.StatusAvailable
	}
	listing.Images = []string{}
	if err := a.store.CreateListing(r.Context(), listing); err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4738)
		return
	}
	a.notify(r.Context(), core.ResourceListing, core.OperationCreate, listing.ID, listing)
	response, err := a.listingDetails(r.Context(), listing)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4739)
		return
	}
	writeJSON(w, r, http.StatusCreated, response)
}

// updateListing replaces a listing. Omitted images keep the current images. Given images
// may reorder or drop current images, dropped images are removed from the storage.
func (a *API) updateListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listing_id")
	if !ok {
		return
	}
	var payload listingPayload
	if err := a.readBody(r, schema.ListingID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4740)
		return
	}
	existing, err := a.store.GetListing(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4741)
		return
	}
	listing := payload.listing()
	listing.ID = id
	if !a.checkReferences(w, r, listing) {
		return
	}
	if listing.Status == "" {
		listing.Status = existing.Status
	}

	var dropped []string
	if listing.Images == nil {
		listing.Images = existing.Images
	} else {
		kept := make(map[string]bool, len(listing.Images))
		for _, key := range listing.Images {
			if !store.Contains(existing.Images, key) || kept[key] {
				http.Error(w, "unknown or duplicate image "+key, http.StatusBadRequest)
				return
			}
			kept[key] = true
		}
		for _, key := range existing.Images {
			if !kept[key] {
				dropped = append(dropped, key)
			}
		}
	}

	if err := a.store.UpdateListing(r.Context(), listing); err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4742)
		return
	}
	a.deleteImages(r.Context(), dropped)
	a.notify(r.Context(), core.ResourceListing, core.OperationUpdate, listing.ID, listing)
	response, err := a.listingDetails(r.Context(), listing)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4743)
		return
	}
	writeJSON(w, r, http.StatusOK, response)
}

// deleteImages removes images from the storage. Failures are logged only, the listing no
// longer references the images.
func (a *API) deleteImages(ctx context.Context, keys []string) {
	if a.kss == nil {
		return
	}
	for _, key := range keys {
		if err := a.kss.Delete(ctx, key); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("Error 4744: cannot delete image", key)
		}
	}
}

func (a *API) deleteListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listing_id")
	if !ok {
		return
	}
	if err := a.store.DeleteListing(r.Context(), id); err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4745)
		return
	}
	if a.kss != nil {
		if err := a.kss.DeleteAllWithPrefix(r.Context(), listingPrefix(id)); err != nil {
			logger.FromContext(r.Context()).WithError(err).Errorln("Error 4746: cannot delete images of listing", id)
		}
	}
	a.notify(r.Context(), core.ResourceListing, core.OperationDelete, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
