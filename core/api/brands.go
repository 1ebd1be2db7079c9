// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

type brandPayload struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

func (a *API) handleBrands(public, admin *mux.Router) {
	handle(public, "/brands", a.listBrands, http.MethodGet)
	handle(public, "/brands/{brand_id}", a.getBrand, http.MethodGet)
	handle(public, "/brands/{brand_id}/models", a.listBrandModels, http.MethodGet)

	handle(admin, "/brands", a.createBrand, http.MethodPost)
	handle(admin, "/brands/{brand_id}", a.updateBrand, http.MethodPut)
	handle(admin, "/brands/{brand_id}", a.deleteBrand, http.MethodDelete)
}

func (a *API) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := a.store.ListBrands(r.Context())
	if err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4711)
		return
	}
	writeJSON(w, r, http.StatusOK, brands)
}

func (a *API) getBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "brand_id")
	if !ok {
		return
	}
	brand, err := a.store.GetBrand(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4712)
		return
	}
	writeJSON(w, r, http.StatusOK, brand)
}

func (a *API) listBrandModels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "brand_id")
	if !ok {
		return
	}
	if _, err := a.store.GetBrand(r.Context(), id); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4713)
		return
	}
	models, err := a.store.ListModels(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4714)
		return
	}
	writeJSON(w, r, http.StatusOK, models)
}

func (a *API) createBrand(w http.ResponseWriter, r *http.Request) {
	var payload brandPayload
	if err := a.readBody(r, schema.BrandID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4715)
		return
	}
	brand := &store.Brand{Name: strings.TrimSpace(payload.Name), LogoURL: payload.LogoURL}
	if store.Slugify(brand.Name) == "" {
		http.Error(w, "brand name needs at least one letter or digit", http.StatusBadRequest)
		return
	}
	if err := a.store.CreateBrand(r.Context(), brand); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4716)
		return
	}
	writeJSON(w, r, http.StatusCreated, brand)
}

func (a *API) updateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "brand_id")
	if !ok {
		return
	}
	var payload brandPayload
	if err := a.readBody(r, schema.BrandID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4717)
		return
	}
	brand := &store.Brand{ID: id, Name: strings.TrimSpace(payload.Name), LogoURL: payload.LogoURL}
	if store.Slugify(brand.Name) == "" {
		http.Error(w, "brand name needs at least one letter or digit", http.StatusBadRequest)
		return
	}
	if err := a.store.UpdateBrand(r.Context(), brand); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4718)
		return
	}
	writeJSON(w, r, http.StatusOK, brand)
}

func (a *API) deleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "brand_id")
	if !ok {
		return
	}
	if err := a.store.DeleteBrand(r.Context(), id); err != nil {
		respondWithError(w, r, err, core.ResourceBrand, 4719)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
