package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

type modelPayload struct {
	BrandID uuid.UUID `json:"brand_id"`
	Name    string    `json:"name"`
}

func (a *API) handleModels(public, admin *mux.Router) {
	handle(public, "/models", a.listModels, http.MethodGet)
	handle(public, "/models/{model_id}", a.getModel, http.MethodGet)

	handle(admin, "/models", a.createModel, http.MethodPost)
	handle(admin, "/models/{model_id}", a.updateModel, http.MethodPut)
	handle(admin, "/models/{model_id}", a.deleteModel, http.MethodDelete)
}

// listModels lists all models, or the models of brand_id
func (a *API) listModels(w http.ResponseWriter, r *http.Request) {
	brandID := uuid.Nil
	if v := r.URL.Query().Get("brand_id"); v != "" {
		var err error
		if brandID, err = uuid.Parse(v); err != nil {
			http.Error(w, "parameter 'brand_id': not a uuid", http.StatusBadRequest)
			return
		}
	}
	models, err := a.store.ListModels(r.Context(), brandID)
	if err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4721)
		return
	}
	writeJSON(w, r, http.StatusOK, models)
}

func (a *API) getModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "model_id")
	if !ok {
		return
	}
	model, err := a.store.GetModel(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4722)
		return
	}
	writeJSON(w, r, http.StatusOK, model)
}

// readModel reads and checks a model payload. It answers the request itself if the
// payload is not acceptable.
func (a *API) readModel(w http.ResponseWriter, r *http.Request, errorCode int) (*store.Model, bool) {
	var payload modelPayload
	if err := a.readBody(r, schema.ModelID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceModel, errorCode)
		return nil, false
	}
	model := &store.Model{BrandID: payload.BrandID, Name: strings.TrimSpace(payload.Name)}
	if store.Slugify(model.Name) == "" {
		http.Error(w, "model name needs at least one letter or digit", http.StatusBadRequest)
		return nil, false
	}
	if _, err := a.store.GetBrand(r.Context(), model.BrandID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "unknown brand_id", http.StatusBadRequest)
		} else {
			respondWithError(w, r, err, core.ResourceBrand, errorCode)
		}
		return nil, false
	}
	return model, true
}

func (a *API) createModel(w http.ResponseWriter, r *http.Request) {
	model, ok := a.readModel(w, r, 4723)
	if !ok {
		return
	}
	if err := a.store.CreateModel(r.Context(), model); err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4724)
		return
	}
	writeJSON(w, r, http.StatusCreated, model)
}

func (a *API) updateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "model_id")
	if !ok {
		return
	}
	model, ok := a.readModel(w, r, 4725)
	if !ok {
		return
	}
	model.ID = id
	existing, err := a.store.GetModel(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4726)
		return
	}
	if existing.BrandID != model.BrandID {
		// listings must keep a model of their own brand
		_, count, err := a.store.ListListings(r.Context(), store.ListingFilter{ModelID: id, Limit: 1})
		if err != nil {
			respondWithError(w, r, err, core.ResourceListing, 4729)
			return
		}
		if count > 0 {
			http.Error(w, "model is still in use, cannot move it to another brand", http.StatusConflict)
			return
		}
	}
	if err := a.store.UpdateModel(r.Context(), model); err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4728)
		return
	}
	writeJSON(w, r, http.StatusOK, model)
}

func (a *API) deleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "model_id")
	if !ok {
		return
	}
	if err := a.store.DeleteModel(r.Context(), id); err != nil {
		respondWithError(w, r, err, core.ResourceModel, 4727)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
