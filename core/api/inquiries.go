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

type inquiryPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	Mileage     int    `json:"mileage"`
	AskingPrice int64  `json:"asking_price"`
	Message     string `json:"message"`
}

type inquiryUpdatePayload struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (a *API) handleInquiries(public, admin *mux.Router) {
	handle(public, "/inquiries", a.limit(a.inquiryLimiter, a.createInquiry), http.MethodPost)

	handle(admin, "/inquiries", a.listInquiries, http.MethodGet)
	handle(admin, "/inquiries/{inquiry_id}", a.getInquiry, http.MethodGet)
	handle(admin, "/inquiries/{inquiry_id}", a.updateInquiry, http.MethodPatch)
	handle(admin, "/inquiries/{inquiry_id}", a.deleteInquiry, http.MethodDelete)
}

// createInquiry stores a "sell your car" inquiry from the storefront. Status and notes
// are reserved for the back office.
func (a *API) createInquiry(w http.ResponseWriter, r *http.Request) {
	var payload inquiryPayload
	if err := a.readBody(r, schema.InquiryID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4761)
		return
	}
	inquiry := &store.Inquiry{
		Name:        strings.TrimSpace(payload.Name),
		Email:       strings.TrimSpace(payload.Email),
		Phone:       strings.TrimSpace(payload.Phone),
		Brand:       strings.TrimSpace(payload.Brand),
		Model:       strings.TrimSpace(payload.Model),
		Year:        payload.Year,
		Mileage:     payload.Mileage,
		AskingPrice: payload.AskingPrice,
		Message:     payload.Message,
		Status:      store.InquiryNew,
	}
	if err := a.store.CreateInquiry(r.Context(), inquiry); err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4762)
		return
	}
	a.notify(r.Context(), core.ResourceInquiry, core.OperationCreate, inquiry.ID, inquiry)
	writeJSON(w, r, http.StatusCreated, inquiry)
}

func (a *API) listInquiries(w http.ResponseWriter, r *http.Request) {
	filter, err := store.ParseInquiryFilter(r.URL.Query())
	if err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4763)
		return
	}
	inquiries, total, err := a.store.ListInquiries(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4764)
		return
	}
	if inquiries == nil {
		inquiries = []store.Inquiry{}
	}
	writePagination(w, filter.Page, filter.Limit, total)
	writeJSON(w, r, http.StatusOK, inquiries)
}

func (a *API) getInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "inquiry_id")
	if !ok {
		return
	}
	inquiry, err := a.store.GetInquiry(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4765)
		return
	}
	writeJSON(w, r, http.StatusOK, inquiry)
}

// updateInquiry updates status and notes of an inquiry
func (a *API) updateInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "inquiry_id")
	if !ok {
		return
	}
	var payload inquiryUpdatePayload
	if err := a.readBody(r, schema.InquiryUpdateID, &payload); err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4766)
		return
	}
	inquiry, err := a.store.GetInquiry(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4767)
		return
	}
	if payload.Status != nil {
		inquiry.Status = *payload.Status
	}
	if payload.Notes != nil {
		inquiry.Notes = *payload.Notes
	}
	if err := a.store.UpdateInquiry(r.Context(), inquiry); err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4768)
		return
	}
	writeJSON(w, r, http.StatusOK, inquiry)
}

func (a *API) deleteInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "inquiry_id")
	if !ok {
		return
	}
	if err := a.store.DeleteInquiry(r.Context(), id); err != nil {
		respondWithError(w, r, err, core.ResourceInquiry, 4769)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
