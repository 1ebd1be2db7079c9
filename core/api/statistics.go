// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/store"
)

// statistics are the counts shown on the back office dashboard. Both maps have a
// "total" entry plus one entry per status.
type statistics struct {
	Listings  map[string]int `json:"listings"`
	Inquiries map[string]int `json:"inquiries"`
}

func (a *API) handleStatistics(admin *mux.Router) {
	logger.Default().Debugln("statistics")
	handle(admin, "/statistics", a.statistics, http.MethodGet)
}

func (a *API) statistics(w http.ResponseWriter, r *http.Request) {
	s := statistics{
		Listings:  map[string]int{},
		Inquiries: map[string]int{},
	}
	for _, status := range append([]string{""}, store.ListingStatuses...) {
		count, err := a.store.CountListings(r.Context(), status)
		if err != nil {
			respondWithError(w, r, err, core.ResourceListing, 4781)
			return
		}
		s.Listings[statusKey(status)] = count
	}
	for _, status := range append([]string{""}, store.InquiryStatuses...) {
		count, err := a.store.CountInquiries(r.Context(), status)
		if err != nil {
			respondWithError(w, r, err, core.ResourceInquiry, 4782)
			return
		}
		s.Inquiries[statusKey(status)] = count
	}
	writeJSON(w, r, http.StatusOK, s)
}

func statusKey(status string) string {
	if status == "" {
		return "total"
	}
	return status
}
