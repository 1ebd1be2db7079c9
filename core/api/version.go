package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core/logger"
)

var (
	// Version is the version of the curent build
	Version = "unset"
)

func (a *API) handleVersion(router *mux.Router) {
	logger.Default().Debugln("version")
	handle(router, "/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"version": Version})
	}, http.MethodGet)
}

// handleHealth adds /healthz, which checks that the store answers
func (a *API) handleHealth(router *mux.Router) {
	handle(router, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := a.store.CountListings(ctx, ""); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("Error 4702: health check")
			http.Error(w, "Error 4702", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"status":"ok"}`))
	}, http.MethodGet)
}
