package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

// maxBodySize limits the size of request bodies
const maxBodySize = 1 << 20

// writeJSON writes value as JSON. Successful GET responses carry an Etag and are
// answered with http.StatusNotModified when the client already has them.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, value interface{}) {
	jsonData, err := json.MarshalWithOption(value, json.DisableHTMLEscape())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorln("Error 4701: cannot marshal response")
		http.Error(w, "Error 4701", http.StatusInternalServerError)
		return
	}
	if r.Method == http.MethodGet && status == http.StatusOK {
		etag := bytesToEtag(jsonData)
		w.Header().Set("Etag", etag)
		if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

func bytesToEtag(b []byte) string {
	hash := sha256.Sum256(b)
	return `"` + hex.EncodeToString(hash[:16]) + `"`
}

func ifNoneMatchFound(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.Trim(ifNoneMatch, " ")
	if len(ifNoneMatch) == 0 {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	t := strings.Trim(etag, " \"")
	for _, s := range strings.Split(ifNoneMatch, ",") {
		s = strings.TrimPrefix(strings.Trim(s, " "), "W/")
		if strings.Trim(s, "\"") == t {
			return true
		}
	}
	return false
}

// writePagination sets the pagination headers of list responses
func writePagination(w http.ResponseWriter, page, limit, totalCount int) {
	w.Header().Set("Pagination-Limit", strconv.Itoa(limit))
	w.Header().Set("Pagination-Total-Count", strconv.Itoa(totalCount))
	w.Header().Set("Pagination-Page-Count", strconv.Itoa(((totalCount-1)/limit)+1))
	w.Header().Set("Pagination-Current-Page", strconv.Itoa(page))
}

// readBody reads the request body and validates it against schemaID before unmarshalling
// it into target
func (a *API) readBody(r *http.Request, schemaID string, target interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return err
	}
	if len(body) > maxBodySize {
		return &schema.ValidationError{SchemaID: schemaID, Details: []string{"body too large"}}
	}
	if err := a.validator.ValidateBytes(body, schemaID); err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &schema.ValidationError{SchemaID: schemaID, Details: []string{err.Error()}}
	}
	return nil
}

// pathID parses the uuid path variable name
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// respondWithError maps err to a response. Errors the client can fix are answered
// with 4xx, everything else is logged with errorCode and answered with
// http.StatusInternalServerError.
func respondWithError(w http.ResponseWriter, r *http.Request, err error, resource string, errorCode int) {
	var validationErr *schema.ValidationError
	var filterErr *store.FilterError
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "no such "+resource, http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		http.Error(w, resource+" already exists", http.StatusConflict)
	case errors.Is(err, store.ErrInUse):
		http.Error(w, resource+" is still in use", http.StatusConflict)
	case errors.As(err, &validationErr), errors.As(err, &filterErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.FromContext(r.Context()).WithError(err).Errorf("Error %d: %s %s", errorCode, r.Method, resource)
		http.Error(w, fmt.Sprintf("Error %d", errorCode), http.StatusInternalServerError)
	}
}
