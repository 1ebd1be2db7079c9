package client

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/carlot/core/access"
)

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		auth := access.AuthorizationFromContext(r.Context())
		if auth == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(`{"username":"` + auth.Username + `","bearer":"` + r.Header.Get("Authorization") + `"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusCreated)
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}).Methods(http.MethodPost)
	router.HandleFunc("/numbers", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("Pagination-Total-Count", "5")
		w.Header().Set("Pagination-Page-Count", "3")
		switch page {
		case 1:
			w.Write([]byte(`[1,2]`))
		case 2:
			w.Write([]byte(`[3,4]`))
		default:
			w.Write([]byte(`[5]`))
		}
	}).Methods(http.MethodGet)
	router.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	return router
}

func TestClient_Authorization(t *testing.T) {
	cl := NewWithRouter(newTestRouter())

	status, err := cl.RawGet("/whoami", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status)

	var who map[string]string
	_, err = cl.WithAuthorization(&access.Authorization{Username: "anna"}).RawGet("/whoami", &who)
	require.NoError(t, err)
	assert.Equal(t, "anna", who["username"])

	_, err = cl.WithAdminAuthorization().WithToken("abc").RawGet("/whoami", &who)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", who["bearer"])
}

func TestClient_Post(t *testing.T) {
	cl := NewWithRouter(newTestRouter())
	var result map[string]int
	status, err := cl.RawPost("/echo", map[string]int{"a": 1}, &result)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, result["a"])

	status, err = cl.RawPost("/gone", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClient_WithHeaderDoesNotLeak(t *testing.T) {
	base := NewWithRouter(newTestRouter())
	withHeader := base.WithHeader("X-Test", "yes")
	assert.Empty(t, base.defaultHeaders)
	assert.Equal(t, "yes", withHeader.defaultHeaders["X-Test"])
}

func TestClient_Pages(t *testing.T) {
	cl := NewWithRouter(newTestRouter())
	all := []int{}
	for page := cl.FirstPage("/numbers", url.Values{"limit": {"2"}}); page.HasData(); page = page.Next() {
		var numbers []int
		_, err := page.Get(&numbers)
		require.NoError(t, err)
		assert.Equal(t, 5, page.TotalCount())
		all = append(all, numbers...)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, all)
}
