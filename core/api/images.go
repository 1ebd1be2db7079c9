package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core"
	"github.com/relabs-tech/carlot/core/kss"
	"github.com/relabs-tech/carlot/core/store"
)

// uploadURLExpiry is the lifetime of signed upload URLs
const uploadURLExpiry = 15 * time.Minute

// MaxImages is the maximum number of images per listing
const MaxImages = 30

// imageExtensions are the file extensions kept in image keys
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

type imageUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleImages(admin *mux.Router) {
	handle(admin, "/listings/{listing_id}/images", a.createImage, http.MethodPost)
	handle(admin, "/listings/{listing_id}/images/{image}", a.deleteImage, http.MethodDelete)
}

// imageKey returns a new storage key for an image of the listing. The extension of
// filename is kept if it is a known image extension.
func imageKey(listingID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !store.Contains(imageExtensions, ext) {
		ext = ""
	}
	return listingPrefix(listingID) + uuid.NewString() + ext
}

// createImage reserves a new image for a listing. The key is appended to the images of
// the listing, the client uploads the image to the returned URL.
//
// The optional body {"filename": "front.jpg"} selects the extension of the key.
func (a *API) createImage(w http.ResponseWriter, r *http.Request) {
	if a.kss == nil {
		http.Error(w, "image storage is not configured", http.StatusNotImplemented)
		return
	}
	id, ok := pathID(w, r, "listing_id")
	if !ok {
		return
	}
	var payload struct {
		Filename string `json:"filename"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4751)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	key := imageKey(id, payload.Filename)
	uploadURL, err := a.kss.GetPreSignedURL(r.Context(), kss.Put, key, uploadURLExpiry)
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4753)
		return
	}
	listing, err := a.store.AddListingImage(r.Context(), id, key, MaxImages)
	if errors.Is(err, store.ErrLimitReached) {
		http.Error(w, "too many images", http.StatusConflict)
		return
	}
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4754)
		return
	}
	a.notify(r.Context(), core.ResourceListing, core.OperationUpdate, listing.ID, listing)
	writeJSON(w, r, http.StatusCreated, imageUpload{
		Key:       key,
		UploadURL: uploadURL,
		ExpiresAt: time.Now().Add(uploadURLExpiry).UTC(),
	})
}

// deleteImage removes an image from a listing and from the storage. The image is the
// last path element of the key.
func (a *API) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "listing_id")
	if !ok {
		return
	}
	key := listingPrefix(id) + mux.Vars(r)["image"]
	if err := kss.ValidKey(key); err != nil {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	listing, err := a.store.RemoveListingImage(r.Context(), id, key)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no such image", http.StatusNotFound)
		return
	}
	if err != nil {
		respondWithError(w, r, err, core.ResourceListing, 4756)
		return
	}
	a.deleteImages(r.Context(), []string{key})
	a.notify(r.Context(), core.ResourceListing, core.OperationUpdate, listing.ID, listing)
	w.WriteHeader(http.StatusNoContent)
}
