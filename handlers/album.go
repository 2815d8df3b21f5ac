package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/services"
)

type AlbumHandler struct {
	Service *services.GalleryService
}

func (ah *AlbumHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	stats, err := ah.Service.Albums(r.Context())
	if err != nil {
		log.Printf("handlers: listing albums failed: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "albums_unavailable", "Failed to list albums")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UpdateAlbum changes the display name only; the directory name is fixed.
func (ah *AlbumHandler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_display_name", "display_name is required")
		return
	}

	album, err := ah.Service.RenameAlbum(r.Context(), id, req.DisplayName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Album not found")
			return
		}
		log.Printf("handlers: renaming album %d failed: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "update_failed", "Failed to update album")
		return
	}
	writeJSON(w, http.StatusOK, album)
}
