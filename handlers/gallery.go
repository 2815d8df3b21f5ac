package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/services"
)

// multipart parts above this size spill to temporary files
const multipartMemory = 32 << 20

type GalleryHandler struct {
	Service        *services.GalleryService
	MaxUploadBytes int64
}

func parseID(r *http.Request, param string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", param)
	}
	return uint(id), nil
}

// Upload accepts one multipart file plus album, new_album, title and
// description fields and always answers with an UploadResult body.
func (gh *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if gh.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, gh.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, services.UploadResult{Error: "File is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, services.UploadResult{Error: "No file selected"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := services.UploadRequest{
		Album:       r.FormValue("album"),
		NewAlbum:    r.FormValue("new_album"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.Filename = header.Filename
		req.Content = file
	} else if !errors.Is(err, http.ErrMissingFile) {
		log.Printf("handlers: reading upload part failed: %v", err)
	}

	uploaded, err := gh.Service.Upload(r.Context(), req)
	result := services.NewUploadResult(uploaded, err)
	if err != nil {
		status := http.StatusInternalServerError
		if ue, ok := services.AsUploadError(err); ok {
			status = statusForKind(ue.Kind, ue.Code)
		}
		writeJSON(w, status, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (gh *GalleryHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := gh.Service.Folders(r.Context())
	if err != nil {
		log.Printf("handlers: listing folders failed: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "folders_unavailable", "Failed to list albums")
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

// ListImages lists one album's images; ?album= is the directory name and
// ?sort= one of the database sort orders.
func (gh *GalleryHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	album := strings.TrimSpace(r.URL.Query().Get("album"))
	if album == "" {
		WriteAPIError(w, http.StatusBadRequest, "missing_album", "Query parameter 'album' is required")
		return
	}
	sortOrder := r.URL.Query().Get("sort")
	if sortOrder == "" {
		sortOrder = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(sortOrder) {
		WriteAPIError(w, http.StatusBadRequest, "invalid_sort", "Unknown sort order: "+sortOrder)
		return
	}

	images, err := gh.Service.Images(r.Context(), album, sortOrder)
	if err != nil {
		writeServiceError(w, err, "Album not found")
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (gh *GalleryHandler) EditImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	var req services.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}

	image, err := gh.Service.Edit(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "Image not found")
		return
	}
	writeJSON(w, http.StatusOK, image)
}

func (gh *GalleryHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	if err := gh.Service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "Image not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (gh *GalleryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := gh.Service.Sync(r.Context())
	if err != nil {
		log.Printf("handlers: sync failed: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "sync_failed", "Synchronization failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (gh *GalleryHandler) Cover(w http.ResponseWriter, r *http.Request) {
	album := chi.URLParam(r, "album")
	var buf bytes.Buffer
	if err := gh.Service.Cover(r.Context(), album, &buf); err != nil {
		if errors.Is(err, services.ErrAlbumNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Album not found")
			return
		}
		log.Printf("handlers: cover for %s failed: %v", album, err)
		WriteAPIError(w, http.StatusInternalServerError, "cover_failed", "Failed to render cover")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("handlers: writing cover for %s failed: %v", album, err)
	}
}
