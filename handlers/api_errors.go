package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// statusForKind maps a service error kind to the HTTP status it is reported with.
func statusForKind(kind services.ErrorKind, code services.ErrorCode) int {
	switch kind {
	case services.KindValidation, services.KindAlbumName:
		return http.StatusBadRequest
	case services.KindDependencyMissing:
		return http.StatusServiceUnavailable
	case services.KindProcessing:
		if code == services.CodeProcessingTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusUnprocessableEntity
	case services.KindIO:
		if code == services.CodeDestinationExists {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports an error returned by GalleryService.
func writeServiceError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		WriteAPIError(w, http.StatusNotFound, "not_found", notFound)
		return
	}
	if ue, ok := services.AsUploadError(err); ok {
		status := statusForKind(ue.Kind, ue.Code)
		if status >= http.StatusInternalServerError {
			log.Printf("handlers: %v", err)
		}
		WriteAPIError(w, status, string(ue.Code), ue.Message)
		return
	}
	log.Printf("handlers: unexpected error: %v", err)
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}
