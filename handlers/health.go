package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/tresinky/gallery/media"
)

type HealthHandler struct {
	DB        *gorm.DB
	Converter media.Converter
}

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Converter string `json:"converter"`
}

// Health reports whether uploads can currently succeed. A missing converter
// degrades the service but videos still upload.
func (hh *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", Converter: "ok"}
	status := http.StatusOK

	if sqlDB, err := hh.DB.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		resp.Database = "unavailable"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := hh.Converter.Available(); err != nil {
		resp.Converter = err.Error()
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, status, resp)
}
