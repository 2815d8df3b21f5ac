package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/realtime"
	"github.com/tresinky/gallery/services"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	DB             *gorm.DB
	Service        *services.GalleryService
	Hub            *realtime.Hub
	Converter      media.Converter
	StaticFs       afero.Fs
	StaticRoot     string
	AdminKeyHash   string
	AllowedOrigins []string
	MaxUploadBytes int64
	// conversions can take a while, so uploads get their own limit
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	if d.UploadTimeout <= 0 {
		d.UploadTimeout = 10 * time.Minute
	}

	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", AdminKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	galleryHandler := &GalleryHandler{Service: d.Service, MaxUploadBytes: d.MaxUploadBytes}
	albumHandler := &AlbumHandler{Service: d.Service}
	healthHandler := &HealthHandler{DB: d.DB, Converter: d.Converter}
	adminOnly := AdminKeyMiddleware(d.AdminKeyHash)
	timeout := middleware.Timeout(d.RequestTimeout)

	r.Route("/api", func(r chi.Router) {
		r.With(timeout).Get("/health", healthHandler.Health)

		r.Route("/gallery", func(r chi.Router) {
			r.With(middleware.Timeout(d.UploadTimeout), adminOnly).Post("/upload", galleryHandler.Upload)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/folders", galleryHandler.ListFolders)
				r.Get("/images", galleryHandler.ListImages)
				r.Get("/covers/{album}", galleryHandler.Cover)

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Put("/images/{id}", galleryHandler.EditImage)
					r.Delete("/images/{id}", galleryHandler.DeleteImage)
					r.Post("/sync", galleryHandler.Sync)
				})
			})
		})

		r.Route("/albums", func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", albumHandler.ListAlbums)
			r.With(adminOnly).Put("/{id}", albumHandler.UpdateAlbum)
		})
	})

	if d.Hub != nil {
		r.Get("/ws/progress", d.Hub.ServeWS)
	}
	r.Get("/static/*", AssetServer(d.StaticFs, d.StaticRoot, "/static/"))

	return r
}
