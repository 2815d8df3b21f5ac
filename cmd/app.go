package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/tresinky/gallery/config"
	"github.com/tresinky/gallery/database"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/realtime"
	"github.com/tresinky/gallery/services"
	"github.com/tresinky/gallery/synchronizer"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg       config.Config
	db        *gorm.DB
	fs        afero.Fs
	store     *media.Store
	converter *media.ExecConverter
	syncer    *synchronizer.Synchronizer
	hub       *realtime.Hub
	service   *services.GalleryService
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		log.Printf("Ensuring storage directory exists: %s", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath, cfg.DBLogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	store, err := media.NewStore(fs, cfg.StaticRoot, cfg.GallerySubDir)
	if err != nil {
		return nil, err
	}

	converter := media.NewExecConverter(cfg.ConverterBin, cfg.ConverterArgs, cfg.TranscodeTimeout)
	if err := converter.Available(); err != nil {
		log.Printf("WARNING: %v; image uploads will be rejected until it is installed", err)
	}

	syncer := synchronizer.New(db, store, cfg.AlbumNames)
	hub := realtime.NewHub(realtime.DefaultBufferSize)
	service := services.NewGalleryService(db, store, media.NewProcessor(store, converter),
		syncer, hub, cfg.AlbumNames, cfg.CoverMaxSize)

	log.Printf("Serving gallery from root: %s", store.Root())
	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Image converter: %s (timeout %s)", cfg.ConverterBin, cfg.TranscodeTimeout)

	return &app{
		cfg:       cfg,
		db:        db,
		fs:        fs,
		store:     store,
		converter: converter,
		syncer:    syncer,
		hub:       hub,
		service:   service,
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}
