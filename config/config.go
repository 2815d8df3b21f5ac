package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultStaticRoot    = "static"
	DefaultGallerySubDir = "images/gallery"
)

const (
	defaultTranscodeTimeout = 60
	defaultMaxUploadMB      = 400
	defaultCoverMaxSize     = 600
)

// DefaultConverterArgs converts {src} into a webp at {dst}. ImageMagick reads
// HEIC when built with libheif.
var DefaultConverterArgs = []string{"{src}", "-auto-orient", "-quality", "85", "{dst}"}

type Config struct {
	// static root served at /static; image filenames are stored relative to it
	StaticRoot string
	// gallery root, one subdirectory per album
	GalleryPath string
	// gallery root relative to StaticRoot, slash separated (e.g. "images/gallery")
	GallerySubDir string

	DatabasePath string
	DBLogLevel   string

	// external image converter
	ConverterBin     string
	ConverterArgs    []string
	TranscodeTimeout time.Duration

	MaxUploadBytes int64
	CoverMaxSize   int

	// normalized album name -> display name seed table
	AlbumNamesFile string
	AlbumNames     AlbumNames

	// bcrypt hash of the admin key; empty disables the admin guard
	AdminKeyHash string

	AllowedOrigins []string
	Port           string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	staticRoot := getEnvOrDefault("STATIC_ROOT", DefaultStaticRoot)
	absStatic, err := filepath.Abs(staticRoot)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for static root '%s': %w", staticRoot, err)
	}

	gallerySubDir := filepath.ToSlash(filepath.Clean(getEnvOrDefault("GALLERY_SUBDIR", DefaultGallerySubDir)))
	if filepath.IsAbs(gallerySubDir) || strings.HasPrefix(gallerySubDir, "..") {
		return Config{}, fmt.Errorf("GALLERY_SUBDIR '%s' must be relative to the static root", gallerySubDir)
	}

	converterArgs := DefaultConverterArgs
	if raw := os.Getenv("CONVERTER_ARGS"); raw != "" {
		converterArgs = strings.Fields(raw)
	}

	namesFile := getEnvOrDefault("ALBUM_NAMES_FILE", "album_names.yaml")
	names, err := LoadAlbumNames(namesFile)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		StaticRoot:       absStatic,
		GalleryPath:      filepath.Join(absStatic, filepath.FromSlash(gallerySubDir)),
		GallerySubDir:    gallerySubDir,
		DatabasePath:     getEnvOrDefault("DATABASE_PATH", "tresinky.db"),
		DBLogLevel:       getEnvOrDefault("DB_LOG_LEVEL", "warn"),
		ConverterBin:     getEnvOrDefault("CONVERTER_BIN", "magick"),
		ConverterArgs:    converterArgs,
		TranscodeTimeout: time.Duration(getEnvIntOrDefault("TRANSCODE_TIMEOUT_SECONDS", defaultTranscodeTimeout)) * time.Second,
		MaxUploadBytes:   int64(getEnvIntOrDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		CoverMaxSize:     getEnvIntOrDefault("COVER_MAX_SIZE", defaultCoverMaxSize),
		AlbumNamesFile:   namesFile,
		AlbumNames:       names,
		AdminKeyHash:     os.Getenv("ADMIN_KEY_HASH"),
		AllowedOrigins:   splitList(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")),
		Port:             getEnvOrDefault("PORT", "8080"),
	}

	return cfg, nil
}
