package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// AssetServer serves files below baseDir on fs. routePrefix is stripped from
// the request path, so in main it is mounted as
//
//	r.Get("/static/*", AssetServer(fs, cfg.StaticRoot, "/static/"))
func AssetServer(fs afero.Fs, baseDir, routePrefix string) http.HandlerFunc {
	baseDir = filepath.Clean(baseDir)
	log.Printf("Serving assets for '%s*' from directory: %s", routePrefix, baseDir)

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid asset path", http.StatusBadRequest)
			return
		}

		cleanedAssetPath := filepath.Join(baseDir, filepath.FromSlash(relativePath))
		if !strings.HasPrefix(cleanedAssetPath, baseDir+string(filepath.Separator)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("SECURITY: Attempted asset access outside designated directory: Request='%s', Resolved='%s', Allowed Base='%s'",
				r.URL.Path, cleanedAssetPath, baseDir)
			return
		}
		if strings.HasPrefix(filepath.Base(cleanedAssetPath), ".") {
			http.NotFound(w, r)
			return
		}

		info, err := fs.Stat(cleanedAssetPath)
		if os.IsNotExist(err) || (err == nil && info.IsDir()) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error stating asset file %s: %v", cleanedAssetPath, err)
			return
		}

		f, err := fs.Open(cleanedAssetPath)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Error opening asset file %s: %v", cleanedAssetPath, err)
			return
		}
		defer f.Close()

		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))

		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}
