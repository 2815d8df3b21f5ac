package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AlbumNames maps a normalized album directory name to its curated display name.
type AlbumNames map[string]string

// LoadAlbumNames reads a YAML mapping file. A missing file yields an empty table.
func LoadAlbumNames(path string) (AlbumNames, error) {
	if path == "" {
		return AlbumNames{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AlbumNames{}, nil
		}
		return nil, fmt.Errorf("failed to read album names file '%s': %w", path, err)
	}
	return ParseAlbumNames(data)
}

// ParseAlbumNames decodes a YAML document of the form `normalized: Display Name`.
func ParseAlbumNames(data []byte) (AlbumNames, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse album names: %w", err)
	}
	names := make(AlbumNames, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			log.Printf("config: ignoring empty album name mapping %q -> %q", k, v)
			continue
		}
		names[key] = val
	}
	return names, nil
}

// Display returns the seeded display name for normalized, or fallback when none is known.
func (n AlbumNames) Display(normalized, fallback string) string {
	if name, ok := n[normalized]; ok {
		return name
	}
	if fallback == "" {
		return normalized
	}
	return fallback
}

// NormalizedFor returns the directory name whose seeded display name is
// display. When several entries share it the smallest key wins.
func (n AlbumNames) NormalizedFor(display string) (string, bool) {
	found := ""
	for normalized, name := range n {
		if name == display && (found == "" || normalized < found) {
			found = normalized
		}
	}
	return found, found != ""
}
