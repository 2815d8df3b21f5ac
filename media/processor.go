package media

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/tresinky/gallery/validator"
)

// Processor turns a staged upload into its stored form: images are converted to
// webp next to the staged file, videos are kept as they are. It relies on a
// Store for every filesystem operation.
type Processor struct {
	store     *Store
	converter Converter
}

func NewProcessor(store *Store, converter Converter) *Processor {
	return &Processor{store: store, converter: converter}
}

// CheckDependency reports whether the image converter can run right now.
func (p *Processor) CheckDependency() error {
	return p.converter.Available()
}

// TranscodeImage converts sourcePath to a sibling with the canonical extension
// and removes the source on success. On failure the source is left for the
// caller and any partial output is removed. Returns the processed path.
func (p *Processor) TranscodeImage(ctx context.Context, sourcePath string) (string, error) {
	base := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))
	target := base + CanonicalImageExtension
	inPlace := filepath.Clean(target) == filepath.Clean(sourcePath)

	output := target
	if inPlace {
		output = base + ".converting" + CanonicalImageExtension
	}

	if err := p.converter.Convert(ctx, sourcePath, output); err != nil {
		p.cleanupPartial(output)
		return "", err
	}
	if !p.store.Exists(output) {
		return "", fmt.Errorf("%w: converter produced no output for %s", ErrProcessingFailed, filepath.Base(sourcePath))
	}

	if inPlace {
		if err := p.store.Remove(sourcePath); err != nil {
			p.cleanupPartial(output)
			return "", err
		}
		if err := p.store.Move(output, target); err != nil {
			p.cleanupPartial(output)
			return "", err
		}
	} else if err := p.store.Remove(sourcePath); err != nil {
		log.Printf("media: failed to remove source %s after conversion: %v", sourcePath, err)
	}

	log.Printf("media: converted %s -> %s", filepath.Base(sourcePath), filepath.Base(target))
	return target, nil
}

func (p *Processor) cleanupPartial(path string) {
	if err := p.store.Remove(path); err != nil {
		log.Printf("media: failed to remove partial output %s: %v", path, err)
	}
}

// MoveVideo moves a video without transcoding. Equal paths are a no-op.
func (p *Processor) MoveVideo(sourcePath, destPath string) error {
	return p.store.Move(sourcePath, destPath)
}

// Process routes a staged file by kind and returns the processed path.
func (p *Processor) Process(ctx context.Context, kind validator.MediaKind, stagedPath string) (string, error) {
	switch kind {
	case validator.KindImage:
		return p.TranscodeImage(ctx, stagedPath)
	case validator.KindVideo:
		dest := filepath.Join(filepath.Dir(stagedPath), ProcessedName(filepath.Base(stagedPath), kind))
		if err := p.MoveVideo(stagedPath, dest); err != nil {
			return "", err
		}
		return dest, nil
	default:
		return "", fmt.Errorf("%w: unsupported media kind %s", ErrProcessingFailed, kind)
	}
}
