package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Path            string // archive path
	MediaType       string
	DetectionMethod string // "properties", "meta", "filename"
}

// DetectCover detects the cover image from the OPF manifest.
// Methods are tried in priority order:
//  1. properties="cover-image" (EPUB 3.0)
//  2. meta name="cover" (EPUB 2.0)
//  3. filename pattern (basename contains "cover", case-insensitive, SVG excluded)
//
// Returns nil if no cover image is found.
func (opf *OPF) DetectCover() *CoverInfo {
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "cover-image" {
				return opf.coverInfo(item, "properties")
			}
		}
	}

	if opf.Metadata.CoverID != "" {
		if item, ok := opf.Manifest[opf.Metadata.CoverID]; ok && isImageMediaType(item.MediaType) {
			return opf.coverInfo(item, "meta")
		}
	}

	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return opf.coverInfo(item, "filename")
		}
	}

	return nil
}

func (opf *OPF) coverInfo(item ManifestItem, method string) *CoverInfo {
	return &CoverInfo{
		ManifestID:      item.ID,
		Path:            opf.ResolveHref(item.Href),
		MediaType:       item.MediaType,
		DetectionMethod: method,
	}
}

// isImageMediaType checks if a media type is a raster image (SVG excluded).
func isImageMediaType(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
