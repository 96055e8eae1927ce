package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/yuanying/epub2cbz/internal/epub"
)

// ResolvedPage is one image resource to copy into the output archive.
type ResolvedPage struct {
	Path     string // archive path
	Ext      string // extension as written, e.g. ".JPG"
	SourceID string // spine idref the page came from
}

type fileReader interface {
	ReadFile(path string) ([]byte, error)
}

// ExtensionSet is an immutable, case-insensitive set of file extensions.
type ExtensionSet struct {
	exts map[string]struct{}
}

// NewExtensionSet builds a set from extensions such as ".jpg".
func NewExtensionSet(exts ...string) ExtensionSet {
	s := ExtensionSet{exts: make(map[string]struct{}, len(exts))}
	for _, ext := range exts {
		s.exts[strings.ToLower(ext)] = struct{}{}
	}
	return s
}

// Contains reports whether ext is in the set, ignoring case.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s.exts[strings.ToLower(ext)]
	return ok
}

// Len returns the number of extensions in the set.
func (s ExtensionSet) Len() int {
	return len(s.exts)
}

// DefaultImageExtensions lists the raster formats copied as pages.
func DefaultImageExtensions() ExtensionSet {
	return NewExtensionSet(".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp")
}

// DefaultMarkupExtensions lists the page formats searched for a wrapped image.
func DefaultMarkupExtensions() ExtensionSet {
	return NewExtensionSet(".xhtml", ".html", ".htm")
}

// ResolverOptions configures a PageResolver. Zero values select defaults.
type ResolverOptions struct {
	ImageExts  ExtensionSet
	MarkupExts ExtensionSet
	Lookup     epub.ImageLookup
	// Strict fails on spine idrefs missing from the manifest instead of
	// skipping them.
	Strict bool
	Logger *slog.Logger
}

// PageResolver maps spine entries to the image resources they display.
type PageResolver struct {
	reader fileReader
	images ExtensionSet
	markup ExtensionSet
	lookup epub.ImageLookup
	strict bool
	logger *slog.Logger
}

// NewPageResolver creates a resolver reading markup pages from reader.
func NewPageResolver(reader fileReader, opts ResolverOptions) *PageResolver {
	r := &PageResolver{
		reader: reader,
		images: opts.ImageExts,
		markup: opts.MarkupExts,
		lookup: opts.Lookup,
		strict: opts.Strict,
		logger: opts.Logger,
	}
	if r.images.Len() == 0 {
		r.images = DefaultImageExtensions()
	}
	if r.markup.Len() == 0 {
		r.markup = DefaultMarkupExtensions()
	}
	if len(r.lookup) == 0 {
		r.lookup = epub.DefaultImageLookup()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Resolve returns the pages displayed by one spine entry: one page for a
// direct image, 0..N for a markup page, none for anything else.
// Only a missing manifest item or an unreadable markup entry is an error.
func (r *PageResolver) Resolve(opf *epub.OPF, idref string) ([]ResolvedPage, error) {
	item, err := opf.Lookup(idref)
	if err != nil {
		return nil, err
	}

	candidate := opf.ResolveHref(item.Href)
	ext := path.Ext(candidate)

	switch {
	case r.images.Contains(ext):
		return []ResolvedPage{{Path: candidate, Ext: ext, SourceID: idref}}, nil

	case r.markup.Contains(ext):
		data, err := r.reader.ReadFile(candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %q: %w", candidate, err)
		}
		content, err := epub.LoadContent(candidate, data, r.lookup)
		if err != nil {
			return nil, err
		}
		if len(content.ImageRefs) == 0 {
			r.logger.Debug("page has no image, skipping", "idref", idref, "path", candidate)
			return nil, nil
		}
		pages := make([]ResolvedPage, 0, len(content.ImageRefs))
		for _, ref := range content.ImageRefs {
			pages = append(pages, ResolvedPage{Path: ref, Ext: path.Ext(ref), SourceID: idref})
		}
		return pages, nil

	default:
		r.logger.Debug("unsupported spine item, skipping", "idref", idref, "path", candidate)
		return nil, nil
	}
}

// ResolveAll resolves the whole spine in reading order. It also returns
// the idrefs skipped because the manifest lacks them (never in strict mode).
func (r *PageResolver) ResolveAll(opf *epub.OPF) ([]ResolvedPage, []string, error) {
	var pages []ResolvedPage
	var skipped []string

	for _, spineItem := range opf.Spine {
		resolved, err := r.Resolve(opf, spineItem.IDRef)
		if err != nil {
			if errors.Is(err, epub.ErrManifestIDNotFound) && !r.strict {
				r.logger.Warn("spine item not found in manifest, skipping", "idref", spineItem.IDRef)
				skipped = append(skipped, spineItem.IDRef)
				continue
			}
			return nil, skipped, err
		}
		pages = append(pages, resolved...)
	}

	return pages, skipped, nil
}
