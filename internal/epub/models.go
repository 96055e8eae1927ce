package epub

import "fmt"

// OPF represents the parsed Open Package Format document
type OPF struct {
	BaseDir         string // directory containing the OPF, "" at the archive root
	Metadata        Metadata
	Manifest        map[string]ManifestItem // id -> item
	ManifestOrder   []string                // manifest ids in document order
	Spine           []SpineItem
	PageProgression string // "ltr", "rtl" or ""
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title      string
	Creators   []Creator
	Language   string
	Identifier string
	Publisher  string
	Date       string
	CoverID    string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Creator represents a creator (author, illustrator, ...) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "ill" for illustrator
}

// ManifestItem represents an item in the manifest.
// Href is kept exactly as written: it is relative to OPF.BaseDir,
// not to the archive root. Use OPF.ResolveHref for archive paths.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// Lookup returns the manifest item for a spine idref.
func (opf *OPF) Lookup(idref string) (ManifestItem, error) {
	item, ok := opf.Manifest[idref]
	if !ok {
		return ManifestItem{}, fmt.Errorf("%w: %q", ErrManifestIDNotFound, idref)
	}
	return item, nil
}

// ResolveHref turns a manifest href into an archive path.
func (opf *OPF) ResolveHref(href string) string {
	return ResolvePath(opf.BaseDir, href)
}

// IsRTL reports whether the spine declares right-to-left page progression.
func (opf *OPF) IsRTL() bool {
	return opf.PageProgression == "rtl"
}
