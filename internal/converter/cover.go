package converter

import (
	"path"

	"github.com/yuanying/epub2cbz/internal/epub"
)

// moveCoverFirst makes the detected cover image page one, as comic readers
// use the first page as the thumbnail. Other occurrences of the cover are
// dropped so it is not shown twice. A cover that is not a raster image in
// exts is ignored.
func moveCoverFirst(pages []ResolvedPage, cover *epub.CoverInfo, exts ExtensionSet) []ResolvedPage {
	if cover == nil || cover.Path == "" {
		return pages
	}
	ext := path.Ext(cover.Path)
	if !exts.Contains(ext) {
		return pages
	}
	if len(pages) > 0 && pages[0].Path == cover.Path {
		return pages
	}

	out := make([]ResolvedPage, 0, len(pages)+1)
	out = append(out, ResolvedPage{Path: cover.Path, Ext: ext, SourceID: cover.ManifestID})
	for _, p := range pages {
		if p.Path != cover.Path {
			out = append(out, p)
		}
	}
	return out
}
