// Package naming turns book titles into safe output file names.
package naming

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Ext is the extension given to page-image archives.
const Ext = ".cbz"

const invalidChars = `\/:*?"<>|`

// SanitizeTitle makes title usable as a file name on common filesystems.
// Full-width ASCII is folded to half-width (Japanese kana and kanji stay
// wide), characters invalid on Windows or control characters become '_',
// and leading/trailing dots and spaces are trimmed. An empty result
// yields fallback.
func SanitizeTitle(title, fallback string) string {
	folded := width.Fold.String(title)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case strings.ContainsRune(invalidChars, r), unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Trim(strings.Join(strings.Fields(b.String()), " "), ". ")
	if name == "" {
		return fallback
	}
	return name
}

// Stem returns the file name of p without directory and extension.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPathFor returns dir/<name>.cbz.
func OutputPathFor(dir, name string) string {
	return filepath.Join(dir, name+Ext)
}
