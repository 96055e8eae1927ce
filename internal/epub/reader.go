package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
)

// maxEntrySize caps the decompressed size of a single entry read.
const maxEntrySize int64 = 256 * 1024 * 1024

const epubMimetype = "application/epub+zip"

// EPUBReader provides read-only access to EPUB file contents.
// It is safe for concurrent reads once opened.
type EPUBReader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
}

// Open opens an EPUB file and validates the container.
// A missing mimetype entry is tolerated; decryption tools often drop it.
func Open(path string) (*EPUBReader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArchive, path, err)
	}

	reader := &EPUBReader{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		reader.files[normalizePath(f.Name)] = f
	}

	if err := reader.validateMimetype(); err != nil {
		zr.Close()
		return nil, err
	}

	return reader, nil
}

// Close closes the EPUB reader
func (r *EPUBReader) Close() error {
	return r.zipReader.Close()
}

// Has reports whether path names an entry in the archive.
func (r *EPUBReader) Has(path string) bool {
	_, ok := r.files[normalizePath(path)]
	return ok
}

// Names returns all entry paths in sorted order.
func (r *EPUBReader) Names() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFile reads the contents of a file from the EPUB.
// An absent path yields an error wrapping ErrEntryNotFound.
func (r *EPUBReader) ReadFile(path string) ([]byte, error) {
	path = normalizePath(path)
	f, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	return readZipFile(f, maxEntrySize)
}

// findInsensitive returns the stored name matching path, falling back
// to a case-insensitive comparison.
func (r *EPUBReader) findInsensitive(path string) (string, bool) {
	path = normalizePath(path)
	if _, ok := r.files[path]; ok {
		return path, true
	}
	lower := strings.ToLower(path)
	for _, name := range r.Names() {
		if strings.ToLower(name) == lower {
			return name, true
		}
	}
	return "", false
}

func (r *EPUBReader) validateMimetype() error {
	if _, ok := r.files["mimetype"]; !ok {
		return nil
	}

	content, err := r.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if strings.TrimSpace(string(content)) != epubMimetype {
		return ErrInvalidMimetype
	}

	return nil
}

// readZipFile reads a whole entry, refusing anything larger than limit.
// The declared size is checked first and the actual stream second, since
// the header can lie.
func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: entry %s too large: %d bytes (max %d)", ErrArchive, f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %s: %w", ErrArchive, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read entry %s: %w", ErrArchive, f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: entry %s exceeds %d bytes", ErrArchive, f.Name, limit)
	}

	return data, nil
}

// normalizePath normalizes archive paths: forward slashes, no ./ prefix.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// stripBOM removes a leading UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// ResolvePath resolves a relative reference against a base directory.
// baseDir: base directory (e.g., "OEBPS/Text" for "OEBPS/Text/page1.xhtml")
// relPath: relative reference (e.g., "../Images/p1.jpg#frag")
// returns: cleaned archive path (e.g., "OEBPS/Images/p1.jpg")
//
// Fragments and queries are dropped and percent-escapes decoded. A
// reference starting with "/" ignores baseDir.
// Archive paths are always forward-slash separated, whatever the platform.
func ResolvePath(baseDir, relPath string) string {
	relPath = strings.TrimSpace(relPath)
	if i := strings.IndexAny(relPath, "#?"); i >= 0 {
		relPath = relPath[:i]
	}
	relPath = unescapePath(strings.ReplaceAll(relPath, `\`, "/"))

	baseDir = normalizePath(baseDir)
	if baseDir == "." || strings.HasPrefix(relPath, "/") {
		// Root-absolute references start at the archive root.
		baseDir = ""
	}
	cleaned := path.Clean(path.Join(baseDir, relPath))
	return strings.TrimPrefix(cleaned, "/")
}

// Dir returns the containing directory of an archive path, "" at the root.
func Dir(p string) string {
	d := path.Dir(normalizePath(p))
	if d == "." || d == "/" {
		return ""
	}
	return d
}

func unescapePath(p string) string {
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}
