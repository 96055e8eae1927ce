package converter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/yuanying/epub2cbz/internal/epub"
)

type zipFile struct {
	Name string
	Body []byte
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// testItem is a manifest item; spine order is given separately.
type testItem struct {
	ID, Href, MediaType, Properties string
}

// buildOPF renders a package document for the given manifest and spine.
func buildOPF(title string, items []testItem, spine []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", title)
	b.WriteString(`    <dc:creator>Test Author</dc:creator>
    <dc:language>ja</dc:language>
    <dc:identifier id="uid">urn:uuid:test</dc:identifier>
  </metadata>
  <manifest>
`)
	for _, it := range items {
		props := ""
		if it.Properties != "" {
			props = fmt.Sprintf(` properties="%s"`, it.Properties)
		}
		fmt.Fprintf(&b, "    <item id=%q href=%q media-type=%q%s/>\n", it.ID, it.Href, it.MediaType, props)
	}
	b.WriteString("  </manifest>\n  <spine page-progression-direction=\"rtl\">\n")
	for _, idref := range spine {
		fmt.Fprintf(&b, "    <itemref idref=%q/>\n", idref)
	}
	b.WriteString("  </spine>\n</package>")
	return b.String()
}

// xhtmlPage wraps body in a minimal XHTML document.
func xhtmlPage(body string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:xlink="http://www.w3.org/1999/xlink">
<head><title>page</title></head>
<body>` + body + `</body>
</html>`)
}

// svgPage is the fixed-layout page shape most comic EPUBs use.
func svgPage(href string) []byte {
	return xhtmlPage(`<svg xmlns="http://www.w3.org/2000/svg" version="1.1" viewBox="0 0 600 800"><image width="600" height="800" xlink:href="` + href + `"/></svg>`)
}

// writeEPUB writes an EPUB with mimetype and container.xml plus files.
func writeEPUB(t *testing.T, dir, name string, files []zipFile) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("failed to create test EPUB: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("failed to create mimetype entry: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	all := append([]zipFile{{Name: "META-INF/container.xml", Body: []byte(testContainerXML)}}, files...)
	for _, zf := range all {
		ew, err := w.Create(zf.Name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", zf.Name, err)
		}
		if _, err := ew.Write(zf.Body); err != nil {
			t.Fatalf("failed to write %s: %v", zf.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close EPUB: %v", err)
	}
	return p
}

// writeBareZip writes files to path without mimetype or container.xml.
func writeBareZip(t *testing.T, path string, files []zipFile) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, zf := range files {
		ew, err := w.Create(zf.Name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", zf.Name, err)
		}
		if _, err := ew.Write(zf.Body); err != nil {
			t.Fatalf("failed to write %s: %v", zf.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// createComicEPUB builds a book mixing every page shape:
//
//	cover  -> direct image            OEBPS/Images/cover.jpg
//	p1     -> svg wrapper             OEBPS/Images/p1.png
//	p2     -> img relative to page    OEBPS/Text/images/1.jpg
//	notes  -> markup without image    (no page)
//	p3     -> upper-case extension    OEBPS/Images/P3.JPG
//	ghost  -> missing from manifest   (skipped unless strict)
//	css    -> unsupported type        (no page)
func createComicEPUB(t *testing.T, dir string) string {
	t.Helper()
	items := []testItem{
		{"cover", "Images/cover.jpg", "image/jpeg", "cover-image"},
		{"p1", "Text/p1.xhtml", "application/xhtml+xml", ""},
		{"p2", "Text/p2.xhtml", "application/xhtml+xml", ""},
		{"notes", "Text/notes.xhtml", "application/xhtml+xml", ""},
		{"p3", "Images/P3.JPG", "image/jpeg", ""},
		{"css", "Styles/style.css", "text/css", ""},
		{"img-p1", "Images/p1.png", "image/png", ""},
		{"img-p2", "Text/images/1.jpg", "image/jpeg", ""},
	}
	spine := []string{"cover", "p1", "p2", "notes", "p3", "ghost", "css"}

	return writeEPUB(t, dir, "comic.epub", []zipFile{
		{Name: "OEBPS/content.opf", Body: []byte(buildOPF("Test Comic", items, spine))},
		{Name: "OEBPS/Images/cover.jpg", Body: []byte("cover-bytes")},
		{Name: "OEBPS/Text/p1.xhtml", Body: svgPage("../Images/p1.png")},
		{Name: "OEBPS/Images/p1.png", Body: []byte("p1-bytes")},
		{Name: "OEBPS/Text/p2.xhtml", Body: xhtmlPage(`<img src="images/1.jpg" alt=""/>`)},
		{Name: "OEBPS/Text/images/1.jpg", Body: []byte("p2-bytes")},
		{Name: "OEBPS/Text/notes.xhtml", Body: xhtmlPage(`<p>Translator notes</p>`)},
		{Name: "OEBPS/Images/P3.JPG", Body: []byte("p3-bytes")},
		{Name: "OEBPS/Styles/style.css", Body: []byte("body{}")},
	})
}

// readCBZ returns entry names in archive order and their contents.
func readCBZ(t *testing.T, path string) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open output %s: %v", path, err)
	}
	defer zr.Close()

	var names []string
	contents := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		names = append(names, f.Name)
		contents[f.Name] = data
	}
	return names, contents
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// memReader is an in-memory fileReader.
type memReader map[string][]byte

func (m memReader) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", epub.ErrEntryNotFound, path)
	}
	return data, nil
}

// memWriter records entries in write order.
type memWriter struct {
	names []string
	data  map[string][]byte
}

func (w *memWriter) WriteEntry(name string, data []byte) error {
	if w.data == nil {
		w.data = make(map[string][]byte)
	}
	w.names = append(w.names, name)
	w.data[name] = bytes.Clone(data)
	return nil
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}
