package epub

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ImageCandidate is one (tag, attribute) pair tried when looking for the
// image a markup page wraps. Attr may carry a namespace prefix
// ("xlink:href"). Multi marks srcset-style attributes holding a list.
type ImageCandidate struct {
	Tag   string
	Attr  string
	Multi bool
}

// ImageLookup is a ranked candidate list; the first candidate whose tag
// is present and carries the attribute wins.
type ImageLookup []ImageCandidate

// DefaultImageLookup prefers SVG <image> wrappers, which fixed-layout comic
// pages use, over plain <img>, and namespaced links over plain ones.
func DefaultImageLookup() ImageLookup {
	return ImageLookup{
		{Tag: "image", Attr: "xlink:href"},
		{Tag: "image", Attr: "href"},
		{Tag: "image", Attr: "src"},
		{Tag: "img", Attr: "xlink:href"},
		{Tag: "img", Attr: "src"},
		{Tag: "img", Attr: "srcset", Multi: true},
	}
}

// selfClosingRawTextPattern matches XHTML shorthand such as <title/> or
// <script src="a.js"/>. An HTML parser treats these as start tags of raw
// text elements, which then swallow the rest of the page.
var selfClosingRawTextPattern = regexp.MustCompile(`(?is)<(script|style|title|textarea|noscript|iframe)\b([^>]*)/>`)

func normalizeSelfClosingRawText(data []byte) []byte {
	if !selfClosingRawTextPattern.Match(data) {
		return data
	}
	return selfClosingRawTextPattern.ReplaceAll(data, []byte(`<$1$2></$1>`))
}

// Content represents a parsed XHTML content file
type Content struct {
	Path      string            // File path
	Document  *goquery.Document // Parsed HTML document
	ImageRefs []string          // Resolved archive paths of the wrapped image(s)
}

// LoadContent parses a markup page and finds the image(s) it wraps.
// path: file path within the EPUB, used for relative path resolution
// content: XHTML file content
//
// References resolve against the page's own directory, not the OPF's.
// A page with no matching element yields empty ImageRefs and no error.
func LoadContent(path string, content []byte, lookup ImageLookup) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(normalizeSelfClosingRawText(stripBOM(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML %s: %w", path, err)
	}

	c := &Content{
		Path:      path,
		Document:  doc,
		ImageRefs: []string{},
	}

	baseDir := Dir(path)
	for _, ref := range lookup.Find(doc) {
		c.ImageRefs = append(c.ImageRefs, ResolvePath(baseDir, ref))
	}

	return c, nil
}

// Find returns the raw reference values of the first matching candidate.
func (l ImageLookup) Find(doc *goquery.Document) []string {
	for _, cand := range l {
		sel := doc.Find(cand.Tag).First()
		if sel.Length() == 0 {
			continue
		}
		val, ok := nodeAttr(sel.Nodes[0], cand.Attr)
		if !ok {
			continue
		}

		var values []string
		if cand.Multi {
			values = splitSrcset(val)
		} else {
			values = []string{strings.TrimSpace(val)}
		}

		var refs []string
		for _, v := range values {
			if isLocalRef(v) {
				refs = append(refs, v)
			}
		}
		if len(refs) > 0 {
			return refs
		}
	}
	return nil
}

// nodeAttr matches "prefix:key" both as a parsed foreign attribute
// (Namespace "xlink", Key "href", inside <svg>) and as a literal key.
func nodeAttr(n *html.Node, name string) (string, bool) {
	ns, key := "", name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		ns, key = name[:i], name[i+1:]
	}
	for _, a := range n.Attr {
		if a.Namespace == ns && a.Key == key {
			return a.Val, true
		}
		if ns != "" && a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// splitSrcset returns the URL of each comma-separated srcset candidate.
func splitSrcset(v string) []string {
	var urls []string
	for _, part := range strings.Split(v, ",") {
		if fields := strings.Fields(part); len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

// isLocalRef rejects empty, data: and absolute URL references.
func isLocalRef(v string) bool {
	if v == "" || strings.HasPrefix(v, "#") {
		return false
	}
	lower := strings.ToLower(v)
	return !strings.HasPrefix(lower, "data:") && !strings.Contains(lower, "://")
}
