package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata represents the metadata section
type opfMetadata struct {
	Title      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publisher  []string        `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Date       []string        `xml:"http://purl.org/dc/elements/1.1/ date"`
	Meta       []opfMeta       `xml:"meta"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
	ID   string `xml:"id,attr"`
}

type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"` // EPUB 2.0: attribute value
	Value    string `xml:",chardata"`    // EPUB 3.0: element text content
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	PageProgression string       `xml:"page-progression-direction,attr"`
	ItemRefs        []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure.
// opfDir is the directory containing the OPF file (e.g., "OEBPS"); manifest
// hrefs are stored unresolved and joined against it on demand.
// Spine order is kept exactly as written, duplicates included.
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	dec := xml.NewDecoder(bytes.NewReader(stripBOM(content)))
	dec.CharsetReader = charset.NewReaderLabel

	var pkg opfPackage
	if err := dec.Decode(&pkg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptorParse, err)
	}

	if opfDir == "." {
		opfDir = ""
	}
	opf := &OPF{
		BaseDir:         normalizePath(opfDir),
		Manifest:        make(map[string]ManifestItem, len(pkg.Manifest.Items)),
		PageProgression: strings.ToLower(strings.TrimSpace(pkg.Spine.PageProgression)),
	}

	opf.Metadata = parseMetadata(&pkg.Metadata, pkg.UniqueID)

	for _, item := range pkg.Manifest.Items {
		if item.ID == "" {
			continue
		}
		manifestItem := ManifestItem{
			ID:         item.ID,
			Href:       strings.TrimSpace(item.Href),
			MediaType:  strings.TrimSpace(item.MediaType),
			Properties: strings.Fields(item.Properties),
		}
		if _, dup := opf.Manifest[item.ID]; !dup {
			opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
		}
		opf.Manifest[item.ID] = manifestItem
	}

	for _, itemRef := range pkg.Spine.ItemRefs {
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:  strings.TrimSpace(itemRef.IDRef),
			Linear: itemRef.Linear != "no",
		})
	}

	return opf, nil
}

// ParseOPFFile reads and parses the descriptor at opfPath.
func ParseOPFFile(r *EPUBReader, opfPath string) (*OPF, error) {
	data, err := r.ReadFile(opfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPF: %w", err)
	}
	return ParseOPF(data, Dir(opfPath))
}

func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	md := Metadata{
		Title:     first(meta.Title),
		Language:  first(meta.Language),
		Publisher: first(meta.Publisher),
		Date:      first(meta.Date),
	}

	// Identifier (find the one marked as unique-identifier)
	for _, id := range meta.Identifier {
		if id.ID == uniqueID {
			md.Identifier = strings.TrimSpace(id.Value)
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = strings.TrimSpace(meta.Identifier[0].Value)
	}

	// EPUB 3.0 refines roles through meta elements
	roles := make(map[string]string)
	for _, m := range meta.Meta {
		if m.Property == "role" && m.Refines != "" {
			role := strings.TrimSpace(m.Value)
			if role == "" {
				role = m.Content
			}
			roles[strings.TrimPrefix(m.Refines, "#")] = role
		}
	}
	for _, c := range meta.Creator {
		creator := Creator{Name: strings.TrimSpace(c.Name), Role: c.Role}
		if role, ok := roles[c.ID]; ok && c.ID != "" {
			creator.Role = role
		}
		md.Creators = append(md.Creators, creator)
	}

	// EPUB 2.0 cover meta element
	for _, m := range meta.Meta {
		if m.Name == "cover" && m.Content != "" {
			md.CoverID = m.Content
			break
		}
	}

	return md
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
