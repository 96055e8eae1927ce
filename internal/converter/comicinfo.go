package converter

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/yuanying/epub2cbz/internal/epub"
)

// ComicInfoName is the entry name comic readers look for.
const ComicInfoName = "ComicInfo.xml"

// ComicInfo is the subset of the ComicRack metadata schema we can fill
// from OPF metadata.
type ComicInfo struct {
	XMLName     xml.Name `xml:"ComicInfo"`
	XSI         string   `xml:"xmlns:xsi,attr"`
	XSD         string   `xml:"xmlns:xsd,attr"`
	Title       string   `xml:"Title,omitempty"`
	Year        int      `xml:"Year,omitempty"`
	Writer      string   `xml:"Writer,omitempty"`
	Penciller   string   `xml:"Penciller,omitempty"`
	Publisher   string   `xml:"Publisher,omitempty"`
	LanguageISO string   `xml:"LanguageISO,omitempty"`
	PageCount   int      `xml:"PageCount"`
	Manga       string   `xml:"Manga,omitempty"`
}

// NewComicInfo builds ComicInfo from OPF metadata.
func NewComicInfo(opf *epub.OPF, pageCount int) ComicInfo {
	md := opf.Metadata
	ci := ComicInfo{
		XSI:         "http://www.w3.org/2001/XMLSchema-instance",
		XSD:         "http://www.w3.org/2001/XMLSchema",
		Title:       md.Title,
		Publisher:   md.Publisher,
		LanguageISO: md.Language,
		PageCount:   pageCount,
	}

	if len(md.Date) >= 4 {
		if y, err := strconv.Atoi(md.Date[:4]); err == nil {
			ci.Year = y
		}
	}

	var writers, artists []string
	for _, c := range md.Creators {
		switch strings.ToLower(c.Role) {
		case "ill", "art":
			artists = append(artists, c.Name)
		case "", "aut":
			writers = append(writers, c.Name)
		}
	}
	ci.Writer = strings.Join(writers, ", ")
	ci.Penciller = strings.Join(artists, ", ")

	if opf.IsRTL() {
		ci.Manga = "YesAndRightToLeft"
	}
	return ci
}

// Marshal encodes c as an indented XML document.
func (c ComicInfo) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}
