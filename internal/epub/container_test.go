package epub

import (
	"errors"
	"testing"
)

func TestLocateRoot(t *testing.T) {
	r := openTestEPUB(t, []testEntry{
		{name: "META-INF/container.xml", body: testContainerXML},
		{name: "OEBPS/content.opf", body: testOPF},
	})

	got, err := LocateRoot(r)
	if err != nil {
		t.Fatalf("LocateRoot() error = %v", err)
	}
	if got != "OEBPS/content.opf" {
		t.Errorf("LocateRoot() = %q, want %q", got, "OEBPS/content.opf")
	}
}

func TestLocateRoot_PrefersOPFMediaType(t *testing.T) {
	r := openTestEPUB(t, []testEntry{
		{name: "META-INF/container.xml", body: `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="other.pdf" media-type="application/pdf"/>
    <rootfile full-path="book/package.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`},
		{name: "other.pdf", body: "%PDF"},
		{name: "book/package.opf", body: testOPF},
	})

	got, err := LocateRoot(r)
	if err != nil {
		t.Fatalf("LocateRoot() error = %v", err)
	}
	if got != "book/package.opf" {
		t.Errorf("LocateRoot() = %q, want %q", got, "book/package.opf")
	}
}

func TestLocateRoot_NoNamespaceAndDotPrefix(t *testing.T) {
	r := openTestEPUB(t, []testEntry{
		{name: "meta-inf/Container.xml", body: `<container><rootfiles><rootfile full-path="./content.opf"/></rootfiles></container>`},
		{name: "content.opf", body: testOPF},
	})

	got, err := LocateRoot(r)
	if err != nil {
		t.Fatalf("LocateRoot() error = %v", err)
	}
	if got != "content.opf" {
		t.Errorf("LocateRoot() = %q, want %q", got, "content.opf")
	}
}

func TestLocateRoot_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []testEntry
	}{
		{
			name:    "missing container",
			entries: []testEntry{{name: "OEBPS/content.opf", body: testOPF}},
		},
		{
			name:    "malformed container",
			entries: []testEntry{{name: "META-INF/container.xml", body: `<container><rootfiles>`}},
		},
		{
			name:    "no full-path attribute",
			entries: []testEntry{{name: "META-INF/container.xml", body: `<container><rootfiles><rootfile media-type="application/oebps-package+xml"/></rootfiles></container>`}},
		},
		{
			name:    "descriptor absent",
			entries: []testEntry{{name: "META-INF/container.xml", body: testContainerXML}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := openTestEPUB(t, tt.entries)
			_, err := LocateRoot(r)
			if !errors.Is(err, ErrRootNotFound) {
				t.Fatalf("LocateRoot() error = %v, want ErrRootNotFound", err)
			}
		})
	}
}
