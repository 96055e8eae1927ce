package epub

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// ContainerPath is the well-known indirection entry naming the OPF.
const ContainerPath = "META-INF/container.xml"

const opfMediaType = "application/oebps-package+xml"

// rootfileExpr ignores the container namespace, which some packagers omit.
var rootfileExpr = xpath.MustCompile(`//*[local-name()='rootfiles']/*[local-name()='rootfile']`)

// LocateRoot reads META-INF/container.xml and returns the archive path of
// the package descriptor. The rootfile with the OPF media type wins;
// otherwise the first rootfile with a non-empty full-path is used.
// All failures wrap ErrRootNotFound.
func LocateRoot(r *EPUBReader) (string, error) {
	name, ok := r.findInsensitive(ContainerPath)
	if !ok {
		return "", fmt.Errorf("%w: %s missing", ErrRootNotFound, ContainerPath)
	}

	data, err := r.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRootNotFound, err)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %w", ErrRootNotFound, ContainerPath, err)
	}

	var fallback string
	for _, n := range xmlquery.QuerySelectorAll(doc, rootfileExpr) {
		fullPath := normalizePath(strings.TrimSpace(n.SelectAttr("full-path")))
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(n.SelectAttr("media-type")), opfMediaType) {
			return checkRoot(r, fullPath)
		}
		if fallback == "" {
			fallback = fullPath
		}
	}

	if fallback == "" {
		return "", fmt.Errorf("%w: no rootfile full-path in %s", ErrRootNotFound, ContainerPath)
	}
	return checkRoot(r, fallback)
}

func checkRoot(r *EPUBReader, opfPath string) (string, error) {
	if !r.Has(opfPath) {
		return "", fmt.Errorf("%w: %s names %s, which is not in the archive", ErrRootNotFound, ContainerPath, opfPath)
	}
	return opfPath, nil
}
