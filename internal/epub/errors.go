package epub

import "errors"

// Sentinel errors returned by the epub package. Callers test them with errors.Is.
var (
	// ErrArchive indicates the input is not a readable ZIP container.
	ErrArchive = errors.New("epub: unreadable archive")

	// ErrInvalidMimetype indicates a mimetype entry with unexpected content.
	ErrInvalidMimetype = errors.New("epub: invalid mimetype: must be 'application/epub+zip'")

	// ErrRootNotFound indicates META-INF/container.xml is missing, malformed,
	// or names a root descriptor that does not exist in the archive.
	ErrRootNotFound = errors.New("epub: root descriptor not found")

	// ErrDescriptorParse indicates the OPF document is not well-formed XML.
	ErrDescriptorParse = errors.New("epub: malformed package descriptor")

	// ErrEntryNotFound indicates the requested path does not exist in the archive.
	ErrEntryNotFound = errors.New("epub: entry not found in archive")

	// ErrManifestIDNotFound indicates a spine idref with no manifest item.
	ErrManifestIDNotFound = errors.New("epub: spine idref not found in manifest")

	// ErrEncrypted indicates content encryption other than font obfuscation.
	// The package has to be decrypted before conversion.
	ErrEncrypted = errors.New("epub: package is encrypted")
)
