package converter

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuanying/epub2cbz/internal/epub"
	"github.com/zeebo/blake3"
)

// ErrSourceEntryMissing indicates a resolved page that is not in the
// source archive. It points at a corrupt package, so it is never skipped.
var ErrSourceEntryMissing = errors.New("converter: resolved page missing from source archive")

// PageRecord describes one written page.
type PageRecord struct {
	Index      int    // 1-based page number
	Name       string // entry name, e.g. "00007.png"
	SourcePath string
	SourceID   string
	Size       int
	Digest     string // BLAKE3 of the written bytes, hex
}

type entryWriter interface {
	WriteEntry(name string, data []byte) error
}

// PageName returns the entry name for the index-th page (1-based).
func PageName(index int, ext string) string {
	return fmt.Sprintf("%05d%s", index, ext)
}

// Packager copies resolved pages into an output archive.
type Packager struct {
	// Optimizer re-encodes pages when enabled; nil copies bytes verbatim.
	Optimizer *ImageOptimizer
	Logger    *slog.Logger
}

// Package writes pages in order as 00001.ext, 00002.ext, ...
// Numbering has no gaps regardless of how many pages each spine entry
// produced.
func (p *Packager) Package(src fileReader, pages []ResolvedPage, dst entryWriter) ([]PageRecord, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records := make([]PageRecord, 0, len(pages))
	for i, page := range pages {
		data, err := src.ReadFile(page.Path)
		if err != nil {
			if errors.Is(err, epub.ErrEntryNotFound) {
				return records, fmt.Errorf("%w: %s (from %q): %w", ErrSourceEntryMissing, page.Path, page.SourceID, err)
			}
			return records, fmt.Errorf("failed to read page %s: %w", page.Path, err)
		}

		ext := page.Ext
		if p.Optimizer.Enabled() {
			out, err := p.Optimizer.Optimize(page.Path, data)
			if err != nil {
				return records, fmt.Errorf("failed to optimize %s: %w", page.Path, err)
			}
			if out.Warning != "" {
				logger.Warn("image optimization", "path", page.Path, "warning", out.Warning)
			}
			data = out.Data
			if out.Ext != "" {
				ext = out.Ext
			}
		}

		name := PageName(i+1, ext)
		if err := dst.WriteEntry(name, data); err != nil {
			return records, err
		}

		sum := blake3.Sum256(data)
		rec := PageRecord{
			Index:      i + 1,
			Name:       name,
			SourcePath: page.Path,
			SourceID:   page.SourceID,
			Size:       len(data),
			Digest:     hex.EncodeToString(sum[:]),
		}
		logger.Debug("page written", "name", rec.Name, "source", rec.SourcePath, "size", rec.Size, "blake3", rec.Digest)
		if n := len(records); n > 0 && records[n-1].Digest == rec.Digest {
			logger.Warn("page repeats the previous page", "name", rec.Name, "previous", records[n-1].Name, "source", rec.SourcePath)
		}
		records = append(records, rec)
	}

	return records, nil
}
