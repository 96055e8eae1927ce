package converter

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/yuanying/epub2cbz/internal/cbz"
	"github.com/yuanying/epub2cbz/internal/epub"
	"github.com/yuanying/epub2cbz/internal/naming"
)

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	InputPath string
	// OutputPath is the archive to write. When empty the archive goes to
	// OutputDir (default: the input's directory), named after the input
	// file or, with TitleNames, after the book title.
	OutputPath string
	OutputDir  string
	TitleNames bool

	Strict       bool // fail on spine idrefs missing from the manifest
	PrependCover bool // move the detected cover image to page one
	ComicInfo    bool // add ComicInfo.xml after the pages
	DryRun       bool // resolve pages without writing anything

	MaxImageWidth int // 0 disables resizing
	JPEGQuality   int
	Grayscale     bool

	Logger *slog.Logger
}

// Result summarizes one conversion.
type Result struct {
	InputPath  string
	OutputPath string
	Title      string
	Resolved   []ResolvedPage
	Pages      []PageRecord // empty on dry runs
	Skipped    []string     // spine idrefs missing from the manifest
}

// Size is the total number of page bytes written.
func (r *Result) Size() uint64 {
	var n uint64
	for _, p := range r.Pages {
		n += uint64(p.Size)
	}
	return n
}

// Pipeline orchestrates the EPUB to CBZ conversion.
type Pipeline struct {
	Options ConvertOptions
	logger  *slog.Logger
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Options: opts, logger: logger}
}

// Convert executes the conversion pipeline. Any error aborts this book
// only, and no output file is left behind.
func (p *Pipeline) Convert() (*Result, error) {
	reader, opf, err := p.parseEPUB()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	resolver := NewPageResolver(reader, ResolverOptions{
		Strict: p.Options.Strict,
		Logger: p.logger,
	})
	pages, skipped, err := resolver.ResolveAll(opf)
	if err != nil {
		return nil, err
	}

	if p.Options.PrependCover {
		pages = moveCoverFirst(pages, opf.DetectCover(), resolver.images)
	}

	if len(pages) == 0 {
		p.logger.Warn("no pages found, archive will be empty", "input", p.Options.InputPath, "spine", len(opf.Spine))
	}

	result := &Result{
		InputPath:  p.Options.InputPath,
		OutputPath: p.outputPath(opf),
		Title:      opf.Metadata.Title,
		Resolved:   pages,
		Skipped:    skipped,
	}

	if p.Options.DryRun {
		return result, nil
	}

	records, err := p.writeCBZ(reader, opf, pages, result.OutputPath)
	if err != nil {
		return nil, err
	}
	result.Pages = records

	return result, nil
}

// parseEPUB opens the EPUB file, locates and parses the OPF.
func (p *Pipeline) parseEPUB() (*epub.EPUBReader, *epub.OPF, error) {
	reader, err := epub.Open(p.Options.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	if err := epub.CheckEncryption(reader); err != nil {
		reader.Close()
		return nil, nil, err
	}

	opfPath, err := epub.LocateRoot(reader)
	if err != nil {
		reader.Close()
		return nil, nil, err
	}

	opf, err := epub.ParseOPFFile(reader, opfPath)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("failed to parse OPF: %w", err)
	}

	p.logger.Debug("parsed package", "opf", opfPath, "manifest", len(opf.Manifest), "spine", len(opf.Spine))
	return reader, opf, nil
}

// writeCBZ packages pages into the output archive. The archive only
// appears at outputPath when every page was written.
func (p *Pipeline) writeCBZ(reader *epub.EPUBReader, opf *epub.OPF, pages []ResolvedPage, outputPath string) ([]PageRecord, error) {
	w, err := cbz.Create(outputPath)
	if err != nil {
		return nil, err
	}
	defer w.Abort()

	packager := &Packager{
		Optimizer: NewImageOptimizer(p.Options),
		Logger:    p.logger,
	}
	records, err := packager.Package(reader, pages, w)
	if err != nil {
		return nil, err
	}

	if p.Options.ComicInfo {
		data, err := NewComicInfo(opf, len(records)).Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", ComicInfoName, err)
		}
		if err := w.WriteEntry(ComicInfoName, data); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	p.logger.Debug("archive written", "path", w.Path(), "entries", w.Len())
	return records, nil
}

func (p *Pipeline) outputPath(opf *epub.OPF) string {
	if p.Options.OutputPath != "" {
		return p.Options.OutputPath
	}

	dir := p.Options.OutputDir
	if dir == "" {
		dir = filepath.Dir(p.Options.InputPath)
	}
	stem := naming.Stem(p.Options.InputPath)
	name := stem
	if p.Options.TitleNames && opf.Metadata.Title != "" {
		name = naming.SanitizeTitle(opf.Metadata.Title, stem)
	}
	return naming.OutputPathFor(dir, name)
}
