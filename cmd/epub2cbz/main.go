package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yuanying/epub2cbz/internal/converter"
)

const (
	defaultJPEGQuality = 85
	minJPEGQuality     = 60
	maxJPEGQuality     = 100
)

type cliOptions struct {
	converter.ConvertOptions
	Inputs []string
	Jobs   int
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epub2cbz [flags] <book.epub|dir>...",
		Short: "Convert image-based EPUB comics to CBZ archives",
		Long: `epub2cbz extracts the page images of fixed-layout EPUB comics and
packs them, in reading order, into CBZ archives named 00001.jpg, 00002.png, ...

Directories given as arguments are expanded to the .epub files they contain.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConvert,
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Output file path (single input only; default: input with .cbz extension)")
	flags.String("output-dir", "", "Directory for output archives (default: next to each input)")
	flags.Bool("title-names", false, "Name archives after the book title instead of the input file")
	flags.Bool("strict", false, "Fail when a spine entry is missing from the manifest")
	flags.Bool("cover", false, "Move the detected cover image to page one")
	flags.Bool("comicinfo", false, "Add ComicInfo.xml metadata to each archive")
	flags.Bool("dry-run", false, "Resolve pages and report them without writing archives")
	flags.Int("max-image-width", 0, "Shrink pages wider than this many pixels (0 disables)")
	flags.Int("quality", defaultJPEGQuality, "JPEG quality for re-encoded pages (60-100)")
	flags.Bool("grayscale", false, "Convert pages to grayscale")
	flags.IntP("jobs", "j", runtime.GOMAXPROCS(0), "Number of books converted in parallel")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text, json")
	flags.BoolP("verbose", "v", false, "Enable verbose logging (equivalent to --log-level=debug)")

	cmd.AddCommand(newInspectCmd())
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := readCLIOptions(cmd, args)
	if err != nil {
		return err
	}

	jobs := make([]converter.Job, 0, len(opts.Inputs))
	for _, in := range opts.Inputs {
		jobs = append(jobs, converter.Job{InputPath: in, OutputPath: opts.OutputPath})
	}

	results := converter.RunBatch(cmd.Context(), jobs, converter.BatchOptions{
		Concurrency: opts.Jobs,
		Convert:     opts.ConvertOptions,
	})

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil || !opts.DryRun {
			continue
		}
		fmt.Fprintf(out, "%s -> %s\n", r.Job.InputPath, r.Result.OutputPath)
		for i, p := range r.Result.Resolved {
			fmt.Fprintf(out, "  %s\t%s\t(%s)\n", converter.PageName(i+1, p.Ext), p.Path, p.SourceID)
		}
	}

	if n := converter.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d conversions failed", n, len(results))
	}
	return nil
}

func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := cmd.Flags()
	outputPath, _ := flags.GetString("output")
	outputDir, _ := flags.GetString("output-dir")
	titleNames, _ := flags.GetBool("title-names")
	strict, _ := flags.GetBool("strict")
	cover, _ := flags.GetBool("cover")
	comicInfo, _ := flags.GetBool("comicinfo")
	dryRun, _ := flags.GetBool("dry-run")
	maxImageWidth, _ := flags.GetInt("max-image-width")
	quality, _ := flags.GetInt("quality")
	grayscale, _ := flags.GetBool("grayscale")
	jobs, _ := flags.GetInt("jobs")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	verbose, _ := flags.GetBool("verbose")

	if quality < minJPEGQuality || quality > maxJPEGQuality {
		return cliOptions{}, fmt.Errorf("--quality must be between %d and %d", minJPEGQuality, maxJPEGQuality)
	}
	if maxImageWidth < 0 {
		return cliOptions{}, fmt.Errorf("--max-image-width must be 0 or greater")
	}
	if jobs < 1 {
		return cliOptions{}, fmt.Errorf("--jobs must be at least 1")
	}
	if _, err := parseLogLevel(logLevel); err != nil {
		return cliOptions{}, err
	}
	if f := strings.ToLower(logFormat); f != "text" && f != "json" {
		return cliOptions{}, fmt.Errorf("--log-format must be text or json")
	}
	if verbose {
		logLevel = "debug"
	}

	inputs, err := expandInputs(args)
	if err != nil {
		return cliOptions{}, err
	}
	if len(inputs) == 0 {
		return cliOptions{}, errors.New("no .epub files found")
	}
	if outputPath != "" && len(inputs) > 1 {
		return cliOptions{}, fmt.Errorf("--output cannot be used with %d inputs; use --output-dir", len(inputs))
	}

	return cliOptions{
		ConvertOptions: converter.ConvertOptions{
			OutputPath:    outputPath,
			OutputDir:     outputDir,
			TitleNames:    titleNames,
			Strict:        strict,
			PrependCover:  cover,
			ComicInfo:     comicInfo,
			DryRun:        dryRun,
			MaxImageWidth: maxImageWidth,
			JPEGQuality:   quality,
			Grayscale:     grayscale,
			Logger:        buildLogger(cmd.ErrOrStderr(), logLevel, logFormat),
		},
		Inputs: inputs,
		Jobs:   jobs,
	}, nil
}

// expandInputs replaces directory arguments with the .epub files directly
// inside them, sorted by name. File arguments are kept as given.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the conversion itself.
			inputs = append(inputs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".epub") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("--log-level must be one of debug, info, warn, error")
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
