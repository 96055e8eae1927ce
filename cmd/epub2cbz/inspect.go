package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yuanying/epub2cbz/internal/converter"
	"github.com/yuanying/epub2cbz/internal/epub"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <book.epub>",
		Short: "Show how a book's spine maps to pages",
		Long: `inspect prints the package metadata, the detected cover and, for every
spine entry, the page images it resolves to. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetBool("files")
			return inspect(cmd.OutOrStdout(), args[0], files)
		},
	}
	cmd.Flags().Bool("files", false, "Also list every entry in the archive")
	return cmd
}

func inspect(w io.Writer, path string, listFiles bool) error {
	reader, err := epub.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := epub.CheckEncryption(reader); err != nil {
		return err
	}
	opfPath, err := epub.LocateRoot(reader)
	if err != nil {
		return err
	}
	opf, err := epub.ParseOPFFile(reader, opfPath)
	if err != nil {
		return err
	}

	md := opf.Metadata
	fmt.Fprintf(w, "File:        %s\n", path)
	fmt.Fprintf(w, "Package:     %s\n", opfPath)
	fmt.Fprintf(w, "Title:       %s\n", md.Title)
	for _, c := range md.Creators {
		fmt.Fprintf(w, "Creator:     %s (%s)\n", c.Name, orDash(c.Role))
	}
	fmt.Fprintf(w, "Language:    %s\n", orDash(md.Language))
	fmt.Fprintf(w, "Direction:   %s\n", orDash(opf.PageProgression))
	fmt.Fprintf(w, "Manifest:    %d items\n", len(opf.Manifest))
	fmt.Fprintf(w, "Spine:       %d items\n", len(opf.Spine))
	if cover := opf.DetectCover(); cover != nil {
		fmt.Fprintf(w, "Cover:       %s (%s, via %s)\n", cover.Path, cover.ManifestID, cover.DetectionMethod)
	}

	fmt.Fprintln(w)
	resolver := converter.NewPageResolver(reader, converter.ResolverOptions{})
	page := 0
	for _, item := range opf.Spine {
		pages, err := resolver.Resolve(opf, item.IDRef)
		switch {
		case errors.Is(err, epub.ErrManifestIDNotFound):
			fmt.Fprintf(w, "%-12s  missing from manifest\n", item.IDRef)
			continue
		case err != nil:
			return err
		case len(pages) == 0:
			fmt.Fprintf(w, "%-12s  no page\n", item.IDRef)
			continue
		}
		for _, p := range pages {
			page++
			fmt.Fprintf(w, "%-12s  %s  %s\n", item.IDRef, converter.PageName(page, p.Ext), p.Path)
		}
	}

	if listFiles {
		fmt.Fprintln(w)
		for _, name := range reader.Names() {
			fmt.Fprintln(w, name)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
