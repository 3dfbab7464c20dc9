package commands

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"manuscript-symbols/internal/page"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/tiff"
)

var (
	addPageFolio   string
	addPageSection string
	addPageImage   string
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Manage page records",
}

var listPagesCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered pages",
	RunE:  runListPages,
}

var addPageCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a page record for a scan on disk",
	Long: `Register a page record. Page records normally arrive from the
upload subsystem; this exists for standalone installations and tests.
Dimensions are read from the image file.`,
	RunE: runAddPage,
}

func init() {
	addPageCmd.Flags().StringVar(&addPageFolio, "folio", "", "folio designation, e.g. f1r (required)")
	addPageCmd.Flags().StringVar(&addPageSection, "section", "", "manuscript section, e.g. herbal")
	addPageCmd.Flags().StringVar(&addPageImage, "image", "", "image path relative to the image root (required)")
	addPageCmd.MarkFlagRequired("folio")
	addPageCmd.MarkFlagRequired("image")

	pagesCmd.AddCommand(listPagesCmd, addPageCmd)
	rootCmd.AddCommand(pagesCmd)
}

func runListPages(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	store := page.NewStore(e.db)
	ctx := context.Background()

	offset := 0
	const batch = 100
	total := 0
	for {
		pages, err := store.List(ctx, offset, batch)
		if err != nil {
			return err
		}
		for _, p := range pages {
			fmt.Printf("%6d  %-8s %-12s %4dx%-4d  %s\n", p.ID, p.Folio, p.Section, p.Width, p.Height, p.ImagePath)
		}
		total += len(pages)
		if len(pages) < batch {
			break
		}
		offset += batch
	}
	fmt.Printf("%d pages\n", total)
	return nil
}

func runAddPage(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := addPageImage
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.cfg.ImageRoot, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("decode image %s: %w", path, err)
	}

	p := &page.Page{
		Folio:     addPageFolio,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Section:   addPageSection,
		ImagePath: addPageImage,
	}
	if err := page.NewStore(e.db).Add(context.Background(), p); err != nil {
		return err
	}
	fmt.Printf("page %d registered: %s (%dx%d)\n", p.ID, p.Folio, p.Width, p.Height)
	return nil
}
