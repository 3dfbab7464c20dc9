package commands

import (
	"context"
	"fmt"

	"manuscript-symbols/internal/symbol"

	"github.com/spf13/cobra"
)

var symbolsPageID int64

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List a page's symbols in reading order",
	RunE:  runListSymbols,
}

func init() {
	symbolsCmd.Flags().Int64Var(&symbolsPageID, "page", 0, "page id (required)")
	symbolsCmd.MarkFlagRequired("page")
	rootCmd.AddCommand(symbolsCmd)
}

func runListSymbols(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	repo := symbol.NewRepository(e.db, e.log)
	symbols, err := repo.ListByPage(context.Background(), symbolsPageID)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		fmt.Printf("no symbols on page %d\n", symbolsPageID)
		return nil
	}

	for _, s := range symbols {
		fmt.Printf("%6d  (%4d,%4d) %3dx%-3d  freq %-4d %-12s %s\n",
			s.ID, s.X, s.Y, s.Width, s.Height, s.Frequency, formatCategory(s.Category), s.Signature)
	}
	fmt.Printf("%d symbols\n", len(symbols))
	return nil
}
