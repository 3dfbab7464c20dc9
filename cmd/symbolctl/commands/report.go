package commands

import (
	"context"
	"fmt"

	"manuscript-symbols/internal/symbol"

	"github.com/spf13/cobra"
)

var reportTop int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print manuscript-wide reports",
}

var frequencyCmd = &cobra.Command{
	Use:   "frequency",
	Short: "Symbol frequency by signature, most frequent first",
	RunE:  runFrequencyReport,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Symbol counts per category",
	RunE:  runCategoriesReport,
}

func init() {
	frequencyCmd.Flags().IntVar(&reportTop, "top", 20, "number of entries to show (0 for all)")
	reportCmd.AddCommand(frequencyCmd, categoriesCmd)
	rootCmd.AddCommand(reportCmd)
}

func runFrequencyReport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	repo := symbol.NewRepository(e.db, e.log)
	report, err := repo.FrequencyReport(context.Background())
	if err != nil {
		return err
	}

	shown := len(report)
	if reportTop > 0 && reportTop < shown {
		shown = reportTop
	}
	for _, entry := range report[:shown] {
		fmt.Printf("%6d  %s\n", entry.Count, entry.Signature)
	}
	fmt.Printf("%d distinct signatures\n", len(report))
	return nil
}

func runCategoriesReport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	repo := symbol.NewRepository(e.db, e.log)
	dist, err := repo.DistributionByCategory(context.Background())
	if err != nil {
		return err
	}

	for _, c := range dist {
		name := c.Category
		if name == "" {
			name = "(unclassified)"
		}
		fmt.Printf("%6d  %s\n", c.Count, name)
	}
	return nil
}
