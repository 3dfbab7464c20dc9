package commands

import (
	"context"
	"fmt"

	"manuscript-symbols/internal/job"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List extraction jobs, newest first",
	RunE:  runListJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	jobs, err := job.NewStore(e.db).List(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}

	for _, j := range jobs {
		detail := ""
		if j.ErrorDetail != nil {
			detail = "  " + *j.ErrorDetail
		}
		fmt.Printf("%s  %-18s %3d%%  pages %d-%d  %5d symbols  %s%s\n",
			j.ID, j.Status, j.Progress, j.StartPageID, j.EndPageID,
			j.SymbolsExtracted, j.StartedAt.Format("2006-01-02 15:04:05"), detail)
	}
	return nil
}
