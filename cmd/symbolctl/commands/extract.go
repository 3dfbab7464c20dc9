package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"manuscript-symbols/internal/detect"
	"manuscript-symbols/internal/extract"
	"manuscript-symbols/internal/job"
	"manuscript-symbols/internal/page"
	"manuscript-symbols/internal/preprocess"
	"manuscript-symbols/internal/symbol"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	extractStartPage   int64
	extractEndPage     int64
	extractMethod      string
	extractThreshold   int
	extractMinSize     int
	extractMaxSize     int
	extractKeepMargins bool
	extractEnhancement string
	extractDemo        bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run an extraction job over a page range",
	Long: `Run symbol extraction directly against the database, without the
API service. The job runs in the foreground with a progress bar.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Int64Var(&extractStartPage, "start", 0, "first page id (required)")
	extractCmd.Flags().Int64Var(&extractEndPage, "end", 0, "last page id (defaults to start)")
	extractCmd.Flags().StringVar(&extractMethod, "method", "otsu", "threshold method: otsu|adaptive|simple")
	extractCmd.Flags().IntVar(&extractThreshold, "threshold", 128, "threshold value for the simple method")
	extractCmd.Flags().IntVar(&extractMinSize, "min-size", 8, "minimum symbol side in pixels")
	extractCmd.Flags().IntVar(&extractMaxSize, "max-size", 256, "maximum symbol side in pixels")
	extractCmd.Flags().BoolVar(&extractKeepMargins, "keep-margins", false, "include the page margins in detection")
	extractCmd.Flags().StringVar(&extractEnhancement, "enhancement", "default", "enhancement preset: none|default|high-contrast")
	extractCmd.Flags().BoolVar(&extractDemo, "demo", false, "use the simulated detector instead of reading ink")
	extractCmd.MarkFlagRequired("start")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	params, err := buildParams()
	if err != nil {
		return err
	}
	if extractEndPage == 0 {
		extractEndPage = extractStartPage
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var detector detect.Detector = detect.ContourDetector{}
	if extractDemo || e.cfg.DemoMode {
		fmt.Fprintln(os.Stderr, "demo mode: using simulated detection")
		detector = detect.Simulator{}
	}

	pages := page.NewStore(e.db)
	repo := symbol.NewRepository(e.db, e.log)
	pipeline := extract.NewPipeline(pages, repo, detector, e.cfg.ImageRoot, e.log)
	manager := job.NewManager(job.NewStore(e.db), pipeline, 1, e.log)

	events, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	j, err := manager.Start(context.Background(), extractStartPage, extractEndPage, params)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(100,
		progressbar.OptionSetDescription(fmt.Sprintf("pages %d-%d", extractStartPage, extractEndPage)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)

	// Events are best effort: the bus drops them when a subscriber lags,
	// so poll the store as well instead of trusting the channel to carry
	// the terminal transition.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break wait
			}
			if ev.JobID != j.ID {
				continue
			}
			bar.Set(ev.Progress)
			if ev.Status.Terminal() {
				break wait
			}
		case <-ticker.C:
			cur, err := manager.Get(context.Background(), j.ID)
			if err != nil {
				return err
			}
			bar.Set(cur.Progress)
			if cur.Status.Terminal() {
				break wait
			}
		}
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	manager.Wait()

	done, err := manager.Get(context.Background(), j.ID)
	if err != nil {
		return err
	}
	switch done.Status {
	case job.StatusCompleted:
		fmt.Printf("job %s completed: %d symbols extracted\n", done.ID, done.SymbolsExtracted)
		return nil
	case job.StatusCancelled:
		return fmt.Errorf("job %s was cancelled", done.ID)
	default:
		detail := ""
		if done.ErrorDetail != nil {
			detail = ": " + *done.ErrorDetail
		}
		return fmt.Errorf("job %s failed%s", done.ID, detail)
	}
}

func buildParams() (detect.Params, error) {
	params := detect.DefaultParams()

	method, err := detect.ParseThresholdMethod(extractMethod)
	if err != nil {
		return params, err
	}
	preset, err := preprocess.ParsePreset(extractEnhancement)
	if err != nil {
		return params, err
	}

	params.Method = method
	params.ThresholdValue = extractThreshold
	params.MinSymbolSize = extractMinSize
	params.MaxSymbolSize = extractMaxSize
	params.IgnoreMargins = !extractKeepMargins
	params.Enhancement = preset
	return params, params.Validate()
}
