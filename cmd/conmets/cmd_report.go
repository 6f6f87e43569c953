package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rendinam/logparse/internal/classify"
	"github.com/rendinam/logparse/internal/dataset"
	"github.com/rendinam/logparse/internal/plot"
	"github.com/rendinam/logparse/internal/report"
)

var (
	reportWindow string
	reportIgnore []string
	reportPlots  bool
	reportOutdir string
	reportPyPI   bool
)

// reportCmd summarizes the dataset per channel
var reportCmd = &cobra.Command{
	Use:   "report [dataset]",
	Short: "Summarize download activity per channel",
	Long: `Filters the dataset by an optional date window and host ignore list,
groups the remaining downloads by channel, and prints a summary for
each. With --plots, a stacked bar chart PNG is written per channel.

Window format: YYYY.MM.DD-YYYY.MM.DD. Omitting the window operates on
all data in the dataset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportWindow, "window", "w", "",
		"restrict examination of data to the window of dates provided")
	reportCmd.Flags().StringSliceVarP(&reportIgnore, "ignorehosts", "i", nil,
		"IP addresses of hosts to exclude from the report")
	reportCmd.Flags().BoolVar(&reportPlots, "plots", true,
		"write a chart PNG per channel")
	reportCmd.Flags().StringVar(&reportOutdir, "outdir", "",
		"directory for chart output (default: plot.output_dir from config)")
	reportCmd.Flags().BoolVar(&reportPyPI, "pypi", true,
		"check which titles are also available on PyPI")
}

func runReport(cmd *cobra.Command, args []string) error {
	filter := dataset.Filter{IgnoreHosts: reportIgnore}
	if reportWindow != "" {
		start, end, err := report.ParseWindow(reportWindow)
		if err != nil {
			return err
		}
		filter.Start, filter.End = start, end
		logger.Info("filtering on date window",
			zap.Time("start", start), zap.Time("end", end))
	}

	store, err := dataset.Open(datasetPath(args), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Select(filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No download records match.")
		return nil
	}
	logger.Info("loaded records", zap.Int("count", len(records)))

	cls, err := classify.New(cfg)
	if err != nil {
		return err
	}

	summaries := report.BuildAll(records, cls)

	var checker *report.PyPIChecker
	if reportPyPI && cfg.PyPI.CheckEnabled {
		checker = report.NewPyPIChecker(report.DefaultPyPIBaseURL,
			cfg.PyPITimeout(), cfg.PyPI.Concurrency, logger)
	}

	outdir := reportOutdir
	if outdir == "" {
		outdir = cfg.Plot.OutputDir
	}

	total := 0
	for i := range summaries {
		s := &summaries[i]
		total += s.Downloads

		if checker != nil {
			names := make([]string, len(s.Titles))
			for j, t := range s.Titles {
				names[j] = t.Name
			}
			report.Annotate(s, checker.Check(cmd.Context(), names))
		}

		report.Render(os.Stdout, *s)

		if reportPlots && cfg.Plot.Enabled {
			out, err := plot.WriteChannelChart(*s, outdir)
			if err != nil {
				return err
			}
			fmt.Printf("\nwrote %s\n", out)
		}
	}

	fmt.Printf("\nTOTAL downloads across %d channels: %d\n", len(summaries), total)
	return nil
}
