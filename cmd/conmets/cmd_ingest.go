package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rendinam/logparse/internal/dataset"
	"github.com/rendinam/logparse/internal/logparse"
)

var (
	ingestFiles   []string
	ingestIgnore  []string
	ingestWorkers int
)

// ingestCmd parses log files into the dataset
var ingestCmd = &cobra.Command{
	Use:   "ingest [dataset]",
	Short: "Parse access logs into the dataset",
	Long: `Parses the given access log files, raw or .gz, and merges the conda
package download transactions they contain into the dataset. Files
whose content hash is already recorded in the dataset are skipped.
The dataset is created if it does not exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "files", "f", nil,
		"log files to parse, raw or .gz; glob syntax is honored")
	ingestCmd.Flags().StringSliceVarP(&ingestIgnore, "ignorehosts", "i", nil,
		"IP addresses of hosts to ignore when parsing logs")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4,
		"number of log files to parse concurrently")
	_ = ingestCmd.MarkFlagRequired("files")
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := logparse.ExpandGlobs(ingestFiles)
	if err != nil {
		return err
	}

	store, err := dataset.Open(datasetPath(args), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Hash up front so already-ingested files are never re-parsed.
	var pending []string
	for _, file := range files {
		hash, err := logparse.FileMD5(file)
		if err != nil {
			return err
		}
		seen, err := store.HasFile(hash)
		if err != nil {
			return err
		}
		if seen {
			logger.Info("file already ingested, skipping", zap.String("file", file))
			continue
		}
		pending = append(pending, file)
	}

	if len(pending) == 0 {
		logger.Info("nothing new to ingest", zap.String("dataset", store.Path()))
		return nil
	}

	runID, err := store.BeginRun()
	if err != nil {
		return err
	}

	parser := logparse.New(logparse.Options{
		Aliases:     cfg.ChannelAliases,
		IgnoreHosts: append(cfg.IgnoreHosts, ingestIgnore...),
		Logger:      logger,
	})

	results, err := parser.ParseFiles(cmd.Context(), pending, ingestWorkers)
	if err != nil {
		return err
	}

	totalAdded := 0
	for _, res := range results {
		added, err := store.AddRecords(res.Records)
		if err != nil {
			return err
		}
		if err := store.AddFile(res.Hash, res.File, runID, added); err != nil {
			return err
		}
		totalAdded += added
		logger.Info("ingested log file",
			zap.String("file", res.File),
			zap.Int("lines", res.Lines),
			zap.Int("records", len(res.Records)),
			zap.Int("added", added),
			zap.Int("unparseable", res.Unparseable))
	}

	if err := store.FinishRun(runID, len(results), totalAdded); err != nil {
		return err
	}

	total, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d new transactions from %d files (%d skipped). Dataset now holds %d.\n",
		totalAdded, len(results), len(files)-len(pending), total)

	return nil
}
