package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendinam/logparse/internal/dataset"
)

// convertCmd imports a legacy dataset dump
var convertCmd = &cobra.Command{
	Use:   "convert <legacy-file> <dataset>",
	Short: "Import a legacy JSON-lines dataset dump",
	Long: `Merges an old-format dataset dump (a JSON header object with the
processed-file hashes followed by one record per line) into a dataset,
creating the dataset if needed. Records already present are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	store, err := dataset.Open(args[1], logger)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.ImportLegacy(args[0])
	if err != nil {
		return err
	}

	total, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d transactions from %s. Dataset now holds %d.\n",
		added, args[0], total)
	return nil
}
