// Command ingest reads a macro workbook, normalizes its invoices and writes
// the result as one CSV file per table.
// Usage: go run ./cmd/ingest -workbook Macro.xlsx [-out dir] [-stem name]
package main

import (
	"flag"
	"fmt"
	"log"

	"macrofact/internal/config"
	"macrofact/internal/csvexport"
	"macrofact/internal/logger"
	"macrofact/internal/macro"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	workbook := flag.String("workbook", "", "path to the macro .xlsx/.xlsm file")
	outDir := flag.String("out", ".", "directory for the generated CSV files")
	stem := flag.String("stem", "", "output file name stem (default: workbook name plus date)")
	flag.Parse()

	if *workbook == "" {
		return fmt.Errorf("missing required -workbook flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	adapter := macro.NewAdapter(cfg.API)
	batch, err := adapter.Adapt(*workbook)
	if err != nil {
		return fmt.Errorf("processing workbook: %w", err)
	}

	name := *stem
	if name == "" {
		name = csvexport.BuildStem(*workbook)
	}
	paths, err := csvexport.WriteBatch(*outDir, name, batch)
	if err != nil {
		return fmt.Errorf("writing csv files: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
