// Command export queries submitted invoices and generates the accounting
// import file.
// Usage: go run ./cmd/export [-from YYYY-MM-DD] [-to YYYY-MM-DD]
// [-issuer name] [-ids id,id,...] [-workbook path] [-out file]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"macrofact/internal/config"
	"macrofact/internal/export"
	"macrofact/internal/logger"
	"macrofact/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	from := flag.String("from", "", "include submissions sent on or after this date (YYYY-MM-DD)")
	to := flag.String("to", "", "include submissions sent on or before this date (YYYY-MM-DD)")
	issuer := flag.String("issuer", "", "restrict to one issuer")
	ids := flag.String("ids", "", "comma-separated submission ids, overrides the other filters")
	workbook := flag.String("workbook", "", "workbook for client code lookups (default: the one on each submission)")
	out := flag.String("out", "", "output file path (default: Facturas_Emitidas_YYYYMMDD.mmb in the output dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	opts := export.Options{
		From:         *from,
		To:           *to,
		Issuer:       *issuer,
		WorkbookPath: *workbook,
		OutputPath:   *out,
	}
	if *ids != "" {
		for _, raw := range strings.Split(*ids, ",") {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("invalid submission id %q: %w", raw, err)
			}
			opts.IDs = append(opts.IDs, id)
		}
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	gen := export.NewGenerator(postgres.NewSubmissionRepo(db), cfg.Export)
	path, err := gen.Generate(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("generating export: %w", err)
	}
	fmt.Println(path)
	return nil
}
