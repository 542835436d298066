// Command record inserts one submission row into the store, for backfilling
// invoices that were sent outside the normal flow.
// Usage: go run ./cmd/record -invoice 1001 -issuer "ACME SL" [-status success]
// [-client name] [-amount 1210.50] [-workbook path] [-detail text]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"macrofact/internal/config"
	"macrofact/internal/domain"
	"macrofact/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	invoice := flag.String("invoice", "", "invoice number")
	issuer := flag.String("issuer", "", "issuer name")
	status := flag.String("status", string(domain.SubmissionSuccess), "submission status")
	client := flag.String("client", "", "client name")
	amount := flag.Float64("amount", 0, "invoice total")
	workbook := flag.String("workbook", "", "originating workbook path")
	detail := flag.String("detail", "", "free-form detail")
	sentAt := flag.String("sent-at", "", "send timestamp, YYYY-MM-DD (default: now)")
	flag.Parse()

	if *invoice == "" || *issuer == "" {
		return fmt.Errorf("missing required -invoice or -issuer flag")
	}

	sent := time.Now()
	if *sentAt != "" {
		t, err := time.Parse("2006-01-02", *sentAt)
		if err != nil {
			return fmt.Errorf("invalid -sent-at value %q: %w", *sentAt, err)
		}
		sent = t
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sub := &domain.Submission{
		SentAt:        sent,
		InvoiceNumber: *invoice,
		Issuer:        *issuer,
		Status:        domain.SubmissionStatus(*status),
		Detail:        *detail,
		Amount:        *amount,
		Client:        *client,
		WorkbookPath:  *workbook,
	}
	repo := postgres.NewSubmissionRepo(db)
	if err := repo.Create(context.Background(), sub); err != nil {
		return fmt.Errorf("inserting submission: %w", err)
	}
	fmt.Println(sub.ID)
	return nil
}
