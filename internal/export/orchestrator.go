package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"macrofact/internal/config"
	"macrofact/internal/domain"
	"macrofact/internal/logger"
	"macrofact/internal/mmb"
	"macrofact/internal/port"
)

// Options narrows which submissions one export run covers and where its
// output goes. When IDs is non-empty the date and issuer filters are ignored.
type Options struct {
	From         string // YYYY-MM-DD inclusive
	To           string // YYYY-MM-DD inclusive
	Issuer       string
	IDs          []uuid.UUID
	WorkbookPath string // overrides the workbook recorded on the submissions
	OutputPath   string // overrides the default output file name
	LogsDir      string // overrides the configured XML archive directory
	ResponsesDir string // overrides the configured API responses directory
}

// Generator turns stored submissions into an accounting import file.
type Generator struct {
	log  zerolog.Logger
	repo port.SubmissionRepository
	cfg  config.ExportConfig
}

func NewGenerator(repo port.SubmissionRepository, cfg config.ExportConfig) *Generator {
	return &Generator{
		log:  logger.WithComponent("export"),
		repo: repo,
		cfg:  cfg,
	}
}

// Generate queries the selected submissions, enriches each from its archived
// XML when one is found, encodes the records and writes them as a single
// file. It returns the path written.
func (g *Generator) Generate(ctx context.Context, opts Options) (string, error) {
	filters := domain.SubmissionFilters{
		IDs:    opts.IDs,
		From:   opts.From,
		To:     opts.To,
		Issuer: opts.Issuer,
	}
	subs, err := g.repo.List(ctx, filters)
	if err != nil {
		return "", fmt.Errorf("listing submissions: %w", err)
	}
	if len(subs) == 0 {
		return "", domain.ErrNoSubmissions
	}

	logsDir := opts.LogsDir
	if logsDir == "" {
		logsDir = g.cfg.LogsDir
	}
	responsesDir := opts.ResponsesDir
	if responsesDir == "" {
		responsesDir = g.cfg.ResponsesDir
	}

	resolver := newCodeResolver(g.log)
	mmbCfg := mmb.Config{VATCode21: g.cfg.VATCode21, VATCode10: g.cfg.VATCode10}

	var out strings.Builder
	enriched := 0
	for _, sub := range subs {
		workbook := opts.WorkbookPath
		if workbook == "" {
			workbook = sub.WorkbookPath
		}

		fig := mmb.Figures{
			InvoiceNumber:  sub.InvoiceNumber,
			EmissionDate:   sub.SentAt.Format("2006-01-02"),
			ClientName:     sub.Client,
			FallbackAmount: sub.Amount,
		}
		fig.ClientCode = resolver.resolve(sub.Client, workbook)

		if path, ok := FindInvoiceXML(sub.InvoiceNumber, sub.Issuer, logsDir, responsesDir); ok {
			inv, err := ParseArchivedInvoice(path)
			if err != nil {
				g.log.Warn().Err(err).Str("invoice", sub.InvoiceNumber).
					Msg("archived xml unreadable, exporting from stored figures")
			} else {
				applyArchive(&fig, inv)
				if fig.ClientCode == "" && inv.ClientName != "" {
					fig.ClientCode = resolver.resolve(inv.ClientName, workbook)
				}
				enriched++
			}
		}

		out.WriteString(mmb.Record(fig, mmbCfg))
	}

	path := opts.OutputPath
	if path == "" {
		name := fmt.Sprintf("Facturas_Emitidas_%s.mmb", time.Now().Format("20060102"))
		path = filepath.Join(g.cfg.OutputDir, name)
	}
	if err := os.WriteFile(path, []byte(out.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}

	g.log.Info().
		Int("submissions", len(subs)).
		Int("enriched", enriched).
		Str("path", path).
		Msg("export written")
	return path, nil
}

// applyArchive overrides the figures built from the stored submission with
// whatever the archived XML carries.
func applyArchive(fig *mmb.Figures, inv *ArchivedInvoice) {
	if inv.InvoiceNumber != "" {
		fig.InvoiceNumber = inv.InvoiceNumber
	}
	if inv.Series != "" {
		fig.Series = inv.Series
	}
	if inv.EmissionDate != "" {
		fig.EmissionDate = inv.EmissionDate
	}
	if inv.ClientName != "" {
		fig.ClientName = inv.ClientName
	}
	if inv.ClientTaxID != "" {
		fig.ClientTaxID = inv.ClientTaxID
	}
	fig.Base = inv.Base
	fig.VATPct = inv.VATPct
	fig.VATAmount = inv.VATAmount
	fig.Total = inv.Total
}
