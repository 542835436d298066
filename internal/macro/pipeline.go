// Package macro turns a macro workbook into the normalized invoice tables
// (invoices, concepts, text lines, payment methods) plus best-effort
// historical tables harvested from archive sheets.
//
// The pipeline is row-oriented: the working sheet is read once, rows are
// grouped by the issuer tax id in column E, each group is matched against the
// issuer configuration sheet, and the per-invoice derivations (VAT inference,
// withholding, first-description upper-casing) run within the group.
package macro

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"macrofact/internal/config"
	"macrofact/internal/docid"
	"macrofact/internal/domain"
	"macrofact/internal/logger"
)

// fallbackBIC is used for payment methods when the issuer has no BIC
// configured.
const fallbackBIC = "CAGLESMMXXX"

// Adapter runs the ingestion pipeline. The API credentials act as the
// lowest-precedence fallback when an issuer row carries none.
type Adapter struct {
	log zerolog.Logger
	api config.APIConfig
}

// NewAdapter returns an Adapter using the given credential fallbacks.
func NewAdapter(api config.APIConfig) *Adapter {
	return &Adapter{log: logger.WithComponent("macro"), api: api}
}

// macroRow is one data row of the working sheet mapped through the column
// layout, with amounts coerced and ids normalized.
type macroRow struct {
	excelRow       int // 1-based row number in the sheet, for diagnostics
	number         string
	kind           domain.InvoiceKind
	emissionRaw    string
	issuerNorm     string
	clientName     string
	clientTaxRaw   string
	clientTaxClean string
	address        string
	postalProv     string
	descs          [conceptSlots]string
	amounts        [conceptSlots]float64
	advances       float64
	iban           string
	resolvedIBAN   string
	status         string
	base           float64
	total          float64
	originalRef    string
}

func parseRow(row []string, excelRow int) *macroRow {
	r := &macroRow{excelRow: excelRow}
	r.number = NormalizeInvoiceNumber(cell(row, colInvoiceNumber))
	r.kind = KindOf(r.number)
	r.emissionRaw = cell(row, colEmissionDate)
	if issuer := cell(row, colIssuerTaxID); !isBlank(issuer) {
		r.issuerNorm = NormalizeIssuerTaxID(issuer)
	}
	r.clientName = strings.TrimSpace(cell(row, colClientName))
	r.clientTaxRaw = strings.TrimSpace(cell(row, colClientTaxID))
	r.clientTaxClean = CleanClientTaxID(cell(row, colClientTaxID))
	r.address = strings.TrimSpace(cell(row, colClientAddress))
	r.postalProv = cell(row, colPostalProv)
	for i := 1; i <= conceptSlots; i++ {
		descCol, amountCol := slotColumns(i)
		r.descs[i-1] = cell(row, descCol)
		r.amounts[i-1] = CoerceNumber(cell(row, amountCol))
	}
	r.advances = CoerceNumber(cell(row, colAdvances))
	if iban := strings.ReplaceAll(cell(row, colIBAN), " ", ""); !isBlank(iban) {
		r.iban = iban
	}
	r.status = strings.TrimSpace(cell(row, colSheetStatus))
	r.base = CoerceNumber(cell(row, colBase))
	r.total = CoerceNumber(cell(row, colTotal))
	r.originalRef = strings.TrimSpace(cell(row, colOriginalRef))
	return r
}

// Adapt reads the workbook at path and produces the normalized batch.
func (a *Adapter) Adapt(path string) (*domain.Batch, error) {
	w, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return a.adapt(w)
}

func (a *Adapter) adapt(w *Workbook) (*domain.Batch, error) {
	sheet, err := w.WorkingSheet()
	if err != nil {
		return nil, err
	}
	raw, err := w.Rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, domain.ErrSheetEmpty)
	}

	var rows []*macroRow
	for i, r := range raw[1:] {
		mr := parseRow(r, i+2)
		if mr.number == "" {
			continue
		}
		rows = append(rows, mr)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, domain.ErrNoValidInvoices)
	}

	issuers, err := loadIssuerTable(w)
	if err != nil {
		return nil, err
	}

	// group rows by issuer tax id, keeping first-encounter order
	groups := make(map[string][]*macroRow)
	var order []string
	for _, r := range rows {
		if r.issuerNorm == "" {
			continue
		}
		if _, ok := groups[r.issuerNorm]; !ok {
			order = append(order, r.issuerNorm)
		}
		groups[r.issuerNorm] = append(groups[r.issuerNorm], r)
	}

	batch := &domain.Batch{}
	for _, taxID := range order {
		group := groups[taxID]
		row, matchType, ok := issuers.match(taxID)
		if !ok {
			a.log.Warn().Str("issuer", taxID).Int("rows", len(group)).
				Msg("issuer not configured, skipping its invoices")
			continue
		}
		issuer := a.buildIssuer(row, taxID)
		a.log.Debug().Str("issuer", taxID).Str("match", matchType).Msg("issuer matched")
		a.processGroup(batch, group, issuer)
	}

	batch.HistoricalInvoices, batch.HistoricalConcepts = a.harvestHistory(w, issuers)

	a.log.Info().
		Int("invoices", len(batch.Invoices)).
		Int("concepts", len(batch.Concepts)).
		Int("payments", len(batch.PaymentMethods)).
		Int("historical", len(batch.HistoricalInvoices)).
		Msg("workbook adapted")
	return batch, nil
}

func (a *Adapter) processGroup(batch *domain.Batch, group []*macroRow, issuer domain.Issuer) {
	for _, r := range group {
		r.resolvedIBAN = r.iban
		if r.resolvedIBAN == "" {
			r.resolvedIBAN = issuer.DefaultIBAN
		}
		if r.resolvedIBAN == "" {
			a.log.Warn().Str("issuer", issuer.TaxID).Str("invoice", r.number).Int("row", r.excelRow).
				Msg("no IBAN resolvable, invoice excluded from payment methods")
		}
	}

	concepts, texts := buildLines(group, issuer)

	vat := vatByInvoice(group)
	withheld := withholdingByInvoice(group, issuer.WithholdingSeries)
	for i := range concepts {
		concepts[i].TaxPct = vat[concepts[i].InvoiceNumber]
		if withheld[concepts[i].InvoiceNumber] {
			concepts[i].WithheldType = "IRPF"
			concepts[i].WithheldPct = 19.0
		}
	}

	invoices, valid := a.buildHeaders(group, issuer)

	var payments []domain.PaymentMethod
	for _, r := range group {
		if !valid[r.number] || r.resolvedIBAN == "" {
			continue
		}
		bic := issuer.BIC
		if bic == "" {
			bic = fallbackBIC
		}
		payments = append(payments, domain.PaymentMethod{
			InvoiceNumber: r.number,
			Issuer:        issuer.Name,
			Method:        "transferencia",
			Bank:          "ABANCA",
			Beneficiary:   issuer.Name,
			Concept:       "Pago Factura",
			IBAN:          r.resolvedIBAN,
			BIC:           bic,
		})
	}

	batch.Invoices = append(batch.Invoices, invoices...)
	batch.Concepts = append(batch.Concepts, concepts...)
	batch.TextLines = append(batch.TextLines, texts...)
	batch.PaymentMethods = append(batch.PaymentMethods, payments...)
}

// buildLines splits the 8 description/amount slots of each row into priced
// concepts and amount-less text lines, then upper-cases whatever sits in the
// first described slot of each invoice.
func buildLines(group []*macroRow, issuer domain.Issuer) ([]domain.Concept, []domain.TextLine) {
	var concepts []domain.Concept
	var texts []domain.TextLine
	minSlot := make(map[string]int)
	note := func(num string, slot int) {
		if cur, ok := minSlot[num]; !ok || slot < cur {
			minSlot[num] = slot
		}
	}

	for _, r := range group {
		pos := 0
		for i := 1; i <= conceptSlots; i++ {
			desc := strings.TrimSpace(r.descs[i-1])
			if desc == "" {
				continue
			}
			if amount := r.amounts[i-1]; amount != 0 {
				concepts = append(concepts, domain.Concept{
					InvoiceNumber: r.number,
					Issuer:        issuer.Name,
					Description:   desc,
					Account:       "7050000",
					Unit:          issuer.DefaultUnit,
					Units:         1.0,
					UnitBase:      amount,
					TaxType:       "IVA",
					Slot:          i,
				})
			} else {
				texts = append(texts, domain.TextLine{
					InvoiceNumber: r.number,
					Issuer:        issuer.Name,
					Description:   desc,
					Position:      pos,
					Slot:          i,
				})
			}
			note(r.number, i)
			pos++
		}
	}

	for i := range concepts {
		if concepts[i].Slot == minSlot[concepts[i].InvoiceNumber] {
			concepts[i].Description = strings.ToUpper(concepts[i].Description)
		}
	}
	for i := range texts {
		if texts[i].Slot == minSlot[texts[i].InvoiceNumber] {
			texts[i].Description = strings.ToUpper(texts[i].Description)
		}
	}
	return concepts, texts
}

// vatByInvoice infers the VAT percentage of each invoice from the first row
// carrying its number: the rate implied by (total - advances - base) / base,
// snapped to a common Spanish rate when close. Normal invoices never get a
// non-positive rate; intra-community and interest invoices are always 0.
func vatByInvoice(group []*macroRow) map[string]float64 {
	vat := make(map[string]float64)
	for _, r := range group {
		if _, ok := vat[r.number]; ok {
			continue
		}
		if r.kind != domain.KindNormal {
			vat[r.number] = 0
			continue
		}
		v := 0.0
		if r.base != 0 && r.total != 0 {
			v = snapVAT(((r.total - r.advances) - r.base) / r.base * 100.0)
		}
		if v <= 0 || math.IsNaN(v) {
			v = 21.0
		}
		vat[r.number] = v
	}
	return vat
}

var commonVATRates = []float64{0, 4, 5, 10, 21}

func snapVAT(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	for _, c := range commonVATRates {
		if math.Abs(p-c) <= 0.25 {
			return c
		}
	}
	return round2(p)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// withholdingByInvoice marks the invoices subject to IRPF withholding:
// interest invoices always, normal invoices when their number starts with a
// configured withholding series prefix.
func withholdingByInvoice(group []*macroRow, series []string) map[string]bool {
	kind := make(map[string]domain.InvoiceKind)
	for _, r := range group {
		if _, ok := kind[r.number]; !ok {
			kind[r.number] = r.kind
		}
	}
	out := make(map[string]bool)
	for num, k := range kind {
		switch k {
		case domain.KindIntereses:
			out[num] = true
		case domain.KindNormal:
			for _, p := range series {
				if p != "" && strings.HasPrefix(num, p) {
					out[num] = true
					break
				}
			}
		}
	}
	return out
}

// buildHeaders emits one Invoice per first-seen invoice number. Rows whose
// emission date does not parse are dropped with a warning; their number is
// still marked processed so later duplicates do not resurrect them.
func (a *Adapter) buildHeaders(group []*macroRow, issuer domain.Issuer) ([]domain.Invoice, map[string]bool) {
	var invoices []domain.Invoice
	valid := make(map[string]bool)
	processed := make(map[string]bool)

	for _, r := range group {
		if processed[r.number] {
			continue
		}
		processed[r.number] = true

		date, ok := ParseDate(r.emissionRaw)
		if !ok {
			a.log.Warn().Str("invoice", r.number).Int("row", r.excelRow).
				Msg("unparseable emission date, invoice dropped")
			continue
		}
		year, _ := strconv.Atoi(date[:4])

		docType, residence, country := "nif", "R", "ESP"
		if r.kind == domain.KindIntra {
			docType, residence = "otro_id", "U"
			country = CountryISO3(r.clientTaxClean)
		} else if r.clientTaxClean != "" {
			if res := docid.Validate(r.clientTaxClean); !res.Valid {
				a.log.Warn().Str("invoice", r.number).Str("document", r.clientTaxClean).
					Str("reason", res.Reason).Msg("client document fails checksum")
			}
		}

		cp, prov := SplitPostalProvince(r.postalProv)

		advances := 0.0
		if r.kind == domain.KindNormal {
			advances = r.advances
		}

		invoices = append(invoices, domain.Invoice{
			Number:         r.number,
			Issuer:         issuer.Name,
			Kind:           r.kind,
			APIToken:       issuer.APIToken,
			APIEmail:       issuer.APIEmail,
			APIURL:         issuer.APIURL,
			EmissionDate:   date,
			DueDate:        date,
			InvoiceType:    "F1",
			FiscalYear:     year,
			PersonType:     "J",
			ClientName:     r.clientName,
			DocumentType:   docType,
			ClientTaxID:    r.clientTaxClean,
			ClientAccount:  "4300000",
			ResidenceType:  residence,
			CountryCode:    country,
			Province:       truncate(prov, 20),
			Locality:       truncate(prov, 50),
			Address:        r.address,
			PostalCode:     cp,
			Advances:       advances,
			IssuedTemplate: issuer.IssuedTemplate,
			ProformaTpl:    issuer.ProformaTemplate,
			SheetStatus:    r.status,
			OriginalRef:    r.originalRef,
			RawAdvances:    r.advances,
			RawBase:        r.base,
			RawTotal:       r.total,
		})
		valid[r.number] = true
	}
	return invoices, valid
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
