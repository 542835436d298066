package macro

import (
	"strings"

	"macrofact/internal/domain"
)

// harvestHistory scans the archive sheets of the workbook (anything that is
// neither the working sheet nor a configuration sheet) for invoices that were
// removed from the working sheet, so rectification workflows can still find
// the original figures. The whole harvest is best-effort: unreadable sheets
// are skipped and never fail the batch.
func (a *Adapter) harvestHistory(w *Workbook, issuers *issuerTable) ([]domain.HistoricalInvoice, []domain.HistoricalConcept) {
	excluded := make(map[string]bool)
	for _, n := range PreferredSheets {
		excluded[strings.ToLower(n)] = true
	}
	for _, n := range ConfigSheets {
		excluded[strings.ToLower(n)] = true
	}

	var dataRows [][]string
	for _, name := range w.SheetNames() {
		if excluded[strings.ToLower(name)] {
			continue
		}
		sheetRows, err := w.Rows(name)
		if err != nil {
			a.log.Warn().Err(err).Str("sheet", name).Msg("historical sheet unreadable, skipped")
			continue
		}
		if len(sheetRows) < 2 {
			continue
		}
		// only sheets whose first header cell mentions invoices or credit
		// notes; auxiliary sheets (rates, analysis) are left alone
		first := ""
		if len(sheetRows[0]) > 0 {
			first = FoldText(sheetRows[0][0])
		}
		if first == "" || !(strings.Contains(first, "factura") || strings.Contains(first, "abono")) {
			continue
		}
		dataRows = append(dataRows, sheetRows[1:]...)
	}
	if len(dataRows) == 0 {
		return nil, nil
	}

	var rows []*macroRow
	for _, raw := range dataRows {
		mr := parseRow(raw, 0)
		if mr.number == "" {
			continue
		}
		rows = append(rows, mr)
	}

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

	var histInvoices []domain.HistoricalInvoice
	var histConcepts []domain.HistoricalConcept
	for _, taxID := range order {
		group := groups[taxID]
		row, _, ok := issuers.match(taxID)
		if !ok {
			a.log.Debug().Str("issuer", taxID).Msg("historical issuer not configured, skipped")
			continue
		}
		name := pickColumn(row, "empresa_nombre")
		if name == "" {
			name = taxID
		}
		unit := row["unidad_medida_defecto"]
		if unit == "" {
			unit = "ud"
		}

		vat := historicalVATByInvoice(group)
		concepts, _ := buildLines(group, domain.Issuer{Name: name, DefaultUnit: unit})
		for _, c := range concepts {
			histConcepts = append(histConcepts, domain.HistoricalConcept{
				InvoiceNumber: c.InvoiceNumber,
				Issuer:        c.Issuer,
				Description:   c.Description,
				Unit:          c.Unit,
				UnitBase:      c.UnitBase,
				TaxType:       "IVA",
				TaxPct:        vat[c.InvoiceNumber],
			})
		}

		seen := make(map[string]bool)
		for _, r := range group {
			if seen[r.number] {
				continue
			}
			seen[r.number] = true
			histInvoices = append(histInvoices, domain.HistoricalInvoice{
				Number:      r.number,
				Issuer:      name,
				ClientTaxID: r.clientTaxRaw,
				ClientName:  r.clientName,
				ClientDocID: r.clientTaxClean,
				Advances:    r.advances,
				Base:        r.base,
				Total:       r.total,
			})
		}
	}
	return histInvoices, histConcepts
}

// historicalVATByInvoice computes the effective VAT rate of archived
// invoices. Unlike the working-sheet inference there is no snapping to
// common rates: the archive keeps whatever rate the figures imply.
func historicalVATByInvoice(group []*macroRow) map[string]float64 {
	vat := make(map[string]float64)
	for _, r := range group {
		if _, ok := vat[r.number]; ok {
			continue
		}
		if r.base == 0 {
			vat[r.number] = 0
			continue
		}
		vat[r.number] = round2((r.total - r.advances - r.base) / r.base * 100.0)
	}
	return vat
}
