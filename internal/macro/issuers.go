package macro

import (
	"fmt"
	"os"
	"strings"

	"macrofact/internal/domain"
)

// DefaultAPIURL is the submission endpoint used when nothing else configures
// one.
const DefaultAPIURL = "https://www.facturantia.com/API/proformas_receptor.php"

// issuerTaxIDColumns are accepted header names for the issuer tax id column,
// in lookup order.
var issuerTaxIDColumns = []string{"cif", "cif/nif", "nif", "vat"}

// issuerTable is the CLIENTES sheet parsed into rows keyed by lower-cased
// header name.
type issuerTable struct {
	rows        []map[string]string
	taxIDColumn string
}

// loadIssuerTable reads the configuration sheet from the same workbook as the
// working sheet. A missing or empty sheet is fatal for the batch.
func loadIssuerTable(w *Workbook) (*issuerTable, error) {
	sheet, ok := w.FindSheet(ConfigSheets)
	if !ok {
		return nil, fmt.Errorf("workbook %s: %w", w.Path(), domain.ErrConfigSheetMissing)
	}
	rows, err := w.NamedRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("issuer sheet %q is empty: %w", sheet, domain.ErrConfigSheetMissing)
	}

	t := &issuerTable{rows: rows}
	for _, cand := range issuerTaxIDColumns {
		if _, ok := rows[0][cand]; ok {
			t.taxIDColumn = cand
			break
		}
	}
	if t.taxIDColumn == "" {
		return nil, fmt.Errorf("issuer sheet %q has no tax id column (expected one of %s)",
			sheet, strings.Join(issuerTaxIDColumns, ", "))
	}
	return t, nil
}

// match finds the configuration row for a normalized issuer tax id, first by
// the tax id column, then by the cif_aliases list. When several rows match,
// the last one carrying an API token wins, so credentialed rows shadow
// plain ones.
func (t *issuerTable) match(target string) (row map[string]string, matchType string, ok bool) {
	if target == "" {
		return nil, "", false
	}

	var hits []map[string]string
	for _, r := range t.rows {
		if NormalizeIssuerTaxID(r[t.taxIDColumn]) == target {
			hits = append(hits, r)
		}
	}
	if len(hits) > 0 {
		return preferToken(hits), "cif", true
	}

	for _, r := range t.rows {
		for _, alias := range SplitList(r["cif_aliases"]) {
			if NormalizeIssuerTaxID(alias) == target {
				hits = append(hits, r)
				break
			}
		}
	}
	if len(hits) > 0 {
		return preferToken(hits), "alias", true
	}
	return nil, "", false
}

func preferToken(hits []map[string]string) map[string]string {
	for i := len(hits) - 1; i >= 0; i-- {
		if strings.TrimSpace(hits[i]["api_token"]) != "" {
			return hits[i]
		}
	}
	return hits[len(hits)-1]
}

// pickColumn returns the first non-empty value among alternative column names.
func pickColumn(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// buildIssuer materializes an Issuer from its configuration row. API
// credentials resolve row value first, then the process environment, then
// the application configuration, then the hardcoded endpoint.
func (a *Adapter) buildIssuer(row map[string]string, taxID string) domain.Issuer {
	name := pickColumn(row, "empresa_nombre", "nombre_legal")
	if name == "" {
		name = taxID
		a.log.Warn().Str("issuer", taxID).Msg("issuer row has no name, falling back to tax id")
	}
	unit := row["unidad_medida_defecto"]
	if unit == "" {
		unit = "ud"
	}

	return domain.Issuer{
		TaxID:             taxID,
		Name:              name,
		DefaultUnit:       unit,
		BIC:               strings.ReplaceAll(row["bic"], " ", ""),
		DefaultIBAN:       strings.ReplaceAll(row["iban_defecto"], " ", ""),
		WithholdingSeries: SplitList(row["series_retencion"]),
		IssuedTemplate:    row["plantilla_facturas_emitidas"],
		ProformaTemplate:  row["plantilla_facturas_proforma"],
		APIToken: firstNonEmpty(
			pickColumn(row, "api_token", "api_key", "token", "facturantia_token", "token_api"),
			os.Getenv("API_TOKEN"),
			a.api.Token,
		),
		APIEmail: firstNonEmpty(
			pickColumn(row, "api_email", "email_api", "usuario_email", "api_user_email", "user_email"),
			os.Getenv("API_EMAIL"),
			a.api.Email,
		),
		APIURL: firstNonEmpty(
			pickColumn(row, "api_url", "url_api", "endpoint", "api_endpoint"),
			os.Getenv("API_URL"),
			a.api.URL,
			DefaultAPIURL,
		),
	}
}
