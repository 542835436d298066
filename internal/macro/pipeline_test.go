package macro

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"macrofact/internal/config"
	"macrofact/internal/domain"
)

// writeWorkbook builds an .xlsx in a temp dir from sheet -> cell -> value.
func writeWorkbook(t *testing.T, sheets map[string]map[string]string) string {
	t.Helper()
	f := excelize.NewFile()
	for name, cells := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for ref, val := range cells {
			require.NoError(t, f.SetCellValue(name, ref, val))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	path := filepath.Join(t.TempDir(), "macro.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func clientesSheet() map[string]string {
	return map[string]string{
		"A1": "cif", "B1": "empresa_nombre", "C1": "unidad_medida_defecto",
		"D1": "bic", "E1": "iban_defecto", "F1": "series_retencion",
		"G1": "api_token", "H1": "cif_aliases",
		"A2": "ES B12345674", "B2": "ACME SL", "C2": "hora",
		"D2": "CAGLESMM", "E2": "ES1111111111111111111111", "F2": "7",
		"G2": "tok123", "H2": "B-99",
	}
}

func TestAdapt(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]string{
		"Macro": {
			"A1": "Factura", "B1": "Fecha",
			// normal invoice, 21% implied by the figures
			"A2": "1001.0", "B2": "2025-03-10", "E2": "B12345674",
			"G2": "Cliente Uno SL", "H2": "CIF: B11111111",
			"I2": "Calle Mayor 1", "J2": "41004 Sevilla",
			"K2": "Servicio marzo", "L2": "1000",
			"M2": "nota al pie",
			"AB2": "ES9121000418450200051332", "AD2": "1000", "AH2": "1210",
			// intra-community invoice, falls back to the issuer IBAN
			"A3": "A2002", "B3": "2025-03-11", "E3": "B12345674",
			"G3": "Euro GmbH", "H3": "DE123456789",
			"I3": "Hauptstr 5", "J3": "10115 Berlin",
			"K3": "export", "L3": "500", "AD3": "500", "AH3": "500",
			// withholding series "7"
			"A4": "7005", "B4": "2025-03-12", "E4": "B12345674",
			"G4": "Despacho SL", "H4": "B22222222", "J4": "Madrid 28001",
			"K4": "minuta", "L4": "300", "AD4": "300", "AH4": "363",
			// unparseable date, header dropped
			"A5": "1004", "B5": "pendiente", "E5": "B12345674",
			"G5": "Tarde SA", "K5": "algo", "L5": "10",
			// issuer not configured, whole group skipped
			"A6": "5001", "B6": "2025-03-13", "E6": "Z9999999X",
			"G6": "Otro", "K6": "x", "L6": "5",
		},
		"CLIENTES": clientesSheet(),
	})

	batch, err := NewAdapter(config.APIConfig{}).Adapt(path)
	require.NoError(t, err)

	require.Len(t, batch.Invoices, 3)
	byNumber := make(map[string]domain.Invoice)
	for _, inv := range batch.Invoices {
		byNumber[inv.Number] = inv
	}

	inv := byNumber["1001"]
	assert.Equal(t, "ACME SL", inv.Issuer)
	assert.Equal(t, domain.KindNormal, inv.Kind)
	assert.Equal(t, "2025-03-10", inv.EmissionDate)
	assert.Equal(t, "2025-03-10", inv.DueDate)
	assert.Equal(t, 2025, inv.FiscalYear)
	assert.Equal(t, "F1", inv.InvoiceType)
	assert.Equal(t, "J", inv.PersonType)
	assert.Equal(t, "B11111111", inv.ClientTaxID)
	assert.Equal(t, "nif", inv.DocumentType)
	assert.Equal(t, "R", inv.ResidenceType)
	assert.Equal(t, "ESP", inv.CountryCode)
	assert.Equal(t, "4300000", inv.ClientAccount)
	assert.Equal(t, "41004", inv.PostalCode)
	assert.Equal(t, "Sevilla", inv.Province)
	assert.Equal(t, "Sevilla", inv.Locality)
	assert.Equal(t, "tok123", inv.APIToken)
	assert.Equal(t, DefaultAPIURL, inv.APIURL)
	assert.InDelta(t, 1000.0, inv.RawBase, 1e-9)
	assert.InDelta(t, 1210.0, inv.RawTotal, 1e-9)

	intra := byNumber["A2002"]
	assert.Equal(t, domain.KindIntra, intra.Kind)
	assert.Equal(t, "otro_id", intra.DocumentType)
	assert.Equal(t, "U", intra.ResidenceType)
	assert.Equal(t, "DEU", intra.CountryCode)

	// dropped rows never become headers
	assert.NotContains(t, byNumber, "1004")
	assert.NotContains(t, byNumber, "5001")

	require.Len(t, batch.Concepts, 4)
	byInvoice := make(map[string][]domain.Concept)
	for _, c := range batch.Concepts {
		byInvoice[c.InvoiceNumber] = append(byInvoice[c.InvoiceNumber], c)
	}

	c := byInvoice["1001"][0]
	assert.Equal(t, "SERVICIO MARZO", c.Description, "first described slot is upper-cased")
	assert.Equal(t, "7050000", c.Account)
	assert.Equal(t, "hora", c.Unit)
	assert.InDelta(t, 1.0, c.Units, 1e-9)
	assert.InDelta(t, 1000.0, c.UnitBase, 1e-9)
	assert.Equal(t, "IVA", c.TaxType)
	assert.InDelta(t, 21.0, c.TaxPct, 1e-9)
	assert.Empty(t, c.WithheldType)

	assert.InDelta(t, 0.0, byInvoice["A2002"][0].TaxPct, 1e-9, "intra invoices carry no VAT")

	ret := byInvoice["7005"][0]
	assert.Equal(t, "IRPF", ret.WithheldType)
	assert.InDelta(t, 19.0, ret.WithheldPct, 1e-9)

	// concepts survive even when the header was dropped for a bad date
	assert.Contains(t, byInvoice, "1004")

	require.Len(t, batch.TextLines, 1)
	txt := batch.TextLines[0]
	assert.Equal(t, "1001", txt.InvoiceNumber)
	assert.Equal(t, "nota al pie", txt.Description, "later slots keep their casing")
	assert.Equal(t, 2, txt.Slot)

	require.Len(t, batch.PaymentMethods, 3)
	byPayment := make(map[string]domain.PaymentMethod)
	for _, p := range batch.PaymentMethods {
		byPayment[p.InvoiceNumber] = p
	}
	assert.Equal(t, "ES9121000418450200051332", byPayment["1001"].IBAN)
	assert.Equal(t, "ES1111111111111111111111", byPayment["A2002"].IBAN, "issuer default IBAN")
	assert.Equal(t, "transferencia", byPayment["1001"].Method)
	assert.Equal(t, "ABANCA", byPayment["1001"].Bank)
	assert.Equal(t, "Pago Factura", byPayment["1001"].Concept)
	assert.Equal(t, "ACME SL", byPayment["1001"].Beneficiary)
	assert.Equal(t, "CAGLESMM", byPayment["1001"].BIC)
}

func TestAdaptMissingIBANKeepsInvoice(t *testing.T) {
	clientes := clientesSheet()
	delete(clientes, "E2") // no issuer default IBAN
	path := writeWorkbook(t, map[string]map[string]string{
		"Macro": {
			"A1": "Factura",
			"A2": "1001", "B2": "2025-03-10", "E2": "B12345674",
			"G2": "Cliente Uno SL", "H2": "B11111111",
			"K2": "Servicio", "L2": "1000", "AD2": "1000", "AH2": "1210",
		},
		"CLIENTES": clientes,
	})

	batch, err := NewAdapter(config.APIConfig{}).Adapt(path)
	require.NoError(t, err)

	assert.Len(t, batch.Invoices, 1, "invoice stays in the header table")
	assert.Empty(t, batch.PaymentMethods, "but is excluded from payment output")
}

func TestAdaptHistoricalSheets(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]string{
		"Macro": {
			"A1": "Factura",
			"A2": "1001", "B2": "2025-03-10", "E2": "B12345674",
			"G2": "Cliente Uno SL", "H2": "B11111111",
			"K2": "Servicio", "L2": "1000", "AD2": "1000", "AH2": "1210",
		},
		"CLIENTES": clientesSheet(),
		"Archivo 2024": {
			"A1": "Facturas emitidas 2024",
			"A2": "901", "B2": "2024-05-01", "E2": "B12345674",
			"G2": "Viejo SA", "H2": "A58818501",
			"K2": "antiguo", "L2": "100", "AD2": "100", "AH2": "121",
		},
		"Tarifas": {
			"A1": "Precios vigentes",
			"A2": "999", "E2": "B12345674", "K2": "no debe aparecer", "L2": "1",
		},
	})

	batch, err := NewAdapter(config.APIConfig{}).Adapt(path)
	require.NoError(t, err)

	require.Len(t, batch.HistoricalInvoices, 1)
	hist := batch.HistoricalInvoices[0]
	assert.Equal(t, "901", hist.Number)
	assert.Equal(t, "ACME SL", hist.Issuer)
	assert.Equal(t, "A58818501", hist.ClientDocID)
	assert.InDelta(t, 100.0, hist.Base, 1e-9)
	assert.InDelta(t, 121.0, hist.Total, 1e-9)

	require.Len(t, batch.HistoricalConcepts, 1)
	hc := batch.HistoricalConcepts[0]
	assert.Equal(t, "ANTIGUO", hc.Description)
	assert.InDelta(t, 21.0, hc.TaxPct, 1e-9)
}

func TestAdaptFatalConditions(t *testing.T) {
	t.Run("empty working sheet", func(t *testing.T) {
		path := writeWorkbook(t, map[string]map[string]string{
			"Macro":    {"A1": "Factura"},
			"CLIENTES": clientesSheet(),
		})
		_, err := NewAdapter(config.APIConfig{}).Adapt(path)
		assert.ErrorIs(t, err, domain.ErrSheetEmpty)
	})

	t.Run("no valid invoice numbers", func(t *testing.T) {
		path := writeWorkbook(t, map[string]map[string]string{
			"Macro":    {"A1": "Factura", "B2": "2025-03-10"},
			"CLIENTES": clientesSheet(),
		})
		_, err := NewAdapter(config.APIConfig{}).Adapt(path)
		assert.ErrorIs(t, err, domain.ErrNoValidInvoices)
	})

	t.Run("missing configuration sheet", func(t *testing.T) {
		path := writeWorkbook(t, map[string]map[string]string{
			"Macro": {
				"A1": "Factura",
				"A2": "1001", "B2": "2025-03-10", "E2": "B12345674",
				"K2": "x", "L2": "1",
			},
		})
		_, err := NewAdapter(config.APIConfig{}).Adapt(path)
		assert.ErrorIs(t, err, domain.ErrConfigSheetMissing)
	})
}

func TestIssuerMatchAliasAndTokenPreference(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]string{
		"Macro": {
			"A1": "Factura",
			"A2": "1001", "B2": "2025-03-10", "E2": "B-99",
			"G2": "Cliente", "H2": "B11111111",
			"K2": "x", "L2": "100", "AD2": "100", "AH2": "121",
			"AB2": "ES9121000418450200051332",
		},
		"CLIENTES": clientesSheet(),
	})

	batch, err := NewAdapter(config.APIConfig{}).Adapt(path)
	require.NoError(t, err)
	require.Len(t, batch.Invoices, 1)
	assert.Equal(t, "ACME SL", batch.Invoices[0].Issuer, "matched through cif_aliases")
}
