package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"macrofact/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var invoiceColumns = []string{
	"numero", "emisor", "tipo", "serie", "fecha_emision", "fecha_vencimiento",
	"descripcion", "tipo_factura", "ejercicio", "tipo_persona",
	"cliente_nombre", "tipo_documento", "cliente_nif", "cuenta_cliente",
	"tipo_residencia", "pais", "provincia", "localidad", "direccion",
	"codigo_postal", "suplidos", "retencion", "estado_hoja", "factura_original",
}

var conceptColumns = []string{
	"factura", "emisor", "descripcion", "cuenta", "unidad", "unidades",
	"base_unitaria", "tipo_impuesto", "porcentaje", "tipo_retencion",
	"porcentaje_retencion", "posicion",
}

var textLineColumns = []string{"factura", "emisor", "descripcion", "posicion"}

var paymentColumns = []string{
	"factura", "emisor", "metodo", "banco", "beneficiario", "concepto", "iban", "bic",
}

var historicalInvoiceColumns = []string{
	"numero", "emisor", "cliente_nif", "cliente_nombre", "suplidos", "base", "total",
}

var historicalConceptColumns = []string{
	"factura", "emisor", "descripcion", "unidad", "base_unitaria",
	"tipo_impuesto", "porcentaje", "tipo_retencion", "porcentaje_retencion",
}

// Writer wraps csv.Writer for exporting one normalized table.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteInvoices writes the invoice header table with its header row.
func (w *Writer) WriteInvoices(invoices []domain.Invoice) error {
	if err := w.csv.Write(invoiceColumns); err != nil {
		return err
	}
	for i := range invoices {
		inv := &invoices[i]
		row := []string{
			inv.Number, inv.Issuer, string(inv.Kind), inv.Series,
			inv.EmissionDate, inv.DueDate, inv.Description, inv.InvoiceType,
			strconv.Itoa(inv.FiscalYear), inv.PersonType,
			inv.ClientName, inv.DocumentType, inv.ClientTaxID, inv.ClientAccount,
			inv.ResidenceType, inv.CountryCode, inv.Province, inv.Locality,
			inv.Address, inv.PostalCode,
			formatMoney(inv.Advances), formatMoney(inv.Withheld),
			inv.SheetStatus, inv.OriginalRef,
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteConcepts writes the priced line-item table with its header row.
func (w *Writer) WriteConcepts(concepts []domain.Concept) error {
	if err := w.csv.Write(conceptColumns); err != nil {
		return err
	}
	for i := range concepts {
		c := &concepts[i]
		row := []string{
			c.InvoiceNumber, c.Issuer, c.Description, c.Account, c.Unit,
			formatMoney(c.Units), formatMoney(c.UnitBase),
			c.TaxType, formatMoney(c.TaxPct),
			c.WithheldType, formatMoney(c.WithheldPct),
			strconv.Itoa(c.Slot),
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextLines writes the description-only line table with its header row.
func (w *Writer) WriteTextLines(lines []domain.TextLine) error {
	if err := w.csv.Write(textLineColumns); err != nil {
		return err
	}
	for i := range lines {
		l := &lines[i]
		row := []string{l.InvoiceNumber, l.Issuer, l.Description, strconv.Itoa(l.Position)}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WritePaymentMethods writes the payment instruction table with its header row.
func (w *Writer) WritePaymentMethods(payments []domain.PaymentMethod) error {
	if err := w.csv.Write(paymentColumns); err != nil {
		return err
	}
	for i := range payments {
		p := &payments[i]
		row := []string{
			p.InvoiceNumber, p.Issuer, p.Method, p.Bank,
			p.Beneficiary, p.Concept, p.IBAN, p.BIC,
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistoricalInvoices writes the harvested archive invoice table.
func (w *Writer) WriteHistoricalInvoices(invoices []domain.HistoricalInvoice) error {
	if err := w.csv.Write(historicalInvoiceColumns); err != nil {
		return err
	}
	for i := range invoices {
		inv := &invoices[i]
		row := []string{
			inv.Number, inv.Issuer, inv.ClientTaxID, inv.ClientName,
			formatMoney(inv.Advances), formatMoney(inv.Base), formatMoney(inv.Total),
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistoricalConcepts writes the harvested archive line-item table.
func (w *Writer) WriteHistoricalConcepts(concepts []domain.HistoricalConcept) error {
	if err := w.csv.Write(historicalConceptColumns); err != nil {
		return err
	}
	for i := range concepts {
		c := &concepts[i]
		row := []string{
			c.InvoiceNumber, c.Issuer, c.Description, c.Unit,
			formatMoney(c.UnitBase), c.TaxType, formatMoney(c.TaxPct),
			c.WithheldType, formatMoney(c.WithheldPct),
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch writes the full normalized batch as one CSV file per table
// under dir, named <stem>_<table>.csv. Empty tables still produce a file
// with only the header row. Returns the paths written.
func WriteBatch(dir, stem string, batch *domain.Batch) ([]string, error) {
	stem = SanitizeFilename(stem)
	tables := []struct {
		name  string
		write func(w *Writer) error
	}{
		{"facturas", func(w *Writer) error { return w.WriteInvoices(batch.Invoices) }},
		{"conceptos", func(w *Writer) error { return w.WriteConcepts(batch.Concepts) }},
		{"textos", func(w *Writer) error { return w.WriteTextLines(batch.TextLines) }},
		{"pagos", func(w *Writer) error { return w.WritePaymentMethods(batch.PaymentMethods) }},
		{"historico_facturas", func(w *Writer) error { return w.WriteHistoricalInvoices(batch.HistoricalInvoices) }},
		{"historico_conceptos", func(w *Writer) error { return w.WriteHistoricalConcepts(batch.HistoricalConcepts) }},
	}

	paths := make([]string, 0, len(tables))
	for _, tbl := range tables {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", stem, tbl.name))
		if err := writeFile(path, tbl.write); err != nil {
			return nil, fmt.Errorf("writing %s table: %w", tbl.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(w *Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a workbook or issuer name for use in file names.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildStem derives the default output stem from the workbook path:
// {sanitized_base_name}_{YYYY-MM-DD}.
func BuildStem(workbookPath string) string {
	base := strings.TrimSuffix(filepath.Base(workbookPath), filepath.Ext(workbookPath))
	return fmt.Sprintf("%s_%s", SanitizeFilename(base), time.Now().Format("2006-01-02"))
}
