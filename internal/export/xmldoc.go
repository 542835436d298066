package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ArchivedInvoice is what the exporter recovers from the XML payload stored
// when an invoice was submitted.
type ArchivedInvoice struct {
	InvoiceNumber string
	Series        string
	EmissionDate  string
	ClientName    string
	ClientTaxID   string
	Base          float64
	VATPct        float64
	VATAmount     float64
	Total         float64
}

type xmlConcept struct {
	BaseImponible string `xml:"base_imponible"`
	Base          string `xml:"base"`
	ImporteBruto  string `xml:"importe_bruto"`
	Porcentaje    string `xml:"porcentaje"`
	Cuota         string `xml:"cuota"`
}

type xmlTax struct {
	BaseImponible string `xml:"base_imponible"`
	Cuota         string `xml:"cuota"`
}

type xmlDocument struct {
	NumeroFactura string `xml:"numero_factura"`
	SerieFactura  string `xml:"serie_factura"`
	FechaEmision  string `xml:"fecha_emision"`
	Cliente       struct {
		Nombre          string `xml:"nombre"`
		NumeroDocumento string `xml:"numero_documento"`
	} `xml:"cliente"`
	// concepts appear either under a <conceptos> wrapper or directly
	// below the root, depending on the payload version
	Conceptos     []xmlConcept `xml:"conceptos>concepto"`
	ConceptosFlat []xmlConcept `xml:"concepto"`
	Impuestos     []xmlTax     `xml:"impuestos_repercutidos>impuesto_repercutido"`
	ImporteTotal  string       `xml:"importe_total"`
	Total         string       `xml:"total"`
}

// xmlNumber parses a numeric XML text node, accepting a comma decimal
// separator. Missing or malformed values report ok=false.
func xmlNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseArchivedInvoice reads the stored XML of a submitted invoice and
// aggregates its figures: concept bases and VAT quotas are summed, the tax
// summary contributes on top, and when only a total is present the base is
// back-computed from the VAT rate.
func ParseArchivedInvoice(path string) (*ArchivedInvoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading invoice xml %s: %w", path, err)
	}
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing invoice xml %s: %w", path, err)
	}

	inv := &ArchivedInvoice{
		InvoiceNumber: strings.TrimSpace(doc.NumeroFactura),
		Series:        strings.TrimSpace(doc.SerieFactura),
		EmissionDate:  strings.TrimSpace(doc.FechaEmision),
		ClientName:    strings.TrimSpace(doc.Cliente.Nombre),
		ClientTaxID:   strings.TrimSpace(doc.Cliente.NumeroDocumento),
		VATPct:        21.0,
	}

	concepts := doc.Conceptos
	if len(concepts) == 0 {
		concepts = doc.ConceptosFlat
	}
	for _, c := range concepts {
		for _, raw := range []string{c.BaseImponible, c.Base, c.ImporteBruto} {
			if v, ok := xmlNumber(raw); ok {
				inv.Base += v
				break
			}
		}
		if v, ok := xmlNumber(c.Porcentaje); ok {
			inv.VATPct = v
		}
		if v, ok := xmlNumber(c.Cuota); ok {
			inv.VATAmount += v
		}
	}
	for _, t := range doc.Impuestos {
		if v, ok := xmlNumber(t.BaseImponible); ok {
			inv.Base += v
		}
		if v, ok := xmlNumber(t.Cuota); ok {
			inv.VATAmount += v
		}
	}

	total, _ := xmlNumber(doc.ImporteTotal)
	if total == 0 {
		total, _ = xmlNumber(doc.Total)
	}
	if inv.Base == 0 && total > 0 {
		if inv.VATPct > 0 {
			inv.Base = total / (1 + inv.VATPct/100.0)
			inv.VATAmount = total - inv.Base
		} else {
			inv.Base = total
		}
	}
	if total > 0 {
		inv.Total = total
	} else {
		inv.Total = inv.Base + inv.VATAmount
	}
	return inv, nil
}

// FindInvoiceXML locates the stored XML of a submitted invoice. The logs
// directory is searched first by issuer and invoice number, then the
// responses directory by invoice number alone.
func FindInvoiceXML(invoiceNumber, issuer, logsDir, responsesDir string) (string, bool) {
	issuerSafe := strings.ReplaceAll(strings.ReplaceAll(issuer, " ", "_"), ".", "")
	numberSafe := strings.ReplaceAll(invoiceNumber, "/", "_")

	if entries, err := os.ReadDir(logsDir); err == nil {
		for _, e := range entries {
			name := e.Name()
			if strings.HasSuffix(name, ".xml") &&
				strings.Contains(name, issuerSafe) && strings.Contains(name, numberSafe) {
				return filepath.Join(logsDir, name), true
			}
		}
	}
	if entries, err := os.ReadDir(responsesDir); err == nil {
		for _, e := range entries {
			name := e.Name()
			if strings.HasSuffix(name, ".xml") && strings.Contains(name, numberSafe) {
				return filepath.Join(responsesDir, name), true
			}
		}
	}
	return "", false
}
