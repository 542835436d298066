package domain

import (
	"time"

	"github.com/google/uuid"
)

// Issuer is a configured issuing company, loaded once per batch from the
// CLIENTES sheet of the macro workbook. Immutable during processing.
type Issuer struct {
	TaxID             string   // normalized CIF
	Name              string   // display name (empresa_nombre, else nombre_legal, else tax id)
	DefaultUnit       string   // default unit of measure for concepts
	BIC               string   // bank identifier for payment methods
	DefaultIBAN       string   // IBAN used when the row has none
	WithholdingSeries []string // invoice-number prefixes subject to IRPF withholding
	IssuedTemplate    string   // rectification template: issued invoices
	ProformaTemplate  string   // rectification template: proforma invoices
	APIToken          string
	APIEmail          string
	APIURL            string
}

// Invoice is one normalized invoice header. One header exists per
// first-seen invoice number within an issuer group.
type Invoice struct {
	Number         string // digits-only when numeric, trimmed text otherwise
	Issuer         string // issuer display name
	Kind           InvoiceKind
	APIToken       string
	APIEmail       string
	APIURL         string
	Series         string
	EmissionDate   string // ISO YYYY-MM-DD
	DueDate        string // ISO YYYY-MM-DD, equals emission date
	Description    string
	InvoiceType    string // fixed literal "F1"
	FiscalYear     int    // leading 4 digits of the emission date
	PersonType     string // fixed literal "J"
	ClientName     string
	DocumentType   string // "nif" or "otro_id"
	ClientTaxID    string
	ClientAccount  string // fixed literal "4300000"
	ResidenceType  string // "R" domestic, "U" intra-community
	CountryCode    string // ISO-3166 alpha-3
	Province       string // max 20 chars
	Locality       string // max 50 chars
	Address        string
	PostalCode     string
	Advances       float64 // suplidos, zero for non-normal kinds
	Financial      float64
	Withheld       float64
	IssuedTemplate string
	ProformaTpl    string
	SheetStatus    string  // column AC as read
	OriginalRef    string  // column AI, original invoice for rectifications
	RawAdvances    float64 // column AA as read
	RawBase        float64 // column AD as read
	RawTotal       float64 // column AH as read
}

// Concept is one priced line item of an invoice.
type Concept struct {
	InvoiceNumber string
	Issuer        string
	Description   string
	Account       string // fixed literal "7050000"
	Unit          string
	Units         float64
	UnitBase      float64
	TaxType       string // "IVA"
	TaxPct        float64
	WithheldType  string // "IRPF" when withholding applies, else empty
	WithheldPct   float64
	Slot          int    // 1-based description/amount column pair it came from
}

// TextLine is a description-only line with no amount, ordered by its slot
// position within the invoice.
type TextLine struct {
	InvoiceNumber string
	Issuer        string
	Description   string
	Position      int
	Slot          int // 1-based description/amount column pair it came from
}

// PaymentMethod is one payment instruction per invoice.
type PaymentMethod struct {
	InvoiceNumber string
	Issuer        string
	Method        string // "transferencia"
	Bank          string
	Beneficiary   string
	Concept       string
	IBAN          string
	BIC           string
}

// HistoricalInvoice is a lighter-weight invoice row harvested from archive
// sheets, kept only so rectification workflows can recover original figures.
type HistoricalInvoice struct {
	Number      string
	Issuer      string
	ClientTaxID string
	ClientName  string
	ClientDocID string
	Advances    float64
	Base        float64
	Total       float64
}

// HistoricalConcept mirrors Concept for harvested archive sheets.
type HistoricalConcept struct {
	InvoiceNumber string
	Issuer        string
	Description   string
	Unit          string
	UnitBase      float64
	TaxType       string
	TaxPct        float64
	WithheldType  string
	WithheldPct   float64
}

// Batch is the full output of one ingestion run.
type Batch struct {
	Invoices           []Invoice
	Concepts           []Concept
	TextLines          []TextLine
	PaymentMethods     []PaymentMethod
	HistoricalInvoices []HistoricalInvoice
	HistoricalConcepts []HistoricalConcept
}

// Submission is one previously submitted invoice as persisted in the store.
type Submission struct {
	ID            uuid.UUID        `db:"id"`
	SentAt        time.Time        `db:"sent_at"`
	InvoiceNumber string           `db:"invoice_number"`
	Issuer        string           `db:"issuer"`
	Status        SubmissionStatus `db:"status"`
	Detail        string           `db:"detail"`
	PDFURL        string           `db:"pdf_url"`
	Amount        float64          `db:"amount"`
	Client        string           `db:"client"`
	WorkbookPath  string           `db:"workbook_path"`
}

// SubmissionFilters narrows the submissions queried for export. When IDs is
// non-empty it takes priority and the remaining filters are ignored.
type SubmissionFilters struct {
	IDs    []uuid.UUID
	From   string // YYYY-MM-DD inclusive
	To     string // YYYY-MM-DD inclusive
	Issuer string
}
