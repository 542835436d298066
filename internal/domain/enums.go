package domain

// InvoiceKind classifies an invoice by its number prefix.
type InvoiceKind string

const (
	KindNormal    InvoiceKind = "normal"
	KindIntra     InvoiceKind = "intra"
	KindIntereses InvoiceKind = "intereses"
)

// DocumentType identifies a Spanish/EU tax identification document.
type DocumentType string

const (
	DocNIF    DocumentType = "NIF"
	DocCIF    DocumentType = "CIF"
	DocNIE    DocumentType = "NIE"
	DocNIFIVA DocumentType = "NIF-IVA"
)

// SubmissionStatus is the outcome of a submitted invoice as persisted in the
// submissions store. Only success and duplicate rows are exported.
type SubmissionStatus string

const (
	SubmissionSuccess   SubmissionStatus = "success"
	SubmissionDuplicate SubmissionStatus = "duplicate"
	SubmissionFailed    SubmissionStatus = "failed"
)

// ExportableStatuses are the submission states included in .mmb exports.
var ExportableStatuses = []SubmissionStatus{SubmissionSuccess, SubmissionDuplicate}
