package domain

import "errors"

var (
	ErrSheetEmpty         = errors.New("macro sheet is empty or has no data rows")
	ErrConfigSheetMissing = errors.New("issuer configuration sheet not found in workbook")
	ErrNoValidInvoices    = errors.New("no rows with a valid invoice number after filtering")
	ErrNoSubmissions      = errors.New("no submissions found to export")
)
