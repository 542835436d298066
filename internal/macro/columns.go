package macro

import "github.com/xuri/excelize/v2"

// Column letters of the working sheet. The positional layout is load-bearing:
// downstream accounting imports depend on exactly this mapping.
const (
	colInvoiceNumber = "A"
	colEmissionDate  = "B"
	colIssuerTaxID   = "E"
	colClientName    = "G"
	colClientTaxID   = "H"
	colClientAddress = "I"
	colPostalProv    = "J"
	colAdvances      = "AA"
	colIBAN          = "AB"
	colSheetStatus   = "AC"
	colBase          = "AD"
	colTotal         = "AH"
	colOriginalRef   = "AI"
)

// conceptSlots is the number of description/amount column pairs per row
// (K/L through Y/Z).
const conceptSlots = 8

// slotColumns returns the description and amount column letters for the
// 1-based slot i. Slot 1 is K/L, slot 2 is M/N, and so on.
func slotColumns(i int) (desc, amount string) {
	first, _ := excelize.ColumnNameToNumber("K")
	desc, _ = excelize.ColumnNumberToName(first + (i-1)*2)
	amount, _ = excelize.ColumnNumberToName(first + (i-1)*2 + 1)
	return desc, amount
}

// colIdx converts a column letter to its 0-based index.
func colIdx(letter string) int {
	n, _ := excelize.ColumnNameToNumber(letter)
	return n - 1
}

// cell returns the value of the given column in a row, or "" when the row is
// shorter than the column index.
func cell(row []string, letter string) string {
	idx := colIdx(letter)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
