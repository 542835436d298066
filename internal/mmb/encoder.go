// Package mmb encodes issued invoices as fixed-width accounting records.
//
// Each record is exactly 468 characters. The positional layout mirrors the
// import template of the target accounting system:
//
//	0       record type "V"
//	2-11    emission date DD/MM/YYYY (repeated at 12-21)
//	32-36   invoice number, digits only, right-aligned
//	44-54   client accounting code (430...)
//	60-68   client tax id
//	74-93   client name, upper-cased
//	104-123 description "NTRA. FRA. N <num> <client>"
//	143-149 taxable base
//	158-169 VAT rate and VAT amount
//	178-188 VAT account (477...), blank for intra-community invoices
//	266-272 invoice total
//	282-292 sales account (705...)
//	300-306 taxable base, sales side
//	420     cash-criterion flag "N"
//	467     end-of-record flag "N"
//
// Offsets are character positions; records are concatenated without
// separators into a single UTF-8 blob.
package mmb

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RecordLength is the exact character width of one record.
const RecordLength = 468

// Default accounting codes. The 477 codes can be overridden per deployment
// through Config.
const (
	vatAccount21 = "47700000021"
	vatAccount10 = "47700000010"
	salesAccount = "70500000000"
)

// Config carries deployment-specific overrides for the VAT accounts.
type Config struct {
	VATCode21 string
	VATCode10 string
}

// Figures is everything the encoder needs for one invoice. Zero-valued
// amounts trigger the documented fallbacks: base and total fall back to
// FallbackAmount, the VAT rate to 21%, and the VAT amount is recomputed
// from base and rate.
type Figures struct {
	InvoiceNumber  string
	Series         string
	EmissionDate   string // ISO, DD/MM/YYYY or unix timestamp
	ClientName     string
	ClientTaxID    string
	ClientCode     string // 430... code; derived from the tax id when empty
	Base           float64
	VATPct         float64
	VATAmount      float64
	Total          float64
	FallbackAmount float64 // store amount, last-resort source for base/total
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Record encodes one invoice as a 468-character record.
func Record(f Figures, cfg Config) string {
	date := normalizeDate(f.EmissionDate)

	rawNumber := strings.TrimSpace(f.InvoiceNumber)
	number := nonDigits.ReplaceAllString(rawNumber, "")
	if number == "" {
		number = rawNumber
	}
	number = truncate(number, 5)

	nameUpper := strings.ToUpper(strings.TrimSpace(f.ClientName))
	taxID := truncate(strings.TrimSpace(f.ClientTaxID), 9)

	// intra-community invoices are recognized by the A-prefixed number or
	// series and carry no VAT
	intra := strings.HasPrefix(strings.ToUpper(rawNumber), "A") ||
		strings.HasPrefix(strings.ToUpper(strings.TrimSpace(f.Series)), "A")

	clientCode := f.ClientCode
	if clientCode == "" {
		clientCode = ClientAccountCode(taxID)
	}

	base, pct, vatAmt, total := resolveAmounts(f, intra)

	vatAccount := ""
	if !intra {
		account21 := vatAccount21
		if cfg.VATCode21 != "" {
			account21 = cfg.VATCode21
		}
		account10 := vatAccount10
		if cfg.VATCode10 != "" {
			account10 = cfg.VATCode10
		}
		switch {
		case math.Abs(pct-21.0) < 0.1:
			vatAccount = account21
		case math.Abs(pct-10.0) < 0.1:
			vatAccount = account10
		default:
			vatAccount = account21
		}
	}

	var b strings.Builder
	b.Grow(RecordLength)
	b.WriteString("V")
	b.WriteString(" ")
	b.WriteString(padRight(date, 10)) // 2-11
	b.WriteString(padRight(date, 10)) // 12-21
	b.WriteString(spaces(10))
	b.WriteString(padLeft(number, 5)) // 32-36
	b.WriteString(spaces(7))
	b.WriteString(padRight(truncate(clientCode, 11), 11)) // 44-54
	b.WriteString(spaces(5))
	b.WriteString(padRight(taxID, 9)) // 60-68
	b.WriteString(spaces(5))
	b.WriteString(padRight(truncate(nameUpper, 20), 20)) // 74-93
	b.WriteString(spaces(10))
	b.WriteString(description(number, nameUpper)) // 104-123
	b.WriteString(spaces(19))
	b.WriteString(moneyField(base)) // 143-149
	b.WriteString(spaces(8))
	b.WriteString(vatField(pct, vatAmt)) // 158-169
	b.WriteString(spaces(8))
	b.WriteString(padRight(vatAccount, 11)) // 178-188
	b.WriteString(spaces(77))
	b.WriteString(moneyField(total)) // 266-272
	b.WriteString(spaces(9))
	b.WriteString(salesAccount) // 282-292
	b.WriteString(spaces(7))
	b.WriteString(padRight(truncate(amount(base, 2), 7), 7)) // 300-306
	b.WriteString(spaces(113))
	b.WriteString("N") // 420, cash criterion
	b.WriteString(spaces(46))
	b.WriteString("N") // 467, end-of-record flag

	rec := b.String()
	if n := len([]rune(rec)); n > RecordLength {
		rec = string([]rune(rec)[:RecordLength])
	} else if n < RecordLength {
		rec += spaces(RecordLength - n)
	}
	return rec
}

// resolveAmounts applies the fallback and repair rules: missing base/total
// fall back to the store amount, a missing rate defaults to 21%, the VAT
// amount is recomputed when absent, intra-community invoices are zero-rated
// with base equal to total, and a total drifting more than a cent from
// base+VAT is replaced by the recomputed value.
func resolveAmounts(f Figures, intra bool) (base, pct, vatAmt, total float64) {
	base = f.Base
	if base == 0 {
		base = f.FallbackAmount
	}
	pct = f.VATPct
	if pct == 0 {
		pct = 21.0
	}
	if f.VATAmount > 0 {
		vatAmt = f.VATAmount
	} else if base > 0 && pct > 0 {
		vatAmt = base * pct / 100.0
	}
	total = f.Total
	if total == 0 {
		total = f.FallbackAmount
	}

	if intra {
		pct, vatAmt = 0, 0
		if total > 0 {
			base = total
		} else if base > 0 {
			total = base
		}
	}

	if base == 0 && total > 0 {
		if intra {
			base, vatAmt = total, 0
		} else {
			base = total / (1 + pct/100.0)
			vatAmt = total - base
		}
	}

	if !intra && base > 0 && pct > 0 && vatAmt == 0 {
		vatAmt = base * pct / 100.0
	}

	if intra {
		total = base
	} else if base > 0 {
		if recomputed := base + vatAmt; math.Abs(total-recomputed) > 0.01 {
			total = recomputed
		}
	}
	return base, pct, vatAmt, total
}

// description builds the 20-character posting description:
// "NTRA. FRA. N <num> <client name>", truncated to fit.
func description(number, clientUpper string) string {
	prefix := "NTRA. FRA. N " + number
	desc := prefix
	if rem := 20 - len([]rune(prefix)); rem > 1 {
		if name := truncate(clientUpper, rem-1); name != "" {
			desc = prefix + " " + name
		}
	}
	return padRight(truncate(desc, 20), 20)
}

// normalizeDate renders any supported date representation as DD/MM/YYYY.
// Unparseable values fall back to today: a wrong-but-valid date imports,
// a malformed one rejects the whole file.
func normalizeDate(v string) string {
	today := time.Now().Format("02/01/2006")
	s := strings.TrimSpace(v)
	if s == "" {
		return today
	}
	switch strings.ToLower(s) {
	case "none", "null", "nan":
		return today
	}

	if strings.Contains(s, "/") && len(s) >= 10 {
		parts := strings.Split(s, "/")
		if len(parts) == 3 {
			d, m := zfill2(parts[0]), zfill2(parts[1])
			if t, err := time.Parse("02/01/2006", d+"/"+m+"/"+parts[2]); err == nil && yearInRange(t) {
				return t.Format("02/01/2006")
			}
		}
	}
	if strings.Contains(s, "-") && len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil && yearInRange(t) {
			return t.Format("02/01/2006")
		}
	}
	if ts, err := strconv.ParseFloat(s, 64); err == nil && ts >= 0 && ts <= 4102444800 {
		return time.Unix(int64(ts), 0).Format("02/01/2006")
	}
	return today
}

func yearInRange(t time.Time) bool {
	return t.Year() >= 1900 && t.Year() <= 2100
}

func zfill2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// amount formats a float with a comma decimal separator.
func amount(v float64, decimals int) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', decimals, 64), ".", ",")
}

// moneyField renders a 7-character amount column: a leading space plus the
// 2-decimal value, right-aligned, truncated on the right when the value is
// too wide for the column.
func moneyField(v float64) string {
	s := " " + amount(v, 2)
	if len(s) < 7 {
		s = spaces(7-len(s)) + s
	}
	return s[:7]
}

// vatField renders the combined 12-character VAT column: a leading space,
// the rate as 5 characters (NN,NN) and the VAT amount as 6 characters with
// one decimal (NNNN,N).
func vatField(pct, vatAmt float64) string {
	pctStr := amount(pct, 2)
	if len(pctStr) < 5 {
		pctStr = spaces(5-len(pctStr)) + pctStr
	}
	pctStr = pctStr[:5]

	amtStr := amount(vatAmt, 1)
	if i := strings.Index(amtStr, ","); i >= 0 && i < 4 {
		amtStr = spaces(4-i) + amtStr
	}
	if len(amtStr) > 6 {
		amtStr = amtStr[:6]
	} else if len(amtStr) < 6 {
		amtStr = spaces(6-len(amtStr)) + amtStr
	}
	return " " + pctStr + amtStr
}

func spaces(n int) string {
	return strings.Repeat(" ", n)
}

func padRight(s string, n int) string {
	if r := []rune(s); len(r) < n {
		return s + spaces(n-len(r))
	}
	return s
}

func padLeft(s string, n int) string {
	if r := []rune(s); len(r) < n {
		return spaces(n-len(r)) + s
	}
	return s
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
